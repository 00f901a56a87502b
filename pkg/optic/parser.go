package optic

import (
	"fmt"
	"strconv"
)

// Parse lexes and parses an optic source document into an Optic (§4.4).
// A syntax error returns a *searcherr.Error with KindParse, matching the
// error-propagation policy of §7 ("optic parse errors are returned as-is
// so a UI/LSP can highlight them").
func Parse(src string) (*Optic, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, parseErr(err.Error())
	}
	p := &parser{toks: toks}
	optic, err := p.parseOptic()
	if err != nil {
		return nil, parseErr(err.Error())
	}
	return optic, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k TokenKind, what string) (Token, error) {
	if p.cur().Kind != k {
		return Token{}, fmt.Errorf("expected %s at position %d, got %q", what, p.cur().Pos, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent(text string) error {
	if p.cur().Kind != TokIdent || p.cur().Text != text {
		return fmt.Errorf("expected %q at position %d, got %q", text, p.cur().Pos, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) parseOptic() (*Optic, error) {
	out := &Optic{}
	for p.cur().Kind != TokEOF {
		if err := p.parseBlock(out); err != nil {
			return nil, err
		}
		if p.cur().Kind == TokSemicolon {
			p.advance()
		}
	}
	return out, nil
}

func (p *parser) parseBlock(out *Optic) error {
	if p.cur().Kind != TokIdent {
		return fmt.Errorf("expected block keyword at position %d, got %q", p.cur().Pos, p.cur().Text)
	}

	switch p.cur().Text {
	case "DiscardNonMatching":
		p.advance()
		out.DiscardNonMatching = true
		return nil
	case "Ranking":
		rc, err := p.parseRanking()
		if err != nil {
			return err
		}
		out.Rankings = append(out.Rankings, rc)
		return nil
	case "Rule":
		r, err := p.parseRule()
		if err != nil {
			return err
		}
		out.Rules = append(out.Rules, r)
		return nil
	case "Like", "Dislike":
		sp, err := p.parseSitePreference()
		if err != nil {
			return err
		}
		out.SitePreferences = append(out.SitePreferences, sp)
		return nil
	default:
		return fmt.Errorf("unknown block %q at position %d", p.cur().Text, p.cur().Pos)
	}
}

func (p *parser) parseRanking() (RankingCoeff, error) {
	if err := p.expectIdent("Ranking"); err != nil {
		return RankingCoeff{}, err
	}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return RankingCoeff{}, err
	}
	target, err := p.parseRankingTarget()
	if err != nil {
		return RankingCoeff{}, err
	}
	if _, err := p.expect(TokComma, ","); err != nil {
		return RankingCoeff{}, err
	}
	numTok, err := p.expect(TokNumber, "number")
	if err != nil {
		return RankingCoeff{}, err
	}
	score, err := strconv.ParseFloat(numTok.Text, 64)
	if err != nil {
		return RankingCoeff{}, fmt.Errorf("invalid number %q at %d: %w", numTok.Text, numTok.Pos, err)
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return RankingCoeff{}, err
	}
	return RankingCoeff{Target: target, Score: score}, nil
}

func (p *parser) parseRankingTarget() (RankingTarget, error) {
	if p.cur().Kind != TokIdent {
		return RankingTarget{}, fmt.Errorf("expected Signal/Field at position %d", p.cur().Pos)
	}
	var kind TargetKind
	switch p.cur().Text {
	case "Signal":
		kind = TargetSignal
	case "Field":
		kind = TargetField
	default:
		return RankingTarget{}, fmt.Errorf("unknown ranking target %q at %d", p.cur().Text, p.cur().Pos)
	}
	p.advance()
	if _, err := p.expect(TokLParen, "("); err != nil {
		return RankingTarget{}, err
	}
	name, err := p.expect(TokString, "string")
	if err != nil {
		return RankingTarget{}, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return RankingTarget{}, err
	}
	return RankingTarget{Kind: kind, Name: name.Text}, nil
}

func (p *parser) parseRule() (Rule, error) {
	if err := p.expectIdent("Rule"); err != nil {
		return Rule{}, err
	}
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return Rule{}, err
	}
	if err := p.expectIdent("Matches"); err != nil {
		return Rule{}, err
	}
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return Rule{}, err
	}

	var matches []MatchPart
	for {
		mp, err := p.parseMatchPart()
		if err != nil {
			return Rule{}, err
		}
		matches = append(matches, mp)
		if p.cur().Kind == TokComma {
			p.advance()
			if p.cur().Kind == TokRBrace {
				break
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return Rule{}, err
	}

	action := Action{Kind: ActionNone}
	if p.cur().Kind == TokComma {
		p.advance()
		if err := p.expectIdent("Action"); err != nil {
			return Rule{}, err
		}
		if _, err := p.expect(TokLParen, "("); err != nil {
			return Rule{}, err
		}
		a, err := p.parseAction()
		if err != nil {
			return Rule{}, err
		}
		action = a
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return Rule{}, err
		}
	}

	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return Rule{}, err
	}
	return Rule{Matches: matches, Action: action}, nil
}

var matchFieldNames = map[string]MatchField{
	"Site":        FieldSite,
	"Url":         FieldUrl,
	"Domain":      FieldDomain,
	"Title":       FieldTitle,
	"Description": FieldDescription,
	"Content":     FieldContent,
}

func (p *parser) parseMatchPart() (MatchPart, error) {
	if p.cur().Kind != TokIdent {
		return MatchPart{}, fmt.Errorf("expected match field at position %d, got %q", p.cur().Pos, p.cur().Text)
	}
	field, ok := matchFieldNames[p.cur().Text]
	if !ok {
		return MatchPart{}, fmt.Errorf("unknown match field %q at %d", p.cur().Text, p.cur().Pos)
	}
	p.advance()
	if _, err := p.expect(TokLParen, "("); err != nil {
		return MatchPart{}, err
	}
	pat, err := p.expect(TokString, "string")
	if err != nil {
		return MatchPart{}, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return MatchPart{}, err
	}
	return MatchPart{Field: field, Pattern: pat.Text}, nil
}

func (p *parser) parseAction() (Action, error) {
	if p.cur().Kind != TokIdent {
		return Action{}, fmt.Errorf("expected action at position %d", p.cur().Pos)
	}
	switch p.cur().Text {
	case "Discard":
		p.advance()
		return Action{Kind: ActionDiscard}, nil
	case "Boost", "Downrank":
		kind := ActionBoost
		if p.cur().Text == "Downrank" {
			kind = ActionDownrank
		}
		p.advance()
		if _, err := p.expect(TokLParen, "("); err != nil {
			return Action{}, err
		}
		numTok, err := p.expect(TokNumber, "number")
		if err != nil {
			return Action{}, err
		}
		n, err := strconv.ParseUint(numTok.Text, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("invalid u64 %q at %d: %w", numTok.Text, numTok.Pos, err)
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return Action{}, err
		}
		return Action{Kind: kind, N: n}, nil
	default:
		return Action{}, fmt.Errorf("unknown action %q at %d", p.cur().Text, p.cur().Pos)
	}
}

func (p *parser) parseSitePreference() (SitePreference, error) {
	kind := PreferLike
	if p.cur().Text == "Dislike" {
		kind = PreferDislike
	}
	p.advance()
	if _, err := p.expect(TokLParen, "("); err != nil {
		return SitePreference{}, err
	}
	if err := p.expectIdent("Site"); err != nil {
		return SitePreference{}, err
	}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return SitePreference{}, err
	}
	site, err := p.expect(TokString, "string")
	if err != nil {
		return SitePreference{}, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return SitePreference{}, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return SitePreference{}, err
	}
	return SitePreference{Kind: kind, Site: site.Text}, nil
}
