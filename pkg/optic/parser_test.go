package optic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleRankingsAndRules(t *testing.T) {
	src := `
		// this is a normal comment
		Ranking(Signal("host_centrality"), 3);
		/*
			this is a block comment
		 */
		Ranking(Signal("bm25"), 100);
		Ranking(Field("url"), 2);
		Rule {
			Matches {
				Url("/this/is/a/*/pattern")
			}
		};
		Rule {
			Matches {
				Url("/this/is/a/pattern"),
				Site("example.com")
			}
		}
	`
	optic, err := Parse(src)
	require.NoError(t, err)

	require.Len(t, optic.Rankings, 3)
	assert.Equal(t, RankingCoeff{Target: RankingTarget{Kind: TargetSignal, Name: "host_centrality"}, Score: 3}, optic.Rankings[0])
	assert.Equal(t, RankingCoeff{Target: RankingTarget{Kind: TargetSignal, Name: "bm25"}, Score: 100}, optic.Rankings[1])
	assert.Equal(t, RankingCoeff{Target: RankingTarget{Kind: TargetField, Name: "url"}, Score: 2}, optic.Rankings[2])

	require.Len(t, optic.Rules, 2)
	assert.Equal(t, Rule{
		Matches: []MatchPart{{Field: FieldUrl, Pattern: "/this/is/a/*/pattern"}},
		Action:  Action{Kind: ActionNone},
	}, optic.Rules[0])
	assert.Equal(t, Rule{
		Matches: []MatchPart{
			{Field: FieldUrl, Pattern: "/this/is/a/pattern"},
			{Field: FieldSite, Pattern: "example.com"},
		},
		Action: Action{Kind: ActionNone},
	}, optic.Rules[1])

	assert.False(t, optic.DiscardNonMatching)
	assert.Empty(t, optic.SitePreferences)
}

func TestParseActions(t *testing.T) {
	src := `
		Rule {
			Matches {
				Url("/this/is/a/*/pattern")
			},
			Action(Boost(2))
		};
		Rule {
			Matches {
				Site("example.com")
			},
			Action(Downrank(4))
		};
	`
	optic, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, optic.Rules, 2)
	assert.Equal(t, Action{Kind: ActionBoost, N: 2}, optic.Rules[0].Action)
	assert.Equal(t, Action{Kind: ActionDownrank, N: 4}, optic.Rules[1].Action)
}

func TestParseDiscardNonMatching(t *testing.T) {
	src := `
		DiscardNonMatching;
		Rule {
			Matches {
				Url("/this/is/a/*/pattern")
			},
			Action(Boost(2))
		};
	`
	optic, err := Parse(src)
	require.NoError(t, err)
	assert.True(t, optic.DiscardNonMatching)
	require.Len(t, optic.Rules, 1)
}

func TestParseDiscardAction(t *testing.T) {
	optic, err := Parse(`Rule { Matches { Site("spam.example") }, Action(Discard) };`)
	require.NoError(t, err)
	require.Len(t, optic.Rules, 1)
	assert.Equal(t, Action{Kind: ActionDiscard}, optic.Rules[0].Action)
}

func TestParseSitePreferences(t *testing.T) {
	optic, err := Parse(`Like(Site("example.com")); Dislike(Site("spam.example"));`)
	require.NoError(t, err)
	require.Len(t, optic.SitePreferences, 2)
	assert.Equal(t, SitePreference{Kind: PreferLike, Site: "example.com"}, optic.SitePreferences[0])
	assert.Equal(t, SitePreference{Kind: PreferDislike, Site: "spam.example"}, optic.SitePreferences[1])
}

// TestScenario6AST matches spec.md §8 end-to-end scenario 6 exactly.
func TestScenario6AST(t *testing.T) {
	src := `Ranking(Signal("host_centrality"), 3); Ranking(Field("url"), 2); Rule { Matches { Url("/this/is/a/*/pattern") } };`
	optic, err := Parse(src)
	require.NoError(t, err)

	require.Len(t, optic.Rankings, 2)
	assert.Equal(t, RankingCoeff{Target: RankingTarget{Kind: TargetSignal, Name: "host_centrality"}, Score: 3}, optic.Rankings[0])
	assert.Equal(t, RankingCoeff{Target: RankingTarget{Kind: TargetField, Name: "url"}, Score: 2}, optic.Rankings[1])

	require.Len(t, optic.Rules, 1)
	assert.Equal(t, Rule{
		Matches: []MatchPart{{Field: FieldUrl, Pattern: "/this/is/a/*/pattern"}},
		Action:  Action{Kind: ActionNone},
	}, optic.Rules[0])
}

func TestParseUnknownBlockIsParseError(t *testing.T) {
	_, err := Parse(`Bogus(1);`)
	assert.Error(t, err)
}

func TestParseUnterminatedStringIsParseError(t *testing.T) {
	_, err := Parse(`Rule { Matches { Url("unterminated) } };`)
	assert.Error(t, err)
}
