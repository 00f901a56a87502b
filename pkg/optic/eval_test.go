package optic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/pattern"
)

// stubFieldIndex is a minimal pattern.FieldIndex backed by a single term's
// per-doc positions, enough to exercise Rule/Action evaluation end to end.
type stubFieldIndex struct {
	postings map[string][]pattern.Posting
	lengths  map[pattern.DocID]uint32
	avgLen   float64
	total    uint64
}

func (s *stubFieldIndex) Postings(term string) []pattern.Posting { return s.postings[term] }
func (s *stubFieldIndex) DocFreq(term string) uint64              { return uint64(len(s.postings[term])) }
func (s *stubFieldIndex) TotalDocs() uint64                        { return s.total }
func (s *stubFieldIndex) NumTokens(doc pattern.DocID) (uint32, bool) {
	n, ok := s.lengths[doc]
	return n, ok
}
func (s *stubFieldIndex) FieldLength(doc pattern.DocID) (uint32, bool) {
	n, ok := s.lengths[doc]
	return n, ok
}
func (s *stubFieldIndex) AvgFieldLength() float64 { return s.avgLen }

type stubMirrorIndex struct {
	docs map[string][]pattern.DocID
	total uint64
}

func (s *stubMirrorIndex) TermPostings(term string) []pattern.DocID { return s.docs[term] }
func (s *stubMirrorIndex) DocFreq(term string) uint64                { return uint64(len(s.docs[term])) }
func (s *stubMirrorIndex) TotalDocs() uint64                         { return s.total }

type stubIndexes struct {
	fields  map[MatchField]pattern.FieldIndex
	mirrors map[MatchField]pattern.MirrorIndex
}

func (s *stubIndexes) Field(f MatchField) (pattern.FieldIndex, bool) {
	idx, ok := s.fields[f]
	return idx, ok
}
func (s *stubIndexes) Mirror(f MatchField) (pattern.MirrorIndex, bool) {
	idx, ok := s.mirrors[f]
	return idx, ok
}

func TestEvaluateBoostMultipliesScore(t *testing.T) {
	optic, err := Parse(`Rule { Matches { Site("|a.com|") }, Action(Boost(10)) };`)
	require.NoError(t, err)
	compiled, err := Compile(optic)
	require.NoError(t, err)

	idxs := &stubIndexes{
		mirrors: map[MatchField]pattern.MirrorIndex{
			FieldSite: &stubMirrorIndex{docs: map[string][]pattern.DocID{"a.com": {1}}, total: 2},
		},
	}
	rs := compiled.Evaluate(idxs)

	scoreA, discardA := rs.Adjust(1, 5.0)
	assert.False(t, discardA)
	assert.Equal(t, 55.0, scoreA) // 5 * (1+10)

	scoreB, discardB := rs.Adjust(2, 5.0)
	assert.False(t, discardB)
	assert.Equal(t, 5.0, scoreB)
}

func TestEvaluateDiscardRemovesDoc(t *testing.T) {
	optic, err := Parse(`Rule { Matches { Site("|spam.example|") }, Action(Discard) };`)
	require.NoError(t, err)
	compiled, err := Compile(optic)
	require.NoError(t, err)

	idxs := &stubIndexes{
		mirrors: map[MatchField]pattern.MirrorIndex{
			FieldSite: &stubMirrorIndex{docs: map[string][]pattern.DocID{"spam.example": {9}}, total: 1},
		},
	}
	rs := compiled.Evaluate(idxs)

	_, discarded := rs.Adjust(9, 1.0)
	assert.True(t, discarded)

	_, discardedOther := rs.Adjust(8, 1.0)
	assert.False(t, discardedOther)
}

func TestEvaluateDiscardNonMatchingRequiresAMatch(t *testing.T) {
	optic, err := Parse(`
		DiscardNonMatching;
		Rule { Matches { Site("|a.com|") } };
	`)
	require.NoError(t, err)
	compiled, err := Compile(optic)
	require.NoError(t, err)

	idxs := &stubIndexes{
		mirrors: map[MatchField]pattern.MirrorIndex{
			FieldSite: &stubMirrorIndex{docs: map[string][]pattern.DocID{"a.com": {1}}, total: 2},
		},
	}
	rs := compiled.Evaluate(idxs)

	_, discardedMatching := rs.Adjust(1, 1.0)
	assert.False(t, discardedMatching)

	_, discardedOther := rs.Adjust(2, 1.0)
	assert.True(t, discardedOther)
}

func TestEvaluateUnsupportedPatternFailsCompile(t *testing.T) {
	optic, err := Parse(`Rule { Matches { Url("a|b") } };`)
	require.NoError(t, err)
	_, err = Compile(optic)
	assert.Error(t, err)
}

func TestEvaluateMultiPartRuleIsAnd(t *testing.T) {
	optic, err := Parse(`Rule { Matches { Site("|a.com|"), Url("/docs") }, Action(Boost(1)) };`)
	require.NoError(t, err)
	compiled, err := Compile(optic)
	require.NoError(t, err)

	idxs := &stubIndexes{
		mirrors: map[MatchField]pattern.MirrorIndex{
			FieldSite: &stubMirrorIndex{docs: map[string][]pattern.DocID{"a.com": {1, 2}}, total: 3},
		},
		fields: map[MatchField]pattern.FieldIndex{
			FieldUrl: &stubFieldIndex{
				postings: map[string][]pattern.Posting{"docs": {{Doc: 1, Positions: []uint32{0}}}},
				lengths:  map[pattern.DocID]uint32{1: 1},
				avgLen:   1,
				total:    3,
			},
		},
	}
	rs := compiled.Evaluate(idxs)

	score1, _ := rs.Adjust(1, 10.0)
	assert.Equal(t, 20.0, score1) // matched both parts -> boosted

	score2, _ := rs.Adjust(2, 10.0)
	assert.Equal(t, 10.0, score2) // matched Site only -> not boosted
}
