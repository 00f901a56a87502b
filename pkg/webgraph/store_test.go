package webgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNodeIDBytesRoundTrip(t *testing.T) {
	id := NodeID{Hi: 0x1122334455667788, Lo: 0x99aabbccddeeff00}
	assert.Equal(t, id, NodeIDFromBytes(id.Bytes()))
}

func TestNodeIDZero(t *testing.T) {
	assert.True(t, NodeID{}.IsZero())
	assert.False(t, NodeID{Lo: 1}.IsZero())
}

func TestPutEdgesPopulatesBothIndices(t *testing.T) {
	s := openTestStore(t)
	a := NodeID{Lo: 1}
	b := NodeID{Lo: 2}

	require.NoError(t, s.PutEdges([]Edge{{From: a, To: b, Label: "link", SortScore: 1.0}}))

	out, err := s.Outgoing(a)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0].To)

	in, err := s.Incoming(b)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, a, in[0].From)
}

func TestPutEdgesBatchIsAtomicAndNodeAdjacencyStaysIntact(t *testing.T) {
	s := openTestStore(t)
	a := NodeID{Lo: 1}
	targets := []NodeID{{Lo: 2}, {Lo: 3}, {Lo: 4}}

	batch := make([]Edge, 0, len(targets))
	for _, to := range targets {
		batch = append(batch, Edge{From: a, To: to})
	}
	require.NoError(t, s.PutEdges(batch))

	out, err := s.Outgoing(a)
	require.NoError(t, err)
	assert.Len(t, out, len(targets))
}

func TestOutgoingAndIncomingOnUnknownNodeIsEmpty(t *testing.T) {
	s := openTestStore(t)
	out, err := s.Outgoing(NodeID{Lo: 99})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEdgesAreKeyedByDistinctNodesIndependently(t *testing.T) {
	s := openTestStore(t)
	a := NodeID{Lo: 1}
	c := NodeID{Lo: 100}
	require.NoError(t, s.PutEdges([]Edge{
		{From: a, To: NodeID{Lo: 2}},
		{From: c, To: NodeID{Lo: 2}},
	}))

	outA, err := s.Outgoing(a)
	require.NoError(t, err)
	assert.Len(t, outA, 1)

	outC, err := s.Outgoing(c)
	require.NoError(t, err)
	assert.Len(t, outC, 1)

	in, err := s.Incoming(NodeID{Lo: 2})
	require.NoError(t, err)
	assert.Len(t, in, 2, "both a and c's edges into node 2 should be visible in the reverse index")
}
