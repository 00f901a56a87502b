package webgraph

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/scour-engine/scour/pkg/searcherr"
)

// Key prefixes mirroring the teacher's node/edge-index scheme (badger.go's
// prefixOutgoingIndex/prefixIncomingIndex), adapted from per-relationship
// graph-database indexing to webgraph forward/reverse adjacency.
const (
	prefixForward = byte(0x01) // forward:fromNodeID:seq -> Edge
	prefixReverse = byte(0x02) // reverse:toNodeID:seq -> Edge
)

// Options configures a Store.
type Options struct {
	// DataDir is the directory Badger persists to. Required unless InMemory.
	DataDir string
	// InMemory runs Badger in-memory only, for tests.
	InMemory bool
}

// Store is the append-only webgraph edge store (§4.8): every edge is
// written once into mirrored forward and reverse indices, backed by a
// single embedded Badger instance the way the teacher's BadgerEngine backs
// its node/edge/label/adjacency indices.
//
// The spec's writer/reader outline describes a batch-oriented mmapped
// blob-file format with a separate range index; this keeps the same
// append-only, node-sorted-batch contract but stores each edge directly as
// a Badger record, the simplification DESIGN.md documents for this package.
type Store struct {
	db      *badger.DB
	nextSeq uint64
	closeMu sync.Mutex
	closed  bool
}

// Open opens (or creates) the webgraph store at opts.DataDir.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening webgraph store: %w", err)
	}
	return &Store{db: db}, nil
}

func forwardKey(node NodeID, seq uint64) []byte {
	return adjacencyKey(prefixForward, node, seq)
}

func reverseKey(node NodeID, seq uint64) []byte {
	return adjacencyKey(prefixReverse, node, seq)
}

func adjacencyKey(prefix byte, node NodeID, seq uint64) []byte {
	key := make([]byte, 0, 1+16+8)
	key = append(key, prefix)
	key = append(key, node.Bytes()...)
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, seq)
	key = append(key, seqBuf...)
	return key
}

func adjacencyPrefix(prefix byte, node NodeID) []byte {
	key := make([]byte, 0, 1+16)
	key = append(key, prefix)
	key = append(key, node.Bytes()...)
	return key
}

func (s *Store) nextSequence() uint64 {
	return atomic.AddUint64(&s.nextSeq, 1)
}

// PutEdges writes a batch of edges into both the forward and reverse
// indices in a single Badger transaction. Writing an entire batch
// transactionally is what gives the append-only invariant "batch
// boundaries never split a node": every edge in the batch becomes visible
// atomically, or none do.
func (s *Store) PutEdges(edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, e := range edges {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encoding edge: %w", err)
			}
			seq := s.nextSequence()
			if err := txn.Set(forwardKey(e.From, seq), data); err != nil {
				return err
			}
			if err := txn.Set(reverseKey(e.To, seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Outgoing returns node's out-edges, in insertion (sort_score-independent)
// order; callers that need sort_score ordering sort the result themselves.
func (s *Store) Outgoing(node NodeID) ([]Edge, error) {
	return s.scan(prefixForward, node)
}

// Incoming returns node's in-edges.
func (s *Store) Incoming(node NodeID) ([]Edge, error) {
	return s.scan(prefixReverse, node)
}

func (s *Store) scan(prefix byte, node NodeID) ([]Edge, error) {
	var edges []Edge
	err := s.db.View(func(txn *badger.Txn) error {
		p := adjacencyPrefix(prefix, node)
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var e Edge
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decoding edge: %w", err)
			}
			edges = append(edges, e)
		}
		return nil
	})
	if err != nil {
		return nil, searcherr.Wrap(searcherr.KindInternalIndex, "webgraph scan failed", err)
	}
	return edges, nil
}

// Close releases the underlying Badger instance.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
