package kvstore

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/scour-engine/scour/pkg/searcherr"
)

// Store is the append-only retrieval KV store (§3, §7): a LiveSegment that
// absorbs writes, zero or more immutable on-disk Segments, and a meta.json
// recording which segments exist. Get searches newest-first — the
// LiveSegment, then on-disk segments from most to least recently
// committed — so a later write always shadows an earlier one sharing a key.
type Store struct {
	dir  string
	live *LiveSegment

	mu     sync.RWMutex
	onDisk []*Segment // oldest first, matching meta.Segments order
}

// Open opens (or initializes) a Store rooted at dir, loading every segment
// meta.json currently lists.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating kvstore dir: %w", err)
	}

	m, err := readMeta(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{dir: dir, live: NewLiveSegment()}
	for _, id := range m.Segments {
		seg, err := openSegment(dir, id)
		if err != nil {
			return nil, searcherr.Wrap(searcherr.KindInternalIndex, fmt.Sprintf("opening segment %s", id), err)
		}
		s.onDisk = append(s.onDisk, seg)
	}
	return s, nil
}

// Put compresses value and writes it to the LiveSegment under key.
func (s *Store) Put(key string, value []byte) {
	s.live.Put(key, compress(value))
}

// Get resolves key to its decompressed value, searching the LiveSegment
// then on-disk segments newest-first (§3's shadowing invariant).
func (s *Store) Get(key string) ([]byte, bool, error) {
	if v, ok := s.live.Get(key); ok {
		out, err := decompress(v)
		if err != nil {
			return nil, false, fmt.Errorf("decompressing live value for %q: %w", key, err)
		}
		return out, true, nil
	}

	s.mu.RLock()
	segs := s.onDisk
	s.mu.RUnlock()

	for i := len(segs) - 1; i >= 0; i-- {
		v, ok, err := segs[i].Get(key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			out, err := decompress(v)
			if err != nil {
				return nil, false, fmt.Errorf("decompressing value for %q: %w", key, err)
			}
			return out, true, nil
		}
	}
	return nil, false, nil
}

// Commit snapshots the LiveSegment into a new on-disk segment, identified
// by a freshly-minted UUID, and atomically publishes it by rewriting
// meta.json. Returns "" with no error if there was nothing to commit.
func (s *Store) Commit() (string, error) {
	entries := s.live.snapshotSorted()
	if len(entries) == 0 {
		return "", nil
	}

	id := uuid.New().String()
	if err := writeSegment(s.dir, id, entries); err != nil {
		return "", fmt.Errorf("writing segment %s: %w", id, err)
	}

	seg, err := openSegment(s.dir, id)
	if err != nil {
		return "", fmt.Errorf("opening freshly committed segment %s: %w", id, err)
	}

	s.mu.Lock()
	s.onDisk = append(s.onDisk, seg)
	ids := make([]string, 0, len(s.onDisk))
	for _, d := range s.onDisk {
		ids = append(ids, d.uuid)
	}
	s.mu.Unlock()

	if err := writeMeta(s.dir, meta{Segments: ids}); err != nil {
		return "", fmt.Errorf("publishing segment %s: %w", id, err)
	}
	return id, nil
}

// SegmentCount returns the number of on-disk segments currently open.
func (s *Store) SegmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.onDisk)
}

// Close releases every on-disk segment's open file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, seg := range s.onDisk {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
