package kvstore

import (
	"fmt"

	"github.com/google/uuid"
)

// Merge collapses every on-disk segment into a single new one, preserving
// newest-wins shadowing: where two segments hold the same key, the value
// from whichever was committed later survives (§3: "Merges preserve
// newest-wins shadowing"). The old segments' files are left on disk —
// callers that want them reclaimed remove them once satisfied no reader
// still depends on the pre-merge meta.json (§5's "old segments are kept
// until outstanding readers drain").
func (s *Store) Merge() (string, error) {
	s.mu.Lock()
	segs := make([]*Segment, len(s.onDisk))
	copy(segs, s.onDisk)
	s.mu.Unlock()

	if len(segs) <= 1 {
		return "", nil
	}

	merged := map[string][]byte{}
	// Oldest first, so a later (more-recently-committed) segment's entry
	// for the same key overwrites an earlier one in the map.
	for _, seg := range segs {
		for _, e := range seg.entries {
			v := make([]byte, e.ptr.ValueLen())
			if _, err := seg.blob.ReadAt(v, int64(e.ptr.ValueRangeStart)); err != nil {
				return "", fmt.Errorf("reading %q from segment %s during merge: %w", e.key, seg.uuid, err)
			}
			merged[e.key] = v
		}
	}

	entries := make([]sortedEntry, 0, len(merged))
	for k, v := range merged {
		entries = append(entries, sortedEntry{key: k, value: v})
	}
	sortEntriesByKey(entries)

	id := uuid.New().String()
	if err := writeSegment(s.dir, id, entries); err != nil {
		return "", fmt.Errorf("writing merged segment %s: %w", id, err)
	}
	newSeg, err := openSegment(s.dir, id)
	if err != nil {
		return "", fmt.Errorf("opening merged segment %s: %w", id, err)
	}

	s.mu.Lock()
	old := s.onDisk
	s.onDisk = []*Segment{newSeg}
	s.mu.Unlock()

	if err := writeMeta(s.dir, meta{Segments: []string{id}}); err != nil {
		return "", fmt.Errorf("publishing merged segment %s: %w", id, err)
	}

	for _, seg := range old {
		_ = seg.Close()
	}
	return id, nil
}
