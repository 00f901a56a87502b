// Package docaddr defines DocAddress, the (segment, doc) coordinate that
// uniquely identifies a document within a shard (§3 Data Model) and serves
// as the deterministic tie-break across the collector, ranking pipeline
// and cross-shard merge.
package docaddr

// DocAddress uniquely identifies a document within a shard: the segment it
// lives in plus its doc id within that segment.
type DocAddress struct {
	SegmentOrdinal uint32
	DocID          uint64
}

// Less orders DocAddresses ascending by (SegmentOrdinal, DocID), the tie-break
// spec.md uses whenever two documents compare equal on score.
func (a DocAddress) Less(b DocAddress) bool {
	if a.SegmentOrdinal != b.SegmentOrdinal {
		return a.SegmentOrdinal < b.SegmentOrdinal
	}
	return a.DocID < b.DocID
}
