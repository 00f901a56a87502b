// Package kvstore implements the append-only, content-addressed retrieval
// KV store (§3 "Live vs on-disk KV", §7's persisted-state layout): an
// in-memory LiveSegment writes go to first, zero or more immutable on-disk
// segments, and a meta.json listing them. Lookups search newest-first so a
// later write shadows an earlier one with the same key.
package kvstore

import "encoding/binary"

// BlobPointerSize is the on-disk encoded size of a BlobPointer: four uint64
// fields (§7: "32-byte BlobPointer [key_range, value_range] (u64×4 LE)").
const BlobPointerSize = 32

// BlobPointer locates a key's bytes and a value's bytes within a segment's
// key file and blob file respectively, each a half-open [start, end) byte
// range.
type BlobPointer struct {
	KeyRangeStart   uint64
	KeyRangeEnd     uint64
	ValueRangeStart uint64
	ValueRangeEnd   uint64
}

// Encode writes p as 32 bytes, little-endian per field — the layout §7
// calls out explicitly for BlobPointer, even though the surrounding
// segment records are big-endian.
func (p BlobPointer) Encode() []byte {
	buf := make([]byte, BlobPointerSize)
	binary.LittleEndian.PutUint64(buf[0:8], p.KeyRangeStart)
	binary.LittleEndian.PutUint64(buf[8:16], p.KeyRangeEnd)
	binary.LittleEndian.PutUint64(buf[16:24], p.ValueRangeStart)
	binary.LittleEndian.PutUint64(buf[24:32], p.ValueRangeEnd)
	return buf
}

// DecodeBlobPointer reads the 32-byte encoding Encode produces.
func DecodeBlobPointer(b []byte) BlobPointer {
	if len(b) < BlobPointerSize {
		return BlobPointer{}
	}
	return BlobPointer{
		KeyRangeStart:   binary.LittleEndian.Uint64(b[0:8]),
		KeyRangeEnd:     binary.LittleEndian.Uint64(b[8:16]),
		ValueRangeStart: binary.LittleEndian.Uint64(b[16:24]),
		ValueRangeEnd:   binary.LittleEndian.Uint64(b[24:32]),
	}
}

// ValueLen returns the span of the value range.
func (p BlobPointer) ValueLen() uint64 {
	return p.ValueRangeEnd - p.ValueRangeStart
}
