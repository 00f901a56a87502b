package kvstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
)

// segmentEntry is one key's index record: the key itself plus where its
// (compressed) value lives in the segment's blob file.
type segmentEntry struct {
	key string
	ptr BlobPointer
}

// Segment is an immutable on-disk unit of the retrieval KV store. In place
// of a true finite-state-transducer over keys (§7's persisted-state
// layout), it keeps a plain sorted slice of (key, BlobPointer) loaded
// fully into memory from the .idx file — a documented simplification: the
// lookup contract (bloom check, then key lookup, then blob range read) is
// identical, just without the FST's compressed key representation.
type Segment struct {
	uuid    string
	entries []segmentEntry
	filter  *bloom.BloomFilter
	blob    *os.File
}

func idxPath(dir, uuid string) string   { return filepath.Join(dir, uuid+".idx") }
func blobPath(dir, uuid string) string  { return filepath.Join(dir, uuid+".blob") }
func bloomPath(dir, uuid string) string { return filepath.Join(dir, uuid+".bloom") }

// writeSegment snapshots sorted entries into dir as a new immutable segment
// uuid: an .idx file of (keyLen, key, BlobPointer) records, a .blob file of
// concatenated compressed values, and a .bloom filter over the keys. Each
// file is written to a temp path and renamed into place, so a crash
// mid-write never leaves a partially-visible segment.
func writeSegment(dir, uuid string, entries []sortedEntry) error {
	idxBuf := make([]byte, 0, len(entries)*64)
	blobBuf := make([]byte, 0, len(entries)*256)
	filter := bloom.NewWithEstimates(uint(max(len(entries), 1)), 0.01)

	var blobOffset uint64
	for _, e := range entries {
		keyBytes := []byte(e.key)
		filter.Add(keyBytes)

		valStart := blobOffset
		blobBuf = append(blobBuf, e.value...)
		blobOffset += uint64(len(e.value))

		keyStart := uint64(len(idxBuf) + 4) // the key follows its 4-byte length
		ptr := BlobPointer{
			KeyRangeStart:   keyStart,
			KeyRangeEnd:     keyStart + uint64(len(keyBytes)),
			ValueRangeStart: valStart,
			ValueRangeEnd:   blobOffset,
		}

		keyLen := make([]byte, 4)
		binary.BigEndian.PutUint32(keyLen, uint32(len(keyBytes)))
		idxBuf = append(idxBuf, keyLen...)
		idxBuf = append(idxBuf, keyBytes...)
		idxBuf = append(idxBuf, ptr.Encode()...)
	}

	if err := writeFileAtomic(idxPath(dir, uuid), idxBuf); err != nil {
		return fmt.Errorf("writing segment idx: %w", err)
	}
	if err := writeFileAtomic(blobPath(dir, uuid), blobBuf); err != nil {
		return fmt.Errorf("writing segment blob: %w", err)
	}

	bloomBuf := &bufferWriter{}
	if _, err := filter.WriteTo(bloomBuf); err != nil {
		return fmt.Errorf("encoding segment bloom filter: %w", err)
	}
	if err := writeFileAtomic(bloomPath(dir, uuid), bloomBuf.buf); err != nil {
		return fmt.Errorf("writing segment bloom: %w", err)
	}

	return nil
}

// openSegment loads uuid's .idx and .bloom files into memory and opens its
// .blob file for later ranged reads.
func openSegment(dir, uuid string) (*Segment, error) {
	idxData, err := os.ReadFile(idxPath(dir, uuid))
	if err != nil {
		return nil, fmt.Errorf("reading segment idx: %w", err)
	}
	entries, err := parseIdx(idxData)
	if err != nil {
		return nil, fmt.Errorf("parsing segment idx: %w", err)
	}

	bloomData, err := os.ReadFile(bloomPath(dir, uuid))
	if err != nil {
		return nil, fmt.Errorf("reading segment bloom: %w", err)
	}
	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(&bufferReader{buf: bloomData}); err != nil {
		return nil, fmt.Errorf("decoding segment bloom: %w", err)
	}

	blobFile, err := os.Open(blobPath(dir, uuid))
	if err != nil {
		return nil, fmt.Errorf("opening segment blob: %w", err)
	}

	return &Segment{uuid: uuid, entries: entries, filter: filter, blob: blobFile}, nil
}

func parseIdx(data []byte) ([]segmentEntry, error) {
	var entries []segmentEntry
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, fmt.Errorf("truncated key length at offset %d", off)
		}
		keyLen := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+keyLen > len(data) {
			return nil, fmt.Errorf("truncated key at offset %d", off)
		}
		key := string(data[off : off+keyLen])
		off += keyLen
		if off+BlobPointerSize > len(data) {
			return nil, fmt.Errorf("truncated blob pointer at offset %d", off)
		}
		ptr := DecodeBlobPointer(data[off : off+BlobPointerSize])
		off += BlobPointerSize
		entries = append(entries, segmentEntry{key: key, ptr: ptr})
	}
	return entries, nil
}

// Get returns the raw compressed value for key, if present in this segment.
func (s *Segment) Get(key string) ([]byte, bool, error) {
	if s.filter != nil && !s.filter.TestString(key) {
		return nil, false, nil // bloom filter is false-positive-only: a miss here is definite
	}

	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].key >= key })
	if idx >= len(s.entries) || s.entries[idx].key != key {
		return nil, false, nil
	}

	ptr := s.entries[idx].ptr
	buf := make([]byte, ptr.ValueLen())
	if _, err := s.blob.ReadAt(buf, int64(ptr.ValueRangeStart)); err != nil {
		return nil, false, fmt.Errorf("reading blob range for %q: %w", key, err)
	}
	return buf, true, nil
}

// Close releases the segment's open blob file handle.
func (s *Segment) Close() error {
	if s.blob == nil {
		return nil
	}
	return s.blob.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// bufferWriter/bufferReader adapt bloom.BloomFilter's io.WriterTo/io.ReaderFrom
// to a plain in-memory byte slice without pulling in bytes.Buffer's wider API.
type bufferWriter struct{ buf []byte }

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

type bufferReader struct {
	buf []byte
	pos int
}

func (b *bufferReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += n
	return n, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
