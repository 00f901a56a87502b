package kvstore

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	decOnce sync.Once
	dec     *zstd.Decoder
)

// encoder/decoder are process-wide singletons: both EncodeAll and DecodeAll
// are documented as safe for concurrent use, so one of each suffices for the
// whole store rather than one per segment.
func encoder() *zstd.Encoder {
	encOnce.Do(func() {
		e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("kvstore: building zstd encoder: %v", err))
		}
		enc = e
	})
	return enc
}

func decoder() *zstd.Decoder {
	decOnce.Do(func() {
		d, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("kvstore: building zstd decoder: %v", err))
		}
		dec = d
	})
	return dec
}

func compress(raw []byte) []byte {
	return encoder().EncodeAll(raw, make([]byte, 0, len(raw)))
}

func decompress(compressed []byte) ([]byte, error) {
	return decoder().DecodeAll(compressed, nil)
}
