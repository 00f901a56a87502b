// Package fingerprint computes the four 64-bit document fingerprints used
// throughout the query path (§3 Data Model): site, title, url prehashes and
// the simhash body signature. Prehashes use xxhash for speed; simhash uses
// blake2b-keyed hyperplane projections so each of the 64 bits comes from an
// independent hash function, which a single hash cannot provide.
package fingerprint

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Hashes bundles the four fingerprints an indexed document carries.
// Simhash == 0 is reserved and means "skip simhash dedup for this doc"
// (§3 invariant, §9 open-question resolution).
type Hashes struct {
	Site    uint64
	Title   uint64
	URL     uint64
	Simhash uint64
}

// Prehash computes a 64-bit xxhash of s, used for Site/Title/URL.
// Identical URLs must share the same prehash (§3 invariant); Prehash is a
// pure function of the bytes, so canonicalizing the URL before calling it
// is the caller's responsibility.
func Prehash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// numSimhashBits is fixed at 64 to match the spec's 64-bit simhash.
const numSimhashBits = 64

// planes holds 64 independent blake2b keys, one per simhash bit, built once.
var planes = buildPlanes()

func buildPlanes() [numSimhashBits][]byte {
	var ps [numSimhashBits][]byte
	for i := 0; i < numSimhashBits; i++ {
		key := make([]byte, 16)
		// Deterministic, distinct keys per plane: a fixed seed string plus
		// the plane index, hashed down to a blake2b key. Determinism matters
		// so the same body always produces the same simhash across shards.
		seed := xxhash.Sum64String("scour-simhash-plane")
		for j := 0; j < 8; j++ {
			key[j] = byte(seed >> (8 * j))
		}
		idx := xxhash.Sum64String(stringsRepeat(i))
		for j := 0; j < 8; j++ {
			key[8+j] = byte(idx >> (8 * j))
		}
		ps[i] = key
	}
	return ps
}

func stringsRepeat(i int) string {
	var b strings.Builder
	b.WriteString("plane-")
	b.WriteByte(byte('0' + i%10))
	b.WriteByte(byte('0' + (i/10)%10))
	return b.String()
}

// Simhash computes a 64-bit locality-sensitive signature over the token
// shingles of body. Returns 0 only in the degenerate empty-input case,
// which callers must treat as "no simhash" per the §3/§9 convention.
func Simhash(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	shingles := shingle(tokens, 3)
	if len(shingles) == 0 {
		shingles = tokens
	}

	var weights [numSimhashBits]int64
	for _, sh := range shingles {
		for bit := 0; bit < numSimhashBits; bit++ {
			h, _ := blake2b.New512(planes[bit])
			_, _ = h.Write([]byte(sh))
			sum := h.Sum(nil)
			if sum[0]&1 == 1 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var out uint64
	for bit := 0; bit < numSimhashBits; bit++ {
		if weights[bit] > 0 {
			out |= 1 << uint(bit)
		}
	}
	if out == 0 {
		// Avoid colliding with the reserved "no simhash" sentinel; flip the
		// low bit, which negligibly perturbs the signature's locality.
		out = 1
	}
	return out
}

func shingle(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

// HammingDistance returns the number of differing bits between two simhashes,
// used by offline near-duplicate clustering (outside the query path, which
// only needs equality per §4.6).
func HammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}
