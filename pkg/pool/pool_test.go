package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/ranking"
)

func withConfig(t *testing.T, cfg Config) {
	t.Helper()
	orig := globalConfig
	Configure(cfg)
	t.Cleanup(func() { Configure(orig) })
}

func TestConfigureAndIsEnabled(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 1000})
	assert.True(t, IsEnabled())

	Configure(Config{Enabled: false, MaxCap: 1000})
	assert.False(t, IsEnabled())
}

func TestGetWebsiteSliceReturnsEmptySlice(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 1000})

	s := GetWebsiteSlice()
	assert.Len(t, s, 0)
	s = append(s, &ranking.Website{Address: docaddr.DocAddress{DocID: 1}})
	assert.Len(t, s, 1)
}

func TestPutWebsiteSliceClearsReferencesBeforePooling(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 1000})

	s := GetWebsiteSlice()
	s = append(s, &ranking.Website{Address: docaddr.DocAddress{DocID: 1}}, &ranking.Website{Address: docaddr.DocAddress{DocID: 2}})
	full := s[:2]
	PutWebsiteSlice(s)

	reused := GetWebsiteSlice()
	assert.Len(t, reused, 0)
	assert.GreaterOrEqual(t, cap(reused), 2)
	_ = full // original pointers remain valid for any other holder; only the slice header was reused
}

func TestPutWebsiteSliceDropsOversizedSlice(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 2})

	s := make([]*ranking.Website, 0, 10)
	PutWebsiteSlice(s) // must not panic, and must not be handed back out larger than MaxCap implies
}

func TestWebsiteSlicePoolDisabledAllocatesFresh(t *testing.T) {
	withConfig(t, Config{Enabled: false, MaxCap: 1000})

	s := GetWebsiteSlice()
	assert.Len(t, s, 0)
	PutWebsiteSlice(s) // no-op, must not panic
}

func TestGetByteBufferIsReset(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 1000})

	buf := GetByteBuffer()
	buf.WriteString("leftover")
	PutByteBuffer(buf)

	again := GetByteBuffer()
	assert.Equal(t, 0, again.Len())
}

func TestPutByteBufferDropsHugeBuffer(t *testing.T) {
	withConfig(t, Config{Enabled: true, MaxCap: 1})

	huge := new(bytes.Buffer)
	huge.Grow(1 << 20)
	huge.WriteString("x")
	PutByteBuffer(huge) // must not panic regardless of whether it's retained

	fresh := GetByteBuffer()
	assert.Equal(t, 0, fresh.Len())
}

func TestByteBufferPoolDisabledAllocatesFresh(t *testing.T) {
	withConfig(t, Config{Enabled: false, MaxCap: 1000})

	buf := GetByteBuffer()
	buf.WriteString("x")
	PutByteBuffer(buf) // no-op, must not panic
}
