package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/docaddr"
)

func TestPutAndRetrieveByPointerRoundTrips(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	addr := docaddr.DocAddress{SegmentOrdinal: 1, DocID: 42}
	require.NoError(t, s.Put(addr, PageRecord{
		Title:   "Example Domain",
		Snippet: "this domain is for use in illustrative examples",
		URL:     "https://example.com/",
	}))

	page, ok, err := s.RetrieveByPointer(WebsitePointer{Address: addr}, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Example Domain", page.Title)
	assert.Equal(t, "https://example.com/", page.URL)
}

func TestPutSanitizesControlCharactersInTitleAndSnippet(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	addr := docaddr.DocAddress{DocID: 1}
	require.NoError(t, s.Put(addr, PageRecord{
		Title:   "Hello\x00World",
		Snippet: "Clean\x01Text",
		URL:     "https://example.com/bad-bytes",
	}))

	page, ok, err := s.RetrieveByPointer(WebsitePointer{Address: addr}, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello World", page.Title)
	assert.Equal(t, "Clean Text", page.Snippet)
}

func TestRetrieveByPointerUnknownAddressIsNotFoundNotError(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.RetrieveByPointer(WebsitePointer{Address: docaddr.DocAddress{DocID: 999}}, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetWebpageLooksUpByURL(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	addr := docaddr.DocAddress{SegmentOrdinal: 2, DocID: 7}
	require.NoError(t, s.Put(addr, PageRecord{Title: "Go", URL: "https://go.dev"}))

	page, ok, err := s.GetWebpage("https://go.dev")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Go", page.Title)
}

func TestGetWebpageMissingURLReturnsFalse(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.GetWebpage("https://nope.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieveWebpagesSkipsUnknownPointersWithoutError(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	known := docaddr.DocAddress{SegmentOrdinal: 0, DocID: 1}
	unknown := docaddr.DocAddress{SegmentOrdinal: 0, DocID: 2}
	require.NoError(t, s.Put(known, PageRecord{Title: "Known", URL: "https://known.example"}))

	pages, err := s.RetrieveWebpages([]WebsitePointer{{Address: known}, {Address: unknown}}, "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Known", pages[0].Title)
}

func TestRetrieveByPointerSurvivesCommitAndReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	addr := docaddr.DocAddress{SegmentOrdinal: 3, DocID: 5}
	require.NoError(t, s.Put(addr, PageRecord{Title: "Persisted", URL: "https://persisted.example"}))
	_, err = s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	page, ok, err := reopened.RetrieveByPointer(WebsitePointer{Address: addr}, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Persisted", page.Title)
}
