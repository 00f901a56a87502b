package retrieval

import (
	"encoding/json"
	"fmt"

	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/kvstore"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/text"
)

// Store reconstitutes RetrievedWebpages from a kvstore.Store. Every page is
// written under two keys — its DocAddress (the phase-1/phase-2 join key)
// and its URL (the get_webpage entry point) — so either lookup path hits
// the same compressed blob without a secondary index.
type Store struct {
	kv *kvstore.Store
}

// Open opens (or creates) the retrieval store rooted at dir.
func Open(dir string) (*Store, error) {
	kv, err := kvstore.Open(dir)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.KindInternalIndex, "open retrieval store", err)
	}
	return &Store{kv: kv}, nil
}

func docAddressKey(addr docaddr.DocAddress) string {
	return fmt.Sprintf("doc:%d:%d", addr.SegmentOrdinal, addr.DocID)
}

func urlKey(url string) string {
	return "url:" + url
}

// Put records page under both its DocAddress and its URL. Title and
// snippet are sanitized first so a control character or unpaired
// surrogate in crawled text can't corrupt later JSON encoding or display.
func (s *Store) Put(addr docaddr.DocAddress, page PageRecord) error {
	page.Title = text.Sanitize(page.Title)
	page.Snippet = text.Sanitize(page.Snippet)
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("retrieval: marshal page record: %w", err)
	}
	s.kv.Put(docAddressKey(addr), raw)
	if page.URL != "" {
		s.kv.Put(urlKey(page.URL), raw)
	}
	return nil
}

// Commit flushes buffered writes into a new immutable segment.
func (s *Store) Commit() (string, error) {
	id, err := s.kv.Commit()
	if err != nil {
		return "", searcherr.Wrap(searcherr.KindInternalIndex, "commit retrieval segment", err)
	}
	return id, nil
}

// Close releases the underlying kvstore.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) lookup(key string) (RetrievedWebpage, bool, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return RetrievedWebpage{}, false, searcherr.Wrap(searcherr.KindInternalIndex, "retrieval lookup", err)
	}
	if !ok {
		return RetrievedWebpage{}, false, nil
	}
	var rec PageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return RetrievedWebpage{}, false, searcherr.Wrap(searcherr.KindInternalIndex, "decode page record", err)
	}
	return rec.toWebpage(), true, nil
}

// RetrieveByPointer reconstitutes the RetrievedWebpage a single
// WebsitePointer refers to. query is used to tailor the returned snippet
// (term highlighting); it never affects which document is returned.
func (s *Store) RetrieveByPointer(ptr WebsitePointer, query string) (RetrievedWebpage, bool, error) {
	page, ok, err := s.lookup(docAddressKey(ptr.Address))
	if err != nil || !ok {
		return RetrievedWebpage{}, ok, err
	}
	page.Snippet = HighlightQueryTerms(page.Snippet, query)
	return page, true, nil
}

// RetrieveWebpages is the shard-local half of retrieve_webpages: it
// materializes a RetrievedWebpage for every pointer it's handed, skipping
// (not erroring on) pointers this shard has no record for — a shard is
// only ever given pointers the aggregator already routed to it, but a
// stale or since-merged-away segment should degrade gracefully rather than
// fail the whole request.
func (s *Store) RetrieveWebpages(pointers []WebsitePointer, query string) ([]RetrievedWebpage, error) {
	out := make([]RetrievedWebpage, 0, len(pointers))
	for _, ptr := range pointers {
		page, ok, err := s.RetrieveByPointer(ptr, query)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, page)
	}
	return out, nil
}

// GetWebpage materializes a single RetrievedWebpage by URL, the entry
// point behind the get_webpage RPC.
func (s *Store) GetWebpage(url string) (RetrievedWebpage, bool, error) {
	return s.lookup(urlKey(url))
}
