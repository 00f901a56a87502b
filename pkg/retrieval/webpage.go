package retrieval

import "encoding/json"

// RetrievedWebpage is what phase 2 hands back for a single WebsitePointer:
// enough to render a result row, never the full crawled document.
type RetrievedWebpage struct {
	Title     string          `json:"title"`
	Snippet   string          `json:"snippet"`
	URL       string          `json:"url"`
	Favicon   string          `json:"favicon,omitempty"`
	SchemaOrg json.RawMessage `json:"schema_org,omitempty"`
}

// PageRecord is the on-disk shape a document's content is persisted as in a
// kvstore.Store, keyed by both its DocAddress and its URL. It holds the same
// fields as RetrievedWebpage; the DocAddress appears only in the key, not in
// the record, so a URL-keyed lookup (get_webpage) returns the page without
// its originating shard/segment.
type PageRecord struct {
	Title     string          `json:"title"`
	Snippet   string          `json:"snippet"`
	URL       string          `json:"url"`
	Favicon   string          `json:"favicon,omitempty"`
	SchemaOrg json.RawMessage `json:"schema_org,omitempty"`
}

func (p PageRecord) toWebpage() RetrievedWebpage {
	return RetrievedWebpage{
		Title:     p.Title,
		Snippet:   p.Snippet,
		URL:       p.URL,
		Favicon:   p.Favicon,
		SchemaOrg: p.SchemaOrg,
	}
}
