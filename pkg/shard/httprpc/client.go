package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/shard"
)

// Client is the network-transport side of shard.RPC: every call is one
// HTTP request against a shard's httprpc.Server. Connection-level errors
// (the only kind §5's fan-out retries) surface as searcherr.KindShardUnreachable.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Client with a per-request timeout, the same
// per-attempt deadline §5 describes for fan-out RPCs.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: timeout}}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httprpc: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("httprpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return searcherr.Wrap(searcherr.KindShardUnreachable, "shard request failed: "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return searcherr.Wrap(searcherr.KindSearchFailed, errBody.Error, nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httprpc: decode response: %w", err)
	}
	return nil
}

func (c *Client) SearchInitial(ctx context.Context, q shard.SearchQuery) (shard.InitialSearchResultShard, error) {
	var out shard.InitialSearchResultShard
	err := c.postJSON(ctx, "/search_initial", q, &out)
	return out, err
}

func (c *Client) RetrieveWebpages(ctx context.Context, pointers []retrieval.WebsitePointer, query string) ([]retrieval.RetrievedWebpage, error) {
	body := struct {
		Pointers []retrieval.WebsitePointer `json:"pointers"`
		Query    string                     `json:"query"`
	}{Pointers: pointers, Query: query}

	var out struct {
		Pages []retrieval.RetrievedWebpage `json:"pages"`
	}
	err := c.postJSON(ctx, "/retrieve_webpages", body, &out)
	return out.Pages, err
}

func (c *Client) GetWebpage(ctx context.Context, pageURL string) (retrieval.RetrievedWebpage, error) {
	var out retrieval.RetrievedWebpage
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/get_webpage?url="+url.QueryEscape(pageURL), nil)
	if err != nil {
		return out, fmt.Errorf("httprpc: build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return out, searcherr.Wrap(searcherr.KindShardUnreachable, "shard request failed: /get_webpage", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return out, searcherr.Wrap(searcherr.KindSearchFailed, fmt.Sprintf("get_webpage returned %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("httprpc: decode response: %w", err)
	}
	return out, nil
}

var _ shard.RPC = (*Client)(nil)
