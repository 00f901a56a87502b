// Package httprpc is the network transport for the shard RPC surface
// (§4.9, §6): the same three calls shard.InProcess serves in-memory,
// exposed over HTTP with JSON bodies, following the teacher's own
// mux.HandleFunc + readJSON/writeJSON handler shape (pkg/server/server.go).
package httprpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/scour-engine/scour/pkg/logging"
	"github.com/scour-engine/scour/pkg/pool"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/shard"
)

// MaxRequestBytes bounds a decoded request body, the same defensive limit
// the teacher's readJSON applies via io.LimitReader.
const MaxRequestBytes = 4 << 20

// Server adapts a shard.RPC to HTTP+JSON.
type Server struct {
	RPC    shard.RPC
	Logger *zap.Logger
}

// NewServer wraps rpc for HTTP serving.
func NewServer(rpc shard.RPC) *Server {
	return &Server{RPC: rpc, Logger: logging.L()}
}

// Handler builds the mux routing the three RPCs to their handlers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search_initial", s.handleSearchInitial)
	mux.HandleFunc("/retrieve_webpages", s.handleRetrieveWebpages)
	mux.HandleFunc("/get_webpage", s.handleGetWebpage)
	return mux
}

func (s *Server) readJSON(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, MaxRequestBytes)
	return json.NewDecoder(body).Decode(v)
}

// writeJSON encodes v into a pooled buffer first (rather than streaming
// straight to w) so every response on this hot path reuses one allocation
// instead of growing a fresh one per call, and so Content-Length can be
// set before the body is written.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	buf := pool.GetByteBuffer()
	defer pool.PutByteBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se *searcherr.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case searcherr.KindParse, searcherr.KindEmptyQuery, searcherr.KindUnsupportedPattern:
			status = http.StatusBadRequest
		case searcherr.KindShardUnreachable:
			status = http.StatusBadGateway
		}
	}
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}

func (s *Server) handleSearchInitial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}
	var q shard.SearchQuery
	if err := s.readJSON(r, &q); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	result, err := s.RPC.SearchInitial(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetrieveWebpages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}
	var req struct {
		Pointers []retrieval.WebsitePointer `json:"pointers"`
		Query    string                     `json:"query"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	pages, err := s.RPC.RetrieveWebpages(r.Context(), req.Pointers, req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

func (s *Server) handleGetWebpage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing url parameter"})
		return
	}
	page, err := s.RPC.GetWebpage(r.Context(), url)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}
