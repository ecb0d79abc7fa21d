// Package api serves a knowledge graph over HTTP: the dataset, entity
// mutations, a change stream and a rendered preview page.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/source"
)

// ErrUnauthorized is returned for requests without a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// SnapshotFunc renders ds as PNG to w.
type SnapshotFunc func(ctx context.Context, ds model.Dataset, w io.Writer) error

// Server is the HTTP front of a Source.
type Server struct {
	src      source.Source
	token    string
	hub      *ChangeHub
	snapshot SnapshotFunc
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" (or ?token=) on every
// request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithHub sets the hub used for the event stream.
func WithHub(h *ChangeHub) Option {
	return func(s *Server) { s.hub = h }
}

// WithSnapshot enables /api/render.png and the preview page.
func WithSnapshot(fn SnapshotFunc) Option {
	return func(s *Server) { s.snapshot = fn }
}

// NewServer creates a server for src.
func NewServer(src source.Source, opts ...Option) *Server {
	s := &Server{src: src, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewChangeHub(nil)
	}

	s.mux.HandleFunc("GET /api/graph", s.handleGraph)
	s.mux.HandleFunc("PATCH /api/entities/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/entities/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/entities/delete", s.handleDeleteMany)
	s.mux.Handle("GET /api/events", s.hub)
	if s.snapshot != nil {
		s.mux.HandleFunc("GET /api/render.png", s.handleRender)
		s.mux.HandleFunc("GET /{$}", s.handleIndex)
	}
	return s
}

// Hub returns the change hub.
func (s *Server) Hub() *ChangeHub { return s.hub }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, ErrUnauthorized)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		got = strings.TrimPrefix(h, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	ds, err := s.src.Load(r.Context())
	if err != nil {
		s.fail(w, "load graph", err)
		return
	}
	if ds.Entities == nil {
		ds.Entities = []model.Entity{}
	}
	if ds.Relations == nil {
		ds.Relations = []model.Relation{}
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.EntityPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding patch: %w", err))
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ent, err := s.src.UpdateEntity(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, "update entity", err)
		return
	}
	s.hub.Notify()
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.src.DeleteEntity(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, "delete entity", err)
		return
	}
	s.hub.Notify()
	w.WriteHeader(http.StatusNoContent)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	n, err := s.src.DeleteEntities(r.Context(), req.IDs)
	if err != nil {
		s.fail(w, "delete entities", err)
		return
	}
	if n > 0 {
		s.hub.Notify()
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	ds, _, err := source.LoadOrFallback(r.Context(), s.src)
	if err != nil {
		log.Printf("api: render: %v", err)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.snapshot(r.Context(), ds, w); err != nil {
		log.Printf("api: render: %v", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	token := ""
	if s.token != "" {
		token = "?token=" + url.QueryEscape(r.URL.Query().Get("token"))
	}
	fmt.Fprintf(w, indexPage, token, token)
}

// fail maps source errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, source.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, source.ErrReadOnly):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		log.Printf("api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// indexPage shows the rendered graph and refreshes it on change events.
const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>kgview</title>
<style>body{margin:0;background:#1e1e2e}img{display:block;margin:auto;max-width:100vw}</style>
</head>
<body>
<img id="graph" src="/api/render.png%[1]s" alt="graph">
<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function connect() {
    var es = new EventSource('/api/events%[2]s');
    es.addEventListener('connected', function() { reconnectDelay = 1000; });
    es.addEventListener('changed', function() {
      var img = document.getElementById('graph');
      var base = img.src.split(/[?&]t=/)[0];
      img.src = base + (base.indexOf('?') >= 0 ? '&' : '?') + 't=' + Date.now();
    });
    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }

  connect();
})();
</script>
</body>
</html>
`
