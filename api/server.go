// Package api exposes the engine over HTTP: the bearer guarded drain
// trigger, the conflict and rule surfaces, queue stats and health/metrics.
package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/sync"
)

const (
	// EnvAccessControlAllowOrigin for setting access control allow origin.
	// Wildcard (i.e. '*') is not allowed when using 'withCredentials', which
	// is required in order for the JS to use cookies
	EnvAccessControlAllowOrigin = "ACCESS_CONTROL_ALLOW_ORIGIN"

	ECodeAP0101 = e.CodeAP01 + "01"
)

// Drainer runs one drain pass over the sync queue
type Drainer interface {
	Drain(db *gosql.Connection) (sum *sync.Summary, err error)
}

// ServerConfig configuration options for NewServer. Publisher, Indexer and
// MetricsHandler are optional; a nil Publisher or Indexer disables that side
// effect and a nil MetricsHandler leaves /metrics unregistered.
type ServerConfig struct {
	DB             *gosql.Connection
	Drainer        Drainer
	Publisher      sync.EventPublisher
	Indexer        sync.Indexer
	TriggerToken   string
	MetricsHandler http.Handler
}

// Server holds the handler state for the API routes
type Server struct {
	db           *gosql.Connection
	drainer      Drainer
	publisher    sync.EventPublisher
	indexer      sync.Indexer
	triggerToken string
	mux          *http.ServeMux
}

// NewServer returns a server with all routes registered
func NewServer(cfg ServerConfig) (s *Server, err error) {
	if cfg.DB == nil {
		return nil, e.N(ECodeAP0101, "db connection is required")
	}
	if cfg.Drainer == nil {
		return nil, e.N(ECodeAP0101, "drainer is required")
	}
	if cfg.TriggerToken == "" {
		return nil, e.N(ECodeAP0101, "trigger token is required")
	}

	s = &Server{
		db:           cfg.DB,
		drainer:      cfg.Drainer,
		publisher:    cfg.Publisher,
		indexer:      cfg.Indexer,
		triggerToken: cfg.TriggerToken,
		mux:          http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /sync/run", s.handleTrigger)

	s.mux.HandleFunc("GET /sync/conflicts", s.handleConflictList)
	s.mux.HandleFunc("GET /sync/conflicts/{id}", s.handleConflictGet)
	s.mux.HandleFunc("POST /sync/conflicts/{id}/resolve", s.handleConflictResolve)

	s.mux.HandleFunc("GET /sync/rules", s.handleRuleList)
	s.mux.HandleFunc("POST /sync/rules", s.handleRuleCreate)
	s.mux.HandleFunc("PUT /sync/rules/{id}", s.handleRuleUpdate)
	s.mux.HandleFunc("DELETE /sync/rules/{id}", s.handleRuleDelete)
	s.mux.HandleFunc("POST /sync/rules/reorder", s.handleRuleReorder)

	s.mux.HandleFunc("GET /sync/queue/stats", s.handleQueueStats)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if cfg.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	return s, nil
}

// Handler returns the mux wrapped in the CORS and GZIP middleware
func (s *Server) Handler() http.Handler {
	return CORS(GZIP(s.mux))
}

// handleHealthz reports liveness and DB reachability
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DB.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CORS add CORS headers to the response
func CORS(next http.Handler) http.Handler {
	// Get the access control allow origin
	accessControlAllowOrigin := os.Getenv(EnvAccessControlAllowOrigin)
	if accessControlAllowOrigin == "" {
		// If not set, then use the wildcard. Note, 'withCredentials' will
		// not work in JS with the wild card, meaning this default value
		// will not work with cookies
		accessControlAllowOrigin = "*"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = accessControlAllowOrigin
		}
		w.Header().Add("Access-Control-Allow-Origin", origin)
		w.Header().Add("Access-Control-Allow-Credentials", "true")
		w.Header().Add("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Add("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")

		// Check the incoming Content-Type header and treat
		// text/plain as application/json
		if strings.Contains(r.Header.Get("Content-Type"), "text/plain") {
			r.Header.Set("Content-Type", "application/json")
		}

		next.ServeHTTP(w, r)
	})
}

type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// GZIP compress the response
func GZIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		gzr := gzipResponseWriter{Writer: gz, ResponseWriter: w}
		next.ServeHTTP(gzr, r)
	})
}
