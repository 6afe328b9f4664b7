// Package httpapi exposes the explain pipeline over HTTP: quick and
// streamed deep explanations, plus profile, history, settings, and
// credential management.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lingualens/lingualens/internal/config"
	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/history"
	"github.com/lingualens/lingualens/internal/orchestrator"
	"github.com/lingualens/lingualens/internal/precompute"
	"github.com/lingualens/lingualens/internal/sources"
)

type explainer interface {
	ExplainQuick(ctx context.Context, req explain.Request, opts ...orchestrator.CallOption) orchestrator.Outcome
	ExplainDeep(ctx context.Context, req explain.Request, opts ...orchestrator.CallOption) orchestrator.Outcome
	Supersede(id string)
}

type profileStore interface {
	List() []explain.Profile
	Save(ctx context.Context, p explain.Profile) (explain.Profile, error)
	Delete(ctx context.Context, id string) error
}

type historyStore interface {
	List(ctx context.Context) ([]history.Entry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type credentialStore interface {
	StoreCredentials(apiKey string, baseURL string)
	Configured() bool
}

type runtimeSettingsStore interface {
	GetRuntimeSettings() config.RuntimeSettings
	UpdateRuntimeSettings(ctx context.Context, next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type collectionStore interface {
	Ingest(ctx context.Context, collection string, docs []sources.Document) (int, error)
}

type Server struct {
	explainer   explainer
	profiles    profileStore
	history     historyStore
	credentials credentialStore
	settings    runtimeSettingsStore
	collections collectionStore
	queue       *precompute.Queue

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithHistoryStore(store historyStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

func WithPrecomputeQueue(queue *precompute.Queue) Option {
	return func(s *Server) {
		s.queue = queue
	}
}

func WithCollectionStore(store collectionStore) Option {
	return func(s *Server) {
		s.collections = store
	}
}

func NewServer(exp explainer, profiles profileStore, credentials credentialStore, opts ...Option) *Server {
	s := &Server{
		explainer:   exp,
		profiles:    profiles,
		credentials: credentials,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/explain", s.handleExplainQuick)
	s.mux.HandleFunc("/api/explain/deep", s.handleExplainDeep)
	s.mux.HandleFunc("/api/credentials", s.handleCredentials)
	s.mux.HandleFunc("/api/profiles", s.handleProfiles)
	s.mux.HandleFunc("/api/profiles/", s.handleProfileByID)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/history/", s.handleHistoryByID)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/collections", s.handleCollections)
	s.mux.HandleFunc("/api/precompute/jobs", s.handleWarmJobs)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
