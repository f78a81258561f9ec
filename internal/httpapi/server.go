package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/CaseMark/multi-language-processor/internal/config"
	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/service"
	"github.com/CaseMark/multi-language-processor/internal/vault"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// documentStore is the subset of the persistence layer the API needs
// for deletes.
type documentStore interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

type Server struct {
	corpus   *document.Corpus
	queue    *jobs.Queue
	intake   *service.Intake
	sweeper  *service.Sweeper
	store    documentStore
	vault    *vault.Client
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	uiEnabled      bool
	uiStaticDir    string
	maxUploadBytes int64

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

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithSweeper(sweeper *service.Sweeper) Option {
	return func(s *Server) {
		s.sweeper = sweeper
	}
}

func WithDocumentStore(store documentStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

func WithVault(client *vault.Client) Option {
	return func(s *Server) {
		s.vault = client
	}
}

func WithMaxUploadBytes(limit int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = limit
	}
}

func NewServer(corpus *document.Corpus, queue *jobs.Queue, intake *service.Intake, opts ...Option) *Server {
	s := &Server{
		corpus:         corpus,
		queue:          queue,
		intake:         intake,
		uiEnabled:      false,
		maxUploadBytes: 64 << 20,
		mux:            http.NewServeMux(),
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
	s.mux.HandleFunc("/api/documents", s.handleDocuments)
	s.mux.HandleFunc("/api/documents/", s.handleDocumentByID)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
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
