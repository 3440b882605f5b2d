// Package httpapi exposes the proxy over HTTP: an OpenSubtitles-
// compatible subtitle surface, a browser-UI data API, and dashboard
// routes for settings, cache, and batch management.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/larkspur-labs/subproxy/internal/batch"
	"github.com/larkspur-labs/subproxy/internal/batchprofile"
	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/internal/catalog"
	"github.com/larkspur-labs/subproxy/internal/config"
	"github.com/larkspur-labs/subproxy/internal/media"
	"github.com/larkspur-labs/subproxy/internal/orchestrator"
	"github.com/larkspur-labs/subproxy/internal/persistence"
	"github.com/larkspur-labs/subproxy/internal/progress"
	"github.com/larkspur-labs/subproxy/internal/vfs"
)

// Server wires every composed component into the route table. Every
// field is optional except mux; a handler that needs a dependency it
// wasn't given returns 501, following the repo-wide
// "feature not configured" convention. The exception is a handler
// that reads the target language through targetLanguageTag without a
// settings store: that yields NotConfigured, which maps to 400.
type Server struct {
	settings *config.Store
	catalog  catalog.Client
	sub      *orchestrator.Orchestrator
	batchOrc *batch.Orchestrator
	history  *persistence.SQLiteStore
	tree     *vfs.Tree
	demuxer  media.Demuxer
	registry *progress.Registry
	cache    *cache.Store
	profiles *batchprofile.Store

	reloginCronExpr string

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithSettingsStore(store *config.Store) Option { return func(s *Server) { s.settings = store } }
func WithCatalog(c catalog.Client) Option          { return func(s *Server) { s.catalog = c } }
func WithOrchestrator(o *orchestrator.Orchestrator) Option {
	return func(s *Server) { s.sub = o }
}
func WithBatchOrchestrator(b *batch.Orchestrator) Option {
	return func(s *Server) { s.batchOrc = b }
}
func WithHistory(h *persistence.SQLiteStore) Option { return func(s *Server) { s.history = h } }
func WithVFS(t *vfs.Tree) Option                    { return func(s *Server) { s.tree = t } }
func WithDemuxer(d media.Demuxer) Option            { return func(s *Server) { s.demuxer = d } }
func WithRegistry(r *progress.Registry) Option      { return func(s *Server) { s.registry = r } }
func WithCache(c *cache.Store) Option               { return func(s *Server) { s.cache = c } }
func WithBatchProfiles(p *batchprofile.Store) Option {
	return func(s *Server) { s.profiles = p }
}
func WithReloginSchedule(cronExpr string) Option {
	return func(s *Server) { s.reloginCronExpr = cronExpr }
}
func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{mux: http.NewServeMux()}
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
	// OpenSubtitles-compatible subset.
	s.mux.HandleFunc("POST /api/v1/login", s.handleCatalogLogin)
	s.mux.HandleFunc("DELETE /api/v1/logout", s.handleCatalogLogout)
	s.mux.HandleFunc("GET /api/v1/subtitles", s.handleSearchSubtitles)
	s.mux.HandleFunc("POST /api/v1/download", s.handleRequestDownloadLink)
	s.mux.HandleFunc("GET /api/v1/download/{fileId}/{fileName}", s.handleProxyDownload)
	s.mux.HandleFunc("POST /api/v1/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/v1/infos/{kind}", s.handleInfos)

	// Settings.
	s.mux.HandleFunc("GET /api/settings", s.handleSettings)
	s.mux.HandleFunc("POST /api/settings", s.handleSettings)

	// Browser-UI data API.
	s.mux.HandleFunc("GET /api/browse", s.handleBrowseList)
	s.mux.HandleFunc("GET /api/browse/search", s.handleBrowseSearch)
	s.mux.HandleFunc("POST /api/browse/search-manual", s.handleBrowseSearch)
	s.mux.HandleFunc("POST /api/browse/translate", s.handleBrowseTranslate)
	s.mux.HandleFunc("POST /api/browse/translate-local", s.handleBrowseTranslate)
	s.mux.HandleFunc("POST /api/browse/translate-embedded", s.handleBrowseTranslateEmbedded)
	s.mux.HandleFunc("GET /api/browse/embedded-tracks", s.handleEmbeddedTracks)
	s.mux.HandleFunc("GET /api/browse/progress", s.handleBrowseProgress)
	s.mux.HandleFunc("POST /api/browse/batch-analyze", s.handleBatchAnalyze)
	s.mux.HandleFunc("POST /api/browse/batch-start", s.handleBatchStart)
	s.mux.HandleFunc("GET /api/browse/batch-progress", s.handleBatchProgress)
	s.mux.HandleFunc("POST /api/browse/batch-cancel", s.handleBatchCancel)
	s.mux.HandleFunc("GET /api/browse/settings", s.handleSettings)
	s.mux.HandleFunc("POST /api/browse/settings", s.handleSettings)
	s.mux.HandleFunc("GET /api/browse/mode", s.handleBrowseMode)
	s.mux.HandleFunc("POST /api/browse/mode", s.handleBrowseMode)
	s.mux.HandleFunc("POST /api/browse/test", s.handleBrowseTest)
	s.mux.HandleFunc("GET /api/browse/discover", s.handleBrowseDiscover)

	// Dashboards / cache management.
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /cache", s.handleCacheList)
	s.mux.HandleFunc("DELETE /cache", s.handleCacheClear)
	s.mux.HandleFunc("DELETE /cache/{fileId}", s.handleCacheEvict)
	s.mux.HandleFunc("GET /language", s.handleGetLanguage)
	s.mux.HandleFunc("POST /language", s.handleSetLanguage)

	s.mux.HandleFunc("POST /api/auth/login", s.handleCatalogLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleCatalogLogout)
	s.mux.HandleFunc("GET /api/batch/history", s.handleBatchHistory)
	s.mux.HandleFunc("GET /api/batch/profiles", s.handleListBatchProfiles)
	s.mux.HandleFunc("POST /api/batch/profiles", s.handleSaveBatchProfile)

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
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
