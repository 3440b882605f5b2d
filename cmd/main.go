package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/robfig/cron/v3"

	"github.com/larkspur-labs/subproxy/internal/batch"
	"github.com/larkspur-labs/subproxy/internal/batchprofile"
	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/internal/catalog"
	"github.com/larkspur-labs/subproxy/internal/config"
	"github.com/larkspur-labs/subproxy/internal/httpapi"
	"github.com/larkspur-labs/subproxy/internal/llmclient"
	"github.com/larkspur-labs/subproxy/internal/media"
	"github.com/larkspur-labs/subproxy/internal/orchestrator"
	"github.com/larkspur-labs/subproxy/internal/persistence"
	"github.com/larkspur-labs/subproxy/internal/progress"
	"github.com/larkspur-labs/subproxy/internal/translate"
	"github.com/larkspur-labs/subproxy/internal/vfs"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Only emit the interactive startup banner when attached to a
	// real terminal; under a service manager or in a container, plain
	// log lines are easier to grep.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		log.Printf("subproxy listening on %s (dashboard: %v)", cfg.HTTP.Addr, cfg.HTTP.UIEnabled)
	}

	_, catalogClient, _, _, history, _, srv, err := build(*cfg)
	if err != nil {
		log.Fatal("Failed to wire components:", err)
	}
	defer history.Close()

	cronEng := cron.New()
	sched := &catalogRelogin{client: catalogClient, cronExpr: cfg.Translate.ReloginCronExpr, cron: cronEng}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, *cfg, sched, cronEng, srv); err != nil {
		log.Fatal("server exited with error:", err)
	}
}

// build wires every component the HTTP adapter depends on. It mirrors
// the shape of service.NewRunnableTransService in spirit: configure
// once, hand the finished graph to whatever drives it.
func build(cfg config.Settings) (
	*config.Store,
	catalog.Client,
	*orchestrator.Orchestrator,
	*batch.Orchestrator,
	*persistence.SQLiteStore,
	*batchprofile.Store,
	*httpapi.Server,
	error,
) {
	settingsPath := filepath.Join(cfg.CacheDir, "settings.json")
	settings, err := config.LoadStore(settingsPath, cfg)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}

	catalogClient := catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.Username, cfg.Catalog.Password)

	cacheStore := cache.NewStore(filepath.Join(cfg.CacheDir, "cache"))
	gate := progress.NewGate()
	registry := progress.NewRegistry()

	llmClient, err := llmclient.NewClient(llmclient.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}

	engine := translate.NewEngine(llmClient, cfg.Translate)
	sub := orchestrator.New(catalogClient, cacheStore, engine, gate, registry)

	tree := vfs.NewTree(browseSources(cfg.VFS))
	demuxer := media.NewFFDemuxer()
	batchOrc := batch.New(tree, demuxer, sub)

	history, err := persistence.NewSQLiteStore(filepath.Join(cfg.CacheDir, "subproxy.db"))
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}

	profiles := batchprofile.NewStore(filepath.Join(cfg.CacheDir, "batches"))

	srv := httpapi.NewServer(
		httpapi.WithSettingsStore(settings),
		httpapi.WithCatalog(catalogClient),
		httpapi.WithOrchestrator(sub),
		httpapi.WithBatchOrchestrator(batchOrc),
		httpapi.WithHistory(history),
		httpapi.WithVFS(tree),
		httpapi.WithDemuxer(demuxer),
		httpapi.WithRegistry(registry),
		httpapi.WithCache(cacheStore),
		httpapi.WithBatchProfiles(profiles),
		httpapi.WithReloginSchedule(cfg.Translate.ReloginCronExpr),
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
	)

	return settings, catalogClient, sub, batchOrc, history, profiles, srv, nil
}

// browseSources turns the configured local roots plus any
// already-mounted SMB shares discovered on the host into the VFS
// source list.
func browseSources(vfsCfg config.VFSConfig) []vfs.Source {
	sources := make([]vfs.Source, 0, len(vfsCfg.LocalRoots))
	for i, root := range vfsCfg.LocalRoots {
		sources = append(sources, vfs.Source{
			ID:   "local-" + strconv.Itoa(i),
			Name: filepath.Base(root),
			Root: root,
			Kind: vfs.Local,
		})
	}
	return append(sources, vfs.DiscoverMountedSMBShares()...)
}

// catalogRelogin periodically refreshes the catalog session so a long
// -running proxy never serves a 401 from an expired bearer token.
type catalogRelogin struct {
	client   catalog.Client
	cronExpr string
	cron     *cron.Cron
}

func (r *catalogRelogin) Schedule(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.cronExpr, func() {
		if err := r.client.Login(); err != nil {
			log.Printf("catalog relogin failed: %v", err)
		}
	})
	return err
}

// cronEngine is the subset of *cron.Cron that runWithComponents
// drives, so tests can swap in a fake.
type cronEngine interface {
	Start()
	Stop() context.Context
}

// httpServer is the subset of *httpapi.Server that runWithComponents
// drives, so tests can swap in a fake.
type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

// scheduler registers the recurring jobs a running proxy needs; only
// the catalog relogin today.
type scheduler interface {
	Schedule(ctx context.Context) error
}

// runWithComponents starts the cron engine and the HTTP listener and
// blocks until ctx is cancelled, then shuts both down gracefully.
func runWithComponents(ctx context.Context, cfg config.Settings, sched scheduler, cronEng cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronEng.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		cronEng.Stop()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
