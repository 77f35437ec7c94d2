// Package diaryservice boots the diary HTTP service: store, index, event
// bus, tag runner and API server, with graceful shutdown on SIGINT/SIGTERM.
package diaryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/api"
	"github.com/tsuzuri-app/tsuzuri/internal/auth"
	"github.com/tsuzuri-app/tsuzuri/internal/config"
	"github.com/tsuzuri-app/tsuzuri/internal/diary"
	"github.com/tsuzuri-app/tsuzuri/internal/events"
	"github.com/tsuzuri-app/tsuzuri/internal/factory"
	"github.com/tsuzuri-app/tsuzuri/internal/health"
	"github.com/tsuzuri-app/tsuzuri/internal/index"
	"github.com/tsuzuri-app/tsuzuri/internal/platform/logger"
	"github.com/tsuzuri-app/tsuzuri/internal/store"
	"github.com/tsuzuri-app/tsuzuri/internal/tags"
)

// Run starts the diary service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("diary-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	// Store and derived index
	st, err := factory.NewStore(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}
	defer func() { _ = st.Close() }()

	idx := index.New()
	bus := events.NewBus(cfg.EventBuffer)

	// Tag generation (optional)
	gen, err := factory.NewTagProvider(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Tag provider unavailable")
		return err
	}
	var runner *tags.Runner
	var sched diary.TagScheduler
	if gen != nil {
		runner = tags.NewRunner(gen, log,
			time.Duration(cfg.TagTimeoutSecs)*time.Second, cfg.TagMaxAttempts)
		sched = runner
	}

	writer := diary.NewWriter(st, idx, bus, sched, log)
	if runner != nil {
		runner.Bind(writer)
	}

	// Build the index before serving; the reader keeps the same warm-up as
	// its ready hook so no query can ever observe the empty pre-build state.
	var buildOnce sync.Once
	var buildErr error
	ready := func(ctx context.Context) error {
		buildOnce.Do(func() { buildErr = writer.Rebuild(ctx) })
		return buildErr
	}
	if err := ready(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("Initial index build failed")
		return err
	}
	reader := diary.NewReader(st, idx, ready, log)

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("tag_provider", cfg.TagProvider).
		Int("http_port", cfg.HTTPPort).
		Int("indexed_entries", idx.Len()).
		Msg("Diary service starting")

	// Mirror every change event into the debug log.
	logChangeEvents(ctx, bus, log)

	router := api.NewRouter(api.NewEntryHandler(writer, reader, log), auth.FromKey(cfg.APIKey))

	// Start health checkers and bind service health
	svcHealth := startHealthCheckers(ctx, cfg, log, st, gen)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	shutdown := func() error {
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(ctxShutdown)

		if runner != nil {
			runner.Stop(5 * time.Second)
		}
		bus.Close()
		writer.Close()
		return err
	}

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		if err := shutdown(); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		_ = shutdown()
		return err
	}
}

// logChangeEvents subscribes to the bus and traces every mutation until
// ctx ends. Purely observational; drops under load are fine.
func logChangeEvents(ctx context.Context, bus *events.Bus, log zerolog.Logger) {
	ch, cancel := bus.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				log.Debug().
					Str("type", string(ev.Type)).
					Str("entry_id", ev.EntryID).
					Strs("photos_added", ev.AddedPhotoIDs).
					Strs("photos_removed", ev.RemovedPhotoIDs).
					Msg("entry changed")
			}
		}
	}()
}

// startHealthCheckers starts component checkers and the service-level
// aggregator, then binds both into the health endpoint. The store gates
// service health; the tag provider is reported but never gates, entries
// must keep saving while it is down.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, gen tags.Generator) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSecs) * time.Second
	interval := time.Duration(cfg.HealthIntervalSecs) * time.Second

	storeChecker := store.NewHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)

	if _, ok := gen.(health.HealthPinger); ok {
		genChecker := tags.NewProviderHealthChecker(gen, log, probeTimeout)
		go genChecker.Start(ctx, interval)
		svcHealth.AddInformational(genChecker)
	}

	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	api.BindComponentHealth(svcHealth.Components)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in
// seconds, interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSecs int) int {
	timeout := healthIntervalSecs * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Checkers start unhealthy and need time for their first probe cycle.
	timeoutSecs := calculateStartupHealthTimeout(cfg.HealthIntervalSecs)
	deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSecs)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
