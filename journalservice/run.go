// Package journalservice composes the journal backend: HTTP API, eviction
// sweeper and report scheduler in one process.
package journalservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apihttp "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/http"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/chat"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/config"
	emb "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/embeddings"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/factory"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/genai"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/health"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/logger"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/report"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/search"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/services"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/sweeper"
)

// Run starts the journal service and blocks until shutdown or error.
func Run() error {
	log := logger.New("journal-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("genai_model", cfg.GenAIModel).
		Bool("search_enabled", cfg.SearchEnabled).
		Msg("Journal service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Start health checkers before routing so /health reflects real status
	svcHealth := startHealthCheckers(ctx, cfg, log, deps)

	router := buildRouter(deps, cfg)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// Background loops: retention sweep and report scheduling.
	go func() {
		_ = sweeper.New(deps.chatMgr, cfg.SweepInterval, log).Run(ctx)
	}()
	go func() {
		_ = report.NewScheduler(deps.store, deps.reportEngine, cfg.SchedulerInterval, log).Run(ctx)
	}()

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type dependencies struct {
	store        store.Store
	generator    *genai.Client
	embedder     emb.Provider
	searcher     search.Searcher
	chatMgr      *chat.Manager
	reportEngine *report.Engine
	svcHealth    *health.ServiceHealthChecker
	log          zerolog.Logger
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	searcher, err := factory.NewSearcher(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Search adapter unavailable")
		return nil, err
	}

	var embedder emb.Provider
	if cfg.SearchEnabled {
		embedder = factory.NewEmbeddingProvider(ctx, cfg, log)
		if embedder == nil {
			return nil, fmt.Errorf("embedding provider not configured")
		}
	}

	generator := factory.NewGenerator(cfg)

	return &dependencies{
		store:        st,
		generator:    generator,
		embedder:     embedder,
		searcher:     searcher,
		chatMgr:      chat.NewManager(st, generator, cfg.RetentionTTL, cfg.ContextWindowBudget, log),
		reportEngine: report.NewEngine(st, generator, cfg.GenerationRetryLimit, log),
		log:          log,
	}, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(deps *dependencies, cfg *config.Config) *mux.Router {
	h := apihttp.Handlers{
		Users:    apihttp.NewUserHandler(services.NewUserService(deps.store, cfg.DefaultReportFrequency)),
		Journals: apihttp.NewJournalHandler(services.NewJournalService(deps.store)),
		Chat:     apihttp.NewChatHandler(deps.chatMgr),
		Reports:  apihttp.NewReportHandler(deps.reportEngine, deps.store),
		Health:   apihttp.NewHealthHandler(deps.svcHealth),
	}
	if deps.searcher != nil && deps.embedder != nil {
		h.Search = apihttp.NewSearchHandler(deps.embedder, deps.searcher, cfg.SearchAlpha)
	}
	return apihttp.NewRouter(h)
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	if pinger, ok := deps.store.(health.HealthPinger); ok {
		c := health.NewPingChecker("store", pinger, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}

	genaiChecker := health.NewPingChecker("genai", deps.generator, log, probeTimeout)
	go genaiChecker.Start(ctx, interval)
	checkers = append(checkers, genaiChecker)

	if deps.searcher != nil {
		if pinger, ok := deps.searcher.(health.HealthPinger); ok {
			c := health.NewPingChecker("search", pinger, log, probeTimeout)
			go c.Start(ctx, interval)
			checkers = append(checkers, c)
		}
	}
	if deps.embedder != nil {
		c := emb.NewProviderHealthChecker(deps.embedder, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	deps.svcHealth = svcHealth
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

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Health checkers start as unhealthy and need time to run their first probe
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
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
