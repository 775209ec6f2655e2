package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db"
	"github.com/opencivica/legisync/pkg/logging"
	"github.com/opencivica/legisync/pkg/redis"
	"github.com/opencivica/legisync/pkg/scheduler"
	"github.com/opencivica/legisync/pkg/source"
	"github.com/opencivica/legisync/pkg/stats"
	"github.com/opencivica/legisync/pkg/syncer"
	"github.com/opencivica/legisync/pkg/utils"
)

// App is the sync daemon: connectors, orchestrator, calculator and
// scheduler wired over one canonical store, plus a small ops server.
type App struct {
	Logger       *zap.Logger
	Store        *db.Store
	RedisClient  *redis.Client
	Orchestrator *syncer.Orchestrator
	Calculator   *stats.Calculator
	Scheduler    *scheduler.Scheduler
	Server       *http.Server
}

// Initialize builds the daemon from environment configuration.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	store, err := db.New(ctx, logger, "daemon")
	if err != nil {
		logger.Fatal("Unable to initialize canonical store", zap.Error(err))
	}

	// The redis run lock is optional: a single-daemon deployment is safe
	// with the local flag alone.
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize redis - cross-process run lock disabled", zap.Error(err))
			redisClient = nil
		}
	} else {
		logger.Info("Redis disabled - cross-process run lock not available")
	}

	cfg := source.DefaultConfig()
	calculator := stats.NewCalculator(logger, store)
	orchestrator := syncer.NewOrchestrator(logger, store, calculator, cfg.Chamber,
		source.NewRoster(logger, store, cfg),
		source.NewBallots(logger, store, cfg),
		source.NewAmendments(logger, store, cfg),
		source.NewInterventions(logger, store, cfg),
		source.NewLobbying(logger, store, cfg),
	)

	var locker scheduler.Locker
	if redisClient != nil {
		locker = redisClient
	}

	app := &App{
		Logger:       logger,
		Store:        store,
		RedisClient:  redisClient,
		Orchestrator: orchestrator,
		Calculator:   calculator,
		Scheduler:    scheduler.New(logger, orchestrator, locker, scheduler.DefaultJobs()),
	}
	app.SetupServer()
	return app
}

// SetupServer sets up the ops HTTP server.
func (a *App) SetupServer() {
	addr := utils.Env("ADDR", ":3010")

	r := mux.NewRouter()
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if a.Ready(req.Context()) {
			w.WriteHeader(200)
		} else {
			w.WriteHeader(503)
		}
	})).Methods("GET")
	r.Handle("/status", http.HandlerFunc(a.handleStatus)).Methods("GET")

	a.Server = &http.Server{Addr: addr, Handler: r}
}

// handleStatus serves the freshness report: per-source stored sync state
// plus the live status of any in-flight run.
func (a *App) handleStatus(w http.ResponseWriter, req *http.Request) {
	states, err := a.Store.ListSyncStates(req.Context())
	if err != nil {
		a.Logger.Error("Failed to load sync states", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"sources": states,
		"live":    a.Orchestrator.States(),
	})
}

// Ready reports whether the canonical store answers.
func (a *App) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := a.Store.ListSyncStates(ctx)
	return err == nil
}

// Start runs the scheduler and ops server until the context is cancelled,
// then shuts both down.
func (a *App) Start(ctx context.Context) {
	if err := a.Scheduler.Start(ctx); err != nil {
		a.Logger.Fatal("Unable to start scheduler", zap.Error(err))
	}

	go func() {
		a.Logger.Info("Ops server listening", zap.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Ops server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)
	a.Scheduler.Stop()
	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}
	_ = a.Store.Close()
}
