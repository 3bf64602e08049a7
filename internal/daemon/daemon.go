package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chompy-labs/chompy/internal/api"
	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/health"
	_ "github.com/chompy-labs/chompy/internal/infra/metrics" // Register Prometheus metrics
	"github.com/chompy-labs/chompy/internal/infra/doccache"
	"github.com/chompy-labs/chompy/internal/infra/sqlite"
	"github.com/chompy-labs/chompy/internal/logger"
)

// Daemon is the core chompy runtime. It wires together all services.
type Daemon struct {
	Config      Config
	DB          *sqlite.DB
	Cache       *doccache.Gateway
	Sessions    *engagement.Sessions
	Feed        *engagement.FeedService
	Leaderboard *engagement.Leaderboard
	Health      *health.Checker
	Server      *api.Server
	Log         *slog.Logger
	cancel      context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log := logger.Init(cfg.LoggerConfig(api.Version))

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	clock := engagement.SystemClock(loc)

	dir := cfg.Storage.Dir
	if dir == "" {
		dir = chompyHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cache := doccache.New(db, cfg.Storage.CacheSize, parseDuration(cfg.Storage.CacheTTL, 5*time.Minute))
	feed := engagement.NewFeedServiceWithPolicy(db,
		domain.NotificationPolicy{MaxPerDay: cfg.Engagement.NotificationsPerDay}, clock)
	board := engagement.NewLeaderboard(db)

	sessions := engagement.NewSessions(cfg.Sessions.Size, parseDuration(cfg.Sessions.TTL, 30*time.Minute),
		func(userID string) *engagement.Service {
			return engagement.NewService(userID, cache, engagement.Options{
				Clock:       clock,
				Logger:      log,
				Notifier:    feed,
				Leaderboard: board,
			})
		})

	srv := api.NewServer(sessions, feed, board, log)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(db, dir, parseDuration(cfg.Telemetry.HealthInterval, time.Minute))
	srv.SetHealth(checker)

	return &Daemon{
		Config:      cfg,
		DB:          db,
		Cache:       cache,
		Sessions:    sessions,
		Feed:        feed,
		Leaderboard: board,
		Health:      checker,
		Server:      srv,
		Log:         log,
	}, nil
}

// Session loads the engine for one user, for CLI commands that run
// without a server.
func (d *Daemon) Session(ctx context.Context, userID string) (*engagement.Service, error) {
	return d.Sessions.Get(ctx, userID)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info("chompy serving", "addr", "http://"+addr, "metrics", d.Config.Telemetry.Prometheus)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Sessions != nil {
		d.Sessions.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
