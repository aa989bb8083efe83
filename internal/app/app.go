// Package app wires configuration into a running alert engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ogulcanaydogan/stockwatch/internal/config"
	"github.com/ogulcanaydogan/stockwatch/internal/queue"
	"github.com/ogulcanaydogan/stockwatch/internal/scheduler"
	"github.com/ogulcanaydogan/stockwatch/internal/server"
	"github.com/ogulcanaydogan/stockwatch/internal/settings"
	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
	"github.com/ogulcanaydogan/stockwatch/pkg/throttle"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      storage.Storage
	Gate       *throttle.Gate
	Notifiers  []alerts.Notifier
	Dispatcher *engine.Dispatcher
	Scanner    *engine.Scanner
	Settings   *settings.Holder

	closers []func() error
}

// New opens storage and the throttle store and builds the engine.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	tstore, err := a.openThrottleStore(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init throttle store: %w", err)
	}
	ttl, err := cfg.ThrottleTTL()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gate = throttle.NewGate(tstore, throttle.WithTTL(ttl))

	a.Notifiers = Notifiers(cfg)
	if len(a.Notifiers) == 0 {
		logger.Warn("no notifiers configured, alerts are only recorded")
	}

	a.Dispatcher = engine.NewDispatcher(store, a.Gate, a.Notifiers, logger)
	a.Scanner = engine.NewScanner(store, a.Notifiers, logger)
	a.Settings = settings.NewHolder(settings.Settings{
		Active:     cfg.Monitoring.Active,
		Warehouses: cfg.Monitoring.Warehouses,
	})
	return a, nil
}

// Close releases storage and the throttle store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SharedThrottle reports whether cooldowns live in Redis and are shared with
// other processes. The in-memory store forgets them when the process exits.
func (a *App) SharedThrottle() bool {
	return a.Config.Redis.Enabled
}

func (a *App) openThrottleStore(ctx context.Context) (throttle.Store, error) {
	if !a.Config.Redis.Enabled {
		return throttle.NewMemoryStore(), nil
	}
	rs, err := throttle.DialRedis(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", a.Config.Redis.Addr, err)
	}
	a.closers = append(a.closers, rs.Close)
	return rs, nil
}

// OpenStorage opens the configured database.
func OpenStorage(ctx context.Context, cfg *config.Config) (*storage.SQLStore, error) {
	if cfg.Storage.Driver == "postgres" {
		return storage.NewPostgres(ctx, cfg.Storage.DSN, storage.PostgresOptions{
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: config.Duration(cfg.Storage.ConnMaxLifetime, 30*time.Minute),
			Migrate:         cfg.Storage.Migrate,
		})
	}
	return storage.NewSQLite(cfg.Storage.Path)
}

// Notifiers creates the notifiers enabled in cfg.
func Notifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Mail.Enabled && cfg.Mail.Host != "" {
		notifiers = append(notifiers, alerts.NewEmailNotifier(
			cfg.Mail.Host,
			cfg.Mail.Port,
			cfg.Mail.Username,
			cfg.Mail.Password,
			cfg.Mail.From,
		))
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// Serve runs the worker queue, the scan schedule and the HTTP API until ctx
// is cancelled, then shuts them down in reverse order.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config

	q := queue.New(a.Dispatcher, a.Settings, cfg.Queue.Workers, cfg.Queue.Size, a.Logger)
	q.Start(ctx)
	defer q.Stop()

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.Spec, a.Scanner, engine.ScanOptions{Debug: cfg.Scheduler.Debug}, a.Logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		a.Logger.Info("fallback scan scheduled", "spec", cfg.Scheduler.Spec)
	}

	api, err := server.NewServer(server.Deps{
		Store:     a.Store,
		Queue:     q,
		Scanner:   a.Scanner,
		Settings:  a.Settings,
		RateLimit: cfg.Server.RateLimit,
	}, a.Logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      api.Handler(),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("stockwatch started", "listen", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
