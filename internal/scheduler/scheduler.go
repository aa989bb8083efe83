// Package scheduler runs the fallback scan on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
)

// Scanner is the batch path run on every tick.
type Scanner interface {
	ScanAndAlert(ctx context.Context, opts engine.ScanOptions) (*engine.ScanResult, error)
}

// Scheduler triggers scans. A tick is skipped while the previous scan is
// still running, so scans never overlap each other.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	opts    engine.ScanOptions
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler firing on spec (standard five-field cron or a
// descriptor such as "@hourly").
func New(spec string, scanner Scanner, opts engine.ScanOptions, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scanner: scanner,
		opts:    opts,
		logger:  logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, s.Run); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running scan to finish or for ctx
// to end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.cancel()
	}
}

// Run performs a single scan.
func (s *Scheduler) Run() {
	res, err := s.scanner.ScanAndAlert(s.ctx, s.opts)
	if errors.Is(err, engine.ErrScanRunning) {
		s.logger.Info("fallback scan skipped, another scan is running")
		return
	}
	if err != nil {
		s.logger.Error("fallback scan failed", "error", err)
		return
	}
	s.logger.Debug("fallback scan tick", "sent", res.Sent)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
