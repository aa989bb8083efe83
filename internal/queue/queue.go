// Package queue runs stock-change handling on a bounded pool of workers.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

var (
	// ErrFull is returned when the backlog is at capacity.
	ErrFull = errors.New("stock change queue is full")
	// ErrClosed is returned after Stop.
	ErrClosed = errors.New("stock change queue is closed")
)

// StockChange identifies an (item, leaf warehouse) pair whose stock moved.
type StockChange struct {
	ItemCode  string `json:"item_code"`
	Warehouse string `json:"warehouse"`
}

// Handler processes one stock change.
type Handler interface {
	HandleChange(ctx context.Context, itemCode, leafWarehouse string, scope model.MonitoredScope) (*engine.DispatchResult, error)
}

// ScopeSource supplies the monitored scope at the start of each job.
type ScopeSource interface {
	Scope() model.MonitoredScope
}

// Queue is a bounded FIFO of stock changes drained by a fixed worker pool.
// Jobs for the same pair may run concurrently; the throttle bounds duplicates.
type Queue struct {
	handler Handler
	scope   ScopeSource
	logger  *slog.Logger
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	jobs   chan StockChange
	closed bool
	wg     sync.WaitGroup
}

// New creates a queue. Non-positive sizes fall back to one worker and a
// backlog of one.
func New(handler Handler, scope ScopeSource, workers, size int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	return &Queue{
		handler: handler,
		scope:   scope,
		logger:  logger,
		workers: workers,
		timeout: 30 * time.Second,
		jobs:    make(chan StockChange, size),
	}
}

// Start launches the workers. Cancelling ctx does not stop them: accepted
// changes are drained by Stop, and only ctx values are inherited by jobs.
func (q *Queue) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
}

// Enqueue adds a change without blocking.
func (q *Queue) Enqueue(c StockChange) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- c:
		return nil
	default:
		return ErrFull
	}
}

// Len returns the current backlog.
func (q *Queue) Len() int { return len(q.jobs) }

// Stop closes the queue and waits for queued jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for c := range q.jobs {
		q.handle(ctx, id, c)
	}
}

func (q *Queue) handle(ctx context.Context, worker int, c StockChange) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	res, err := q.handler.HandleChange(ctx, c.ItemCode, c.Warehouse, q.scope.Scope())
	if err != nil {
		// No retry here; the next change or the fallback scan picks it up
		q.logger.Error("handle stock change",
			"worker", worker,
			"item", c.ItemCode,
			"warehouse", c.Warehouse,
			"error", err,
		)
		return
	}
	q.logger.Debug("stock change handled",
		"worker", worker,
		"item", c.ItemCode,
		"warehouse", c.Warehouse,
		"outcome", res.Outcome,
	)
}
