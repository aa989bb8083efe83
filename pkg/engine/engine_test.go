package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
	"github.com/ogulcanaydogan/stockwatch/pkg/throttle"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingNotifier captures every notification it is handed.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []alerts.Notification
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, n alerts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) all() []alerts.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alerts.Notification(nil), r.sent...)
}

// fakeClock is a manually advanced clock shared by the throttle store.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

// fixture:
//
//	G (1,10) group@x
//	├── W1 (2,3) wh1@x
//	├── W2 (4,5)
//	└── W4 (8,9) disabled
//	W3 (11,12) wh3@x
type fixture struct {
	store    *storage.SQLStore
	clock    *fakeClock
	gate     *throttle.Gate
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, w := range []*model.Warehouse{
		{Name: "G", IsGroup: true, EmailID: "group@x", Bounds: model.Bounds{Lft: 1, Rgt: 10}},
		{Name: "W1", ParentWarehouse: "G", EmailID: "wh1@x", Bounds: model.Bounds{Lft: 2, Rgt: 3}},
		{Name: "W2", ParentWarehouse: "G", Bounds: model.Bounds{Lft: 4, Rgt: 5}},
		{Name: "W4", ParentWarehouse: "G", EmailID: "wh4@x", Disabled: true, Bounds: model.Bounds{Lft: 8, Rgt: 9}},
		{Name: "W3", EmailID: "wh3@x", Bounds: model.Bounds{Lft: 11, Rgt: 12}},
	} {
		require.NoError(t, store.UpsertWarehouse(ctx, w))
	}
	for _, it := range []*model.Item{
		{Code: "X", Name: "Widget", Description: "Blue widget", IsStockItem: true},
		{Code: "Y", Name: "Gadget", IsStockItem: true},
		{Code: "OLD", Name: "Retired", IsStockItem: true, EndOfLife: "2001-01-01"},
	} {
		require.NoError(t, store.UpsertItem(ctx, it))
	}

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	gate := throttle.NewGate(throttle.NewMemoryStoreWithClock(clock.Now), throttle.WithClock(clock.Now))

	return &fixture{store: store, clock: clock, gate: gate, notifier: &recordingNotifier{}}
}

func (f *fixture) rule(t *testing.T, item, warehouse, level string) {
	t.Helper()
	require.NoError(t, f.store.UpsertReorderRule(context.Background(), &model.ReorderRule{
		ItemCode: item, Warehouse: warehouse, ReorderLevel: d(level), ReorderQty: d("20"),
	}))
}

func (f *fixture) stock(t *testing.T, item, warehouse, qty string) {
	t.Helper()
	require.NoError(t, f.store.SetProjectedQty(context.Background(), &model.StockLevel{
		ItemCode: item, Warehouse: warehouse, ProjectedQty: d(qty),
	}))
}

func (f *fixture) notifiers() []alerts.Notifier { return []alerts.Notifier{f.notifier} }

var errSMTP = errors.New("smtp down")
