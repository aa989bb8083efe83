package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/stockwatch/internal/queue"
	"github.com/ogulcanaydogan/stockwatch/internal/server"
	"github.com/ogulcanaydogan/stockwatch/internal/settings"
	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
)

type recordingQueue struct {
	mu      sync.Mutex
	changes []queue.StockChange
	err     error
}

func (q *recordingQueue) Enqueue(c queue.StockChange) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.changes = append(q.changes, c)
	return nil
}

type testEnv struct {
	srv   *server.Server
	store *storage.SQLStore
	queue *recordingQueue
	hold  *settings.Holder
}

func setupServer(t *testing.T, rateLimit string) *testEnv {
	t.Helper()

	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := testContext(t)
	for _, w := range []*model.Warehouse{
		{Name: "G", IsGroup: true, EmailID: "group@x", Bounds: model.Bounds{Lft: 1, Rgt: 6}},
		{Name: "W1", ParentWarehouse: "G", EmailID: "wh1@x", Bounds: model.Bounds{Lft: 2, Rgt: 3}},
		{Name: "W2", ParentWarehouse: "G", Bounds: model.Bounds{Lft: 4, Rgt: 5}},
	} {
		require.NoError(t, store.UpsertWarehouse(ctx, w))
	}
	require.NoError(t, store.UpsertItem(ctx, &model.Item{Code: "X", Name: "Widget", IsStockItem: true}))
	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{
		ItemCode: "X", Warehouse: "W1", ReorderLevel: decimal.NewFromInt(10),
	}))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	q := &recordingQueue{}
	hold := settings.NewHolder(settings.Settings{Active: true, Warehouses: []string{"G"}})

	srv, err := server.NewServer(server.Deps{
		Store:     store,
		Queue:     q,
		Scanner:   engine.NewScanner(store, nil, logger),
		Settings:  hold,
		RateLimit: rateLimit,
	}, logger)
	require.NoError(t, err)

	return &testEnv{srv: srv, store: store, queue: q, hold: hold}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	env := setupServer(t, "")

	w := env.do("GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_StockChange(t *testing.T) {
	env := setupServer(t, "")

	tests := []struct {
		name     string
		body     string
		wantCode int
		queued   bool
	}{
		{"submitted entry", `{"item_code":"X","warehouse":"W1","docstatus":1}`, http.StatusAccepted, true},
		{"draft entry", `{"item_code":"X","warehouse":"W1","docstatus":0}`, http.StatusOK, false},
		{"cancelled entry", `{"item_code":"X","warehouse":"W1","docstatus":1,"is_cancelled":true}`, http.StatusOK, false},
		{"missing warehouse", `{"item_code":"X","docstatus":1}`, http.StatusBadRequest, false},
		{"bad json", `{`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.queue.changes)
			w := env.do("POST", "/api/v1/stock-changes", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.queued {
				require.Len(t, env.queue.changes, before+1)
				assert.Equal(t, queue.StockChange{ItemCode: "X", Warehouse: "W1"}, env.queue.changes[before])
			} else {
				assert.Len(t, env.queue.changes, before)
			}
		})
	}
}

func TestServer_StockChange_QueueFull(t *testing.T) {
	env := setupServer(t, "")
	env.queue.err = queue.ErrFull

	w := env.do("POST", "/api/v1/stock-changes", `{"item_code":"X","warehouse":"W1","docstatus":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_Scan(t *testing.T) {
	env := setupServer(t, "")

	w := env.do("POST", "/api/v1/scan?debug=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res engine.ScanResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 2, res.Warehouses)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "W1", res.Reports[0].Warehouse)
	assert.Equal(t, 1, res.Sent)
}

func TestServer_Resolve(t *testing.T) {
	env := setupServer(t, "")

	w := env.do("GET", "/api/v1/resolve?warehouse=W2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scope     []string `json:"scope"`
		Monitored []string `json:"monitored"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"G"}, resp.Scope)
	assert.Equal(t, []string{"G"}, resp.Monitored)

	w = env.do("GET", "/api/v1/resolve", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Settings(t *testing.T) {
	env := setupServer(t, "")

	w := env.do("GET", "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got settings.Settings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.True(t, got.Active)
	assert.Equal(t, []string{"G"}, got.Warehouses)

	w = env.do("PUT", "/api/v1/settings", `{"active":true,"warehouses":["W1"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.MonitoredScope{"W1"}, env.hold.Scope())

	// W2 has no recipient
	w = env.do("PUT", "/api/v1/settings", `{"active":true,"warehouses":["W2"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.MonitoredScope{"W1"}, env.hold.Scope())

	w = env.do("PUT", "/api/v1/settings", `{"active":true,"warehouses":["Nowhere"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do("PUT", "/api/v1/settings", `{"active":false,"warehouses":[]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.hold.Scope())
}

func TestServer_Settings_StoreFailure(t *testing.T) {
	env := setupServer(t, "")
	require.NoError(t, env.store.Close())

	w := env.do("PUT", "/api/v1/settings", `{"active":true,"warehouses":["W1"]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, model.MonitoredScope{"G"}, env.hold.Scope())
}

type busyScanner struct{}

func (busyScanner) ScanAndAlert(context.Context, engine.ScanOptions) (*engine.ScanResult, error) {
	return nil, engine.ErrScanRunning
}

func TestServer_Scan_AlreadyRunning(t *testing.T) {
	env := setupServer(t, "")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := server.NewServer(server.Deps{
		Store:    env.store,
		Queue:    env.queue,
		Scanner:  busyScanner{},
		Settings: env.hold,
	}, logger)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/scan", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_Notifications(t *testing.T) {
	env := setupServer(t, "")
	ctx := testContext(t)

	now := time.Now().UTC()
	require.NoError(t, env.store.RecordNotification(ctx, &model.NotificationRecord{
		Path: model.PathEvent, Scope: "G", Recipient: "group@x", ItemCount: 1, ItemCodes: "X", CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, env.store.RecordNotification(ctx, &model.NotificationRecord{
		Path: model.PathScan, Scope: "W1", Recipient: "wh1@x", ItemCount: 1, ItemCodes: "X", CreatedAt: now,
	}))

	w := env.do("GET", "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	var records []model.NotificationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	assert.Len(t, records, 2)

	w = env.do("GET", "/api/v1/notifications?path=event", "")
	require.Equal(t, http.StatusOK, w.Code)
	records = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "group@x", records[0].Recipient)

	w = env.do("GET", "/api/v1/notifications?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do("GET", "/api/v1/notifications?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RateLimit(t *testing.T) {
	env := setupServer(t, "2-M")

	assert.Equal(t, http.StatusOK, env.do("GET", "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, env.do("GET", "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do("GET", "/healthz", "").Code)
}

func TestNewServer_BadRateLimit(t *testing.T) {
	_, err := server.NewServer(server.Deps{RateLimit: "lots"}, slog.Default())
	assert.Error(t, err)
}

// testContext mirrors testing.T.Context (Go 1.24+) for older toolchains.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
