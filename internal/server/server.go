package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ogulcanaydogan/stockwatch/internal/queue"
	"github.com/ogulcanaydogan/stockwatch/internal/settings"
	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
	"github.com/ogulcanaydogan/stockwatch/pkg/hierarchy"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
)

// Enqueuer accepts stock changes for asynchronous handling.
type Enqueuer interface {
	Enqueue(c queue.StockChange) error
}

// Scanner runs the fallback scan on demand.
type Scanner interface {
	ScanAndAlert(ctx context.Context, opts engine.ScanOptions) (*engine.ScanResult, error)
}

// Deps are the collaborators the API serves.
type Deps struct {
	Store    storage.Storage
	Queue    Enqueuer
	Scanner  Scanner
	Settings *settings.Holder
	// RateLimit is a limiter rate such as "50-S". Empty disables limiting.
	RateLimit string
}

// Server exposes the stock-change trigger and operational endpoints.
type Server struct {
	deps     Deps
	resolver *hierarchy.Resolver
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(deps Deps, logger *slog.Logger) (*Server, error) {
	s := &Server{
		deps:     deps,
		resolver: hierarchy.NewResolver(deps.Store),
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	s.handler = s.mux

	if deps.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(deps.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("parse rate limit %q: %w", deps.RateLimit, err)
		}
		s.handler = stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate)).Handler(s.mux)
	}
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/stock-changes", s.handleStockChange)
	s.mux.HandleFunc("POST /api/v1/scan", s.handleScan)
	s.mux.HandleFunc("GET /api/v1/resolve", s.handleResolve)
	s.mux.HandleFunc("GET /api/v1/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/v1/settings", s.handlePutSettings)
	s.mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stockLedgerEntry is the subset of a ledger entry the trigger needs.
type stockLedgerEntry struct {
	ItemCode    string `json:"item_code"`
	Warehouse   string `json:"warehouse"`
	DocStatus   int    `json:"docstatus"`
	IsCancelled bool   `json:"is_cancelled"`
}

func (s *Server) handleStockChange(w http.ResponseWriter, r *http.Request) {
	var entry stockLedgerEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&entry); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if entry.ItemCode == "" || entry.Warehouse == "" {
		http.Error(w, "item_code and warehouse are required", http.StatusBadRequest)
		return
	}

	// Only submitted, non-cancelled entries move stock
	if entry.DocStatus != 1 || entry.IsCancelled {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	err := s.deps.Queue.Enqueue(queue.StockChange{ItemCode: entry.ItemCode, Warehouse: entry.Warehouse})
	switch {
	case errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		s.logger.Warn("stock change rejected", "item", entry.ItemCode, "warehouse", entry.Warehouse, "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Error("enqueue stock change", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	debug, _ := strconv.ParseBool(r.URL.Query().Get("debug"))

	res, err := s.deps.Scanner.ScanAndAlert(r.Context(), engine.ScanOptions{Debug: debug})
	if errors.Is(err, engine.ErrScanRunning) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("scan", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type resolveResponse struct {
	Warehouse string               `json:"warehouse"`
	Scope     model.MonitoredScope `json:"scope"`
	Monitored []string             `json:"monitored"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	leaf := r.URL.Query().Get("warehouse")
	if leaf == "" {
		http.Error(w, "warehouse is required", http.StatusBadRequest)
		return
	}

	scope := s.deps.Settings.Scope()
	monitored, err := s.resolver.Resolve(ctx, leaf, scope)
	if errors.Is(err, hierarchy.ErrMalformedBounds) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.logger.Error("resolve", "warehouse", leaf, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Warehouse: leaf, Scope: scope, Monitored: monitored})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var next settings.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&next); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := s.deps.Settings.Update(ctx, s.deps.Store, next); err != nil {
		if settings.IsInvalid(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("update settings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("settings updated", "active", next.Active, "warehouses", len(next.Warehouses))
	writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := model.HistoryFilter{
		Path:      model.AlertPath(q.Get("path")),
		Recipient: q.Get("recipient"),
		Limit:     100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid since, want RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	records, err := s.deps.Store.ListNotifications(ctx, filter)
	if err != nil {
		s.logger.Error("list notifications", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
