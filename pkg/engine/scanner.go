package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
	"github.com/ogulcanaydogan/stockwatch/pkg/threshold"
)

// ErrScanRunning is returned by ScanAndAlert while another scan is sending.
var ErrScanRunning = errors.New("fallback scan already running")

// ScanOptions tunes a fallback scan.
type ScanOptions struct {
	// Debug logs every warehouse at info level instead of debug.
	Debug bool
}

// WarehouseReport lists the low items of one leaf warehouse.
type WarehouseReport struct {
	Warehouse string               `json:"warehouse"`
	Recipient string               `json:"recipient,omitempty"`
	Items     []model.AlertPayload `json:"items"`
}

// ScanResult summarises a fallback scan.
type ScanResult struct {
	Warehouses int               `json:"warehouses"`
	Rules      int               `json:"rules"`
	Reports    []WarehouseReport `json:"reports"`
	Sent       int               `json:"sent"`
}

// LowItems returns the number of low pairs found.
func (r *ScanResult) LowItems() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.Items)
	}
	return n
}

// Scanner runs the batch path. It does not throttle: a low pair is reported
// on every run until it is fixed.
type Scanner struct {
	store  storage.Storage
	out    *outbox
	logger *slog.Logger
	now    func() time.Time

	running sync.Mutex
}

// NewScanner creates a scanner.
func NewScanner(store storage.Storage, notifiers []alerts.Notifier, logger *slog.Logger) *Scanner {
	return &Scanner{
		store: store,
		out: &outbox{
			notifiers: notifiers,
			history:   store,
			logger:    logger,
			now:       time.Now,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Collect evaluates every rule on an active leaf warehouse and groups the low
// pairs by warehouse, in warehouse order. Nothing is sent.
func (s *Scanner) Collect(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	leaves, err := s.store.ListActiveLeafWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leaf warehouses: %w", err)
	}

	result := &ScanResult{Warehouses: len(leaves)}
	if len(leaves) == 0 {
		return result, nil
	}

	names := make([]string, len(leaves))
	for i, w := range leaves {
		names[i] = w.Name
	}

	rules, err := s.store.ListReorderRules(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("list reorder rules: %w", err)
	}

	now := s.now()
	low := make(map[string][]model.AlertPayload)
	for _, r := range rules {
		if !r.Item.Monitorable(now) {
			continue
		}
		result.Rules++

		qty, _, err := s.store.ProjectedQty(ctx, r.ItemCode, r.Warehouse)
		if err != nil {
			return nil, fmt.Errorf("projected qty %s@%s: %w", r.ItemCode, r.Warehouse, err)
		}
		if threshold.IsLow(qty, r.ReorderLevel) {
			low[r.Warehouse] = append(low[r.Warehouse], model.NewAlertPayload(r.Item, r.ReorderRule, qty))
		}
	}

	level := slog.LevelDebug
	if opts.Debug {
		level = slog.LevelInfo
	}
	for _, w := range leaves {
		items := low[w.Name]
		s.logger.Log(ctx, level, "scanned warehouse",
			"warehouse", w.Name,
			"email_id", w.EmailID,
			"low_items", len(items),
		)
		if len(items) == 0 {
			continue
		}
		result.Reports = append(result.Reports, WarehouseReport{
			Warehouse: w.Name,
			Recipient: w.EmailID,
			Items:     items,
		})
	}
	return result, nil
}

// ScanAndAlert collects low pairs and sends one notification per leaf
// warehouse that has both low items and a recipient. Only one scan runs at a
// time per Scanner; an overlapping call gets ErrScanRunning.
func (s *Scanner) ScanAndAlert(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if !s.running.TryLock() {
		return nil, ErrScanRunning
	}
	defer s.running.Unlock()

	result, err := s.Collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	for _, rep := range result.Reports {
		if rep.Recipient == "" {
			continue
		}
		s.out.deliver(ctx, model.PathScan, rep.Warehouse, rep.Recipient, rep.Items)
		result.Sent++
	}

	s.logger.Info("fallback scan complete",
		"warehouses", result.Warehouses,
		"rules", result.Rules,
		"low_items", result.LowItems(),
		"sent", result.Sent,
	)
	return result, nil
}
