package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/hierarchy"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
	"github.com/ogulcanaydogan/stockwatch/pkg/threshold"
	"github.com/ogulcanaydogan/stockwatch/pkg/throttle"
)

// Outcome describes how a stock change was handled.
type Outcome string

const (
	OutcomeNoRule     Outcome = "no_rule"    // No reorder rule, or level not positive
	OutcomeNotLow     Outcome = "not_low"    // Projected quantity above the level
	OutcomeSuppressed Outcome = "suppressed" // Alert already sent within the cooldown
	OutcomeSent       Outcome = "sent"       // Notifications handed to the notifiers
)

// DispatchResult reports the decision taken for one stock change.
type DispatchResult struct {
	ItemCode     string          `json:"item_code"`
	Warehouse    string          `json:"warehouse"`
	Monitored    []string        `json:"monitored"`
	Outcome      Outcome         `json:"outcome"`
	ProjectedQty decimal.Decimal `json:"projected_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Recipients   []string        `json:"recipients,omitempty"`
}

// Dispatcher runs the event path: resolve, evaluate, throttle, notify.
type Dispatcher struct {
	store     storage.Storage
	resolver  *hierarchy.Resolver
	evaluator *threshold.Evaluator
	gate      *throttle.Gate
	out       *outbox
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store storage.Storage, gate *throttle.Gate, notifiers []alerts.Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		resolver:  hierarchy.NewResolver(store),
		evaluator: threshold.NewEvaluator(store),
		gate:      gate,
		out: &outbox{
			notifiers: notifiers,
			history:   store,
			logger:    logger,
			now:       time.Now,
		},
		logger: logger,
	}
}

type target struct {
	scope     string
	recipient string
}

// HandleChange reacts to a stock change of itemCode in leafWarehouse. At most
// one notification per distinct recipient is sent, each carrying the single
// low item with the monitored warehouse as display scope. Lookup failures are
// returned; notifier failures are only logged.
func (d *Dispatcher) HandleChange(ctx context.Context, itemCode, leafWarehouse string, scope model.MonitoredScope) (*DispatchResult, error) {
	monitored, err := d.resolver.Resolve(ctx, leafWarehouse, scope)
	if err != nil {
		return nil, fmt.Errorf("resolve monitored warehouses: %w", err)
	}

	result := &DispatchResult{
		ItemCode:  itemCode,
		Warehouse: leafWarehouse,
		Monitored: monitored,
	}
	if len(monitored) == 0 {
		result.Outcome = OutcomeNoRule
		return result, nil
	}

	eval, err := d.evaluator.Evaluate(ctx, itemCode, leafWarehouse)
	if err != nil {
		return nil, fmt.Errorf("evaluate threshold: %w", err)
	}
	result.ProjectedQty = eval.ProjectedQty
	if eval.Rule == nil || !eval.Rule.ReorderLevel.IsPositive() {
		result.Outcome = OutcomeNoRule
		return result, nil
	}
	result.ReorderLevel = eval.Rule.ReorderLevel
	if !eval.Low {
		result.Outcome = OutcomeNotLow
		return result, nil
	}

	// Lookups run before the throttle commit so a failing store does not
	// silence the pair for a full cooldown.
	item, err := d.item(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	targets, err := d.targets(ctx, monitored)
	if err != nil {
		return nil, err
	}

	acquired, err := d.gate.Acquire(ctx, itemCode, leafWarehouse)
	if err != nil {
		return nil, err
	}
	if !acquired {
		d.logger.Debug("low stock alert suppressed", "item", itemCode, "warehouse", leafWarehouse)
		result.Outcome = OutcomeSuppressed
		return result, nil
	}

	payload := model.NewAlertPayload(item, *eval.Rule, eval.ProjectedQty)
	for _, t := range targets {
		d.out.deliver(ctx, model.PathEvent, t.scope, t.recipient, []model.AlertPayload{payload})
		result.Recipients = append(result.Recipients, t.recipient)
	}
	result.Outcome = OutcomeSent
	return result, nil
}

// item loads the item record. A missing item yields an empty name and
// description.
func (d *Dispatcher) item(ctx context.Context, code string) (model.Item, error) {
	item, err := d.store.GetItem(ctx, code)
	if errors.Is(err, model.ErrNotFound) {
		return model.Item{Code: code}, nil
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("item %s: %w", code, err)
	}
	return *item, nil
}

// targets maps monitored warehouses to recipients, skipping warehouses
// without an address and addresses already targeted.
func (d *Dispatcher) targets(ctx context.Context, monitored []string) ([]target, error) {
	var out []target
	seen := make(map[string]struct{}, len(monitored))
	for _, name := range monitored {
		w, err := d.store.GetWarehouse(ctx, name)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("recipient of %s: %w", name, err)
		}
		if w.EmailID == "" {
			continue
		}
		if _, dup := seen[w.EmailID]; dup {
			continue
		}
		seen[w.EmailID] = struct{}{}
		out = append(out, target{scope: name, recipient: w.EmailID})
	}
	return out, nil
}
