// Package threshold decides whether an (item, leaf warehouse) pair is low on stock.
package threshold

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// IsLow is the single low-stock predicate shared by the event and batch
// paths. A non-positive reorder level means monitoring is off for the pair;
// otherwise the pair is low when projected is at or below the level.
func IsLow(projected, reorderLevel decimal.Decimal) bool {
	if !reorderLevel.IsPositive() {
		return false
	}
	return projected.LessThanOrEqual(reorderLevel)
}

// Reader is the slice of the inventory store the evaluator reads.
type Reader interface {
	GetReorderRule(ctx context.Context, itemCode, warehouse string) (*model.ReorderRule, bool, error)
	ProjectedQty(ctx context.Context, itemCode, warehouse string) (decimal.Decimal, bool, error)
}

// Evaluation is the outcome of a threshold check.
type Evaluation struct {
	Low          bool
	Rule         *model.ReorderRule // nil when no rule exists
	ProjectedQty decimal.Decimal
}

// Evaluator checks reorder thresholds against projected quantity.
type Evaluator struct {
	reader Reader
}

// NewEvaluator creates an evaluator over the given store.
func NewEvaluator(r Reader) *Evaluator {
	return &Evaluator{reader: r}
}

// Evaluate looks up the rule for exactly (itemCode, leafWarehouse) and
// reports whether the pair is low. A missing stock record counts as zero.
func (e *Evaluator) Evaluate(ctx context.Context, itemCode, leafWarehouse string) (Evaluation, error) {
	rule, ok, err := e.reader.GetReorderRule(ctx, itemCode, leafWarehouse)
	if err != nil {
		return Evaluation{}, fmt.Errorf("reorder rule %s@%s: %w", itemCode, leafWarehouse, err)
	}
	if !ok || !rule.ReorderLevel.IsPositive() {
		return Evaluation{Rule: rule}, nil
	}

	qty, _, err := e.reader.ProjectedQty(ctx, itemCode, leafWarehouse)
	if err != nil {
		return Evaluation{}, fmt.Errorf("projected qty %s@%s: %w", itemCode, leafWarehouse, err)
	}

	return Evaluation{
		Low:          IsLow(qty, rule.ReorderLevel),
		Rule:         rule,
		ProjectedQty: qty,
	}, nil
}
