package hierarchy

import (
	"context"
	"fmt"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// ValidateRules checks reorder rules before they are stored. Rows may not
// repeat an (item, warehouse, material request type) combination, and a
// row's check-in group must contain its warehouse. An empty group defaults to
// the warehouse itself. A zero reorder quantity is allowed.
func (r *Resolver) ValidateRules(ctx context.Context, rules []model.ReorderRule) error {
	type rowKey struct{ item, warehouse, requestType string }
	seen := make(map[rowKey]int, len(rules))

	for i := range rules {
		row := &rules[i]
		if row.WarehouseGroup == "" {
			row.WarehouseGroup = row.Warehouse
		}

		key := rowKey{row.ItemCode, row.Warehouse, row.MaterialRequestType}
		if first, dup := seen[key]; dup {
			return fmt.Errorf("row #%d: a reorder entry already exists for item %s in warehouse %s with reorder type %q (row #%d)",
				i+1, row.ItemCode, row.Warehouse, row.MaterialRequestType, first)
		}
		seen[key] = i + 1

		if row.ReorderLevel.IsNegative() || row.ReorderQty.IsNegative() {
			return fmt.Errorf("row #%d: reorder level and quantity must not be negative", i+1)
		}

		if row.WarehouseGroup == row.Warehouse {
			continue
		}

		ok, err := r.contains(ctx, row.WarehouseGroup, row.Warehouse)
		if err != nil {
			return fmt.Errorf("row #%d: %w", i+1, err)
		}
		if !ok {
			return fmt.Errorf("row #%d: the warehouse %s is not a child warehouse of group warehouse %s",
				i+1, row.Warehouse, row.WarehouseGroup)
		}
	}
	return nil
}

// contains reports whether group's bounds enclose child's. Unknown
// warehouses never contain or are contained.
func (r *Resolver) contains(ctx context.Context, group, child string) (bool, error) {
	gb, ok, err := r.tree.WarehouseBounds(ctx, group)
	if err != nil || !ok {
		return false, err
	}
	cb, ok, err := r.tree.WarehouseBounds(ctx, child)
	if err != nil || !ok {
		return false, err
	}
	if !gb.Valid() || !cb.Valid() {
		return false, ErrMalformedBounds
	}
	return gb.Contains(cb), nil
}
