// Package hierarchy resolves which monitored warehouses cover a leaf
// warehouse, using the nested-set bounds of the warehouse tree.
package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// ErrMalformedBounds is returned when a warehouse's bounds cannot take part
// in a containment test.
var ErrMalformedBounds = errors.New("malformed warehouse bounds")

// Tree is the read-only view of the warehouse hierarchy.
type Tree interface {
	GetWarehouse(ctx context.Context, name string) (*model.Warehouse, error)
	WarehouseBounds(ctx context.Context, name string) (model.Bounds, bool, error)
}

// Resolver maps a leaf warehouse to the monitored warehouses covering it.
type Resolver struct {
	tree Tree
}

// NewResolver creates a resolver over the given tree.
func NewResolver(tree Tree) *Resolver {
	return &Resolver{tree: tree}
}

// Resolve returns, in scope order, the monitored warehouses relevant to
// leaf. Group entries match when their bounds enclose the leaf; leaf entries
// match only by name. The result is never empty: an empty scope, an unknown
// leaf, or no match all resolve to the leaf itself.
func (r *Resolver) Resolve(ctx context.Context, leaf string, scope model.MonitoredScope) ([]string, error) {
	self := []string{leaf}
	if len(scope) == 0 {
		return self, nil
	}

	leafBounds, ok, err := r.tree.WarehouseBounds(ctx, leaf)
	if err != nil {
		return nil, fmt.Errorf("bounds of %q: %w", leaf, err)
	}
	if !ok {
		return self, nil
	}
	if !leafBounds.Valid() {
		return nil, fmt.Errorf("leaf %q (%d, %d): %w", leaf, leafBounds.Lft, leafBounds.Rgt, ErrMalformedBounds)
	}

	var result []string
	seen := make(map[string]struct{}, len(scope))
	for _, name := range scope {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		w, err := r.tree.GetWarehouse(ctx, name)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("monitored warehouse %q: %w", name, err)
		}

		if w != nil && w.IsGroup {
			if !w.Bounds.Valid() {
				return nil, fmt.Errorf("group %q (%d, %d): %w", name, w.Lft, w.Rgt, ErrMalformedBounds)
			}
			if w.Bounds.Contains(leafBounds) {
				result = append(result, name)
			}
			continue
		}

		if name == leaf {
			result = append(result, name)
		}
	}

	if len(result) == 0 {
		return self, nil
	}
	return result, nil
}
