// Package seed loads inventory fixtures from YAML into storage.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/stockwatch/pkg/hierarchy"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
)

// Fixture is the file layout accepted by the seed command. Warehouse bounds
// must be supplied; the tree is not renumbered.
type Fixture struct {
	Warehouses   []model.Warehouse   `yaml:"warehouses"`
	Items        []model.Item        `yaml:"items"`
	ReorderRules []model.ReorderRule `yaml:"reorder_rules"`
	Bins         []model.StockLevel  `yaml:"bins"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Warehouses   int
	Items        int
	ReorderRules int
	Bins         int
}

// LoadFile reads a fixture from a YAML file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for _, w := range f.Warehouses {
		if w.Name == "" {
			return nil, fmt.Errorf("warehouse without name")
		}
		if !w.Bounds.Valid() {
			return nil, fmt.Errorf("warehouse %q: %w", w.Name, hierarchy.ErrMalformedBounds)
		}
	}
	return &f, nil
}

// Apply writes the fixture. Warehouses go first so reorder rules can be
// validated against the stored tree before any rule is written.
func Apply(ctx context.Context, store storage.Storage, f *Fixture) (Summary, error) {
	var sum Summary

	for i := range f.Warehouses {
		if err := store.UpsertWarehouse(ctx, &f.Warehouses[i]); err != nil {
			return sum, fmt.Errorf("warehouse %q: %w", f.Warehouses[i].Name, err)
		}
		sum.Warehouses++
	}

	if err := hierarchy.NewResolver(store).ValidateRules(ctx, f.ReorderRules); err != nil {
		return sum, fmt.Errorf("validate reorder rules: %w", err)
	}

	for i := range f.Items {
		if err := store.UpsertItem(ctx, &f.Items[i]); err != nil {
			return sum, fmt.Errorf("item %q: %w", f.Items[i].Code, err)
		}
		sum.Items++
	}
	for i := range f.ReorderRules {
		if err := store.UpsertReorderRule(ctx, &f.ReorderRules[i]); err != nil {
			return sum, fmt.Errorf("reorder rule %s@%s: %w", f.ReorderRules[i].ItemCode, f.ReorderRules[i].Warehouse, err)
		}
		sum.ReorderRules++
	}
	for i := range f.Bins {
		if err := store.SetProjectedQty(ctx, &f.Bins[i]); err != nil {
			return sum, fmt.Errorf("bin %s@%s: %w", f.Bins[i].ItemCode, f.Bins[i].Warehouse, err)
		}
		sum.Bins++
	}
	return sum, nil
}
