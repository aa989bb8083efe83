package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// Storage is the inventory read model plus the notification history.
type Storage interface {
	// GetWarehouse returns a warehouse by name, or an error wrapping model.ErrNotFound.
	GetWarehouse(ctx context.Context, name string) (*model.Warehouse, error)

	// WarehouseBounds returns the containment bounds of a warehouse.
	// ok is false when the warehouse does not exist.
	WarehouseBounds(ctx context.Context, name string) (bounds model.Bounds, ok bool, err error)

	// ListWarehouses returns every warehouse ordered by lft.
	ListWarehouses(ctx context.Context) ([]model.Warehouse, error)

	// ListActiveLeafWarehouses returns enabled, non-group warehouses.
	ListActiveLeafWarehouses(ctx context.Context) ([]model.Warehouse, error)

	// GetItem returns an item by code, or an error wrapping model.ErrNotFound.
	GetItem(ctx context.Context, code string) (*model.Item, error)

	// GetReorderRule returns the rule for exactly (itemCode, warehouse).
	// ok is false when no rule exists.
	GetReorderRule(ctx context.Context, itemCode, warehouse string) (rule *model.ReorderRule, ok bool, err error)

	// ListReorderRules returns rules on the given warehouses joined with their
	// items, limited to enabled stock items. End of life is left to the caller.
	ListReorderRules(ctx context.Context, warehouses []string) ([]model.RuleWithItem, error)

	// ProjectedQty returns the projected quantity of a pair.
	// ok is false when no stock record exists.
	ProjectedQty(ctx context.Context, itemCode, warehouse string) (qty decimal.Decimal, ok bool, err error)

	// UpsertWarehouse creates or replaces a warehouse.
	UpsertWarehouse(ctx context.Context, w *model.Warehouse) error

	// UpsertItem creates or replaces an item.
	UpsertItem(ctx context.Context, item *model.Item) error

	// UpsertReorderRule creates or replaces the rule for its (item, warehouse).
	UpsertReorderRule(ctx context.Context, rule *model.ReorderRule) error

	// SetProjectedQty creates or replaces a stock record.
	SetProjectedQty(ctx context.Context, level *model.StockLevel) error

	// RecordNotification persists a history entry.
	RecordNotification(ctx context.Context, rec *model.NotificationRecord) error

	// ListNotifications returns history entries, newest first.
	ListNotifications(ctx context.Context, filter model.HistoryFilter) ([]model.NotificationRecord, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
