package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("not found")

// EndOfLifeUnset is the sentinel date some ERP schemas store instead of NULL.
const EndOfLifeUnset = "0000-00-00"

// DateLayout is the storage format for calendar dates.
const DateLayout = "2006-01-02"

// Item is a stockable product.
type Item struct {
	Code        string `json:"item_code" yaml:"item_code" db:"item_code"`
	Name        string `json:"item_name" yaml:"item_name" db:"item_name"`
	Description string `json:"description" yaml:"description" db:"description"`
	IsStockItem bool   `json:"is_stock_item" yaml:"is_stock_item" db:"is_stock_item"`
	Disabled    bool   `json:"disabled" yaml:"disabled" db:"disabled"`
	// EndOfLife is a YYYY-MM-DD date, empty or EndOfLifeUnset when not set.
	EndOfLife string `json:"end_of_life,omitempty" yaml:"end_of_life" db:"end_of_life"`
}

// Monitorable reports whether the item is eligible for low-stock alerts at now:
// a stock item, not disabled, and not past its end of life.
func (i Item) Monitorable(now time.Time) bool {
	if !i.IsStockItem || i.Disabled {
		return false
	}
	return !EndOfLifeExpired(i.EndOfLife, now)
}

// EndOfLifeExpired reports whether eol is set and not strictly after the
// calendar date of now. Unparseable dates count as not set.
func EndOfLifeExpired(eol string, now time.Time) bool {
	if eol == "" || eol == EndOfLifeUnset {
		return false
	}
	d, err := time.Parse(DateLayout, eol)
	if err != nil {
		return false
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return !d.After(today)
}

// Bounds is a nested-set containment index: A contains B iff A's bounds
// enclose B's.
type Bounds struct {
	Lft int64 `json:"lft" yaml:"lft"`
	Rgt int64 `json:"rgt" yaml:"rgt"`
}

// Valid reports whether the bounds can take part in a containment test.
func (b Bounds) Valid() bool {
	return b.Lft <= b.Rgt
}

// Contains reports whether child lies within b. A node contains itself.
func (b Bounds) Contains(child Bounds) bool {
	return b.Lft <= child.Lft && b.Rgt >= child.Rgt
}

// Warehouse is a node in the warehouse tree. Only leaves hold stock.
type Warehouse struct {
	Name            string `json:"name" yaml:"name" db:"name"`
	IsGroup         bool   `json:"is_group" yaml:"is_group" db:"is_group"`
	EmailID         string `json:"email_id,omitempty" yaml:"email_id" db:"email_id"`
	ParentWarehouse string `json:"parent_warehouse,omitempty" yaml:"parent_warehouse" db:"parent_warehouse"`
	Disabled        bool   `json:"disabled" yaml:"disabled" db:"disabled"`
	Bounds          `yaml:",inline"`
}

// ReorderRule is the reorder threshold for one (item, leaf warehouse) pair.
type ReorderRule struct {
	ItemCode            string          `json:"item_code" yaml:"item_code" db:"item_code"`
	Warehouse           string          `json:"warehouse" yaml:"warehouse" db:"warehouse"`
	WarehouseGroup      string          `json:"warehouse_group,omitempty" yaml:"warehouse_group" db:"warehouse_group"`
	ReorderLevel        decimal.Decimal `json:"reorder_level" yaml:"reorder_level" db:"reorder_level"`
	ReorderQty          decimal.Decimal `json:"reorder_qty" yaml:"reorder_qty" db:"reorder_qty"`
	MaterialRequestType string          `json:"material_request_type,omitempty" yaml:"material_request_type" db:"material_request_type"`
}

// RuleWithItem is a reorder rule joined with its item, as read by the
// fallback scan.
type RuleWithItem struct {
	ReorderRule
	Item Item
}

// StockLevel is the projected quantity of an item in a leaf warehouse.
type StockLevel struct {
	ItemCode     string          `json:"item_code" yaml:"item_code" db:"item_code"`
	Warehouse    string          `json:"warehouse" yaml:"warehouse" db:"warehouse"`
	ProjectedQty decimal.Decimal `json:"projected_qty" yaml:"projected_qty" db:"projected_qty"`
}

// AlertPayload describes one low (item, leaf warehouse) pair.
type AlertPayload struct {
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	Description  string          `json:"description"`
	Warehouse    string          `json:"warehouse"`
	ProjectedQty decimal.Decimal `json:"projected_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	ReorderQty   decimal.Decimal `json:"reorder_qty"`
}

// NewAlertPayload builds the payload for a low pair.
func NewAlertPayload(item Item, rule ReorderRule, projected decimal.Decimal) AlertPayload {
	return AlertPayload{
		ItemCode:     rule.ItemCode,
		ItemName:     item.Name,
		Description:  item.Description,
		Warehouse:    rule.Warehouse,
		ProjectedQty: projected,
		ReorderLevel: rule.ReorderLevel,
		ReorderQty:   rule.ReorderQty,
	}
}

// MonitoredScope is the ordered list of warehouses (leaf or group) that
// receive alerts. An empty scope means each leaf alerts itself.
type MonitoredScope []string

// AlertPath identifies which trigger produced a notification.
type AlertPath string

const (
	PathEvent AlertPath = "event"
	PathScan  AlertPath = "scan"
)

// NotificationRecord is the history entry written for every notification
// handed to the notifiers.
type NotificationRecord struct {
	ID        string    `json:"id" db:"id"`
	Path      AlertPath `json:"path" db:"path"`
	Scope     string    `json:"scope" db:"scope"`
	Recipient string    `json:"recipient" db:"recipient"`
	ItemCount int       `json:"item_count" db:"item_count"`
	ItemCodes string    `json:"item_codes" db:"item_codes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HistoryFilter narrows notification history queries.
type HistoryFilter struct {
	Path      AlertPath `json:"path,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}
