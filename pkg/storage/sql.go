package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// SQLStore implements Storage over database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

const warehouseColumns = `name, is_group, COALESCE(email_id, ''), COALESCE(parent_warehouse, ''), disabled, lft, rgt`

func scanWarehouse(row interface{ Scan(...any) error }) (model.Warehouse, error) {
	var w model.Warehouse
	err := row.Scan(&w.Name, &w.IsGroup, &w.EmailID, &w.ParentWarehouse, &w.Disabled, &w.Lft, &w.Rgt)
	return w, err
}

func (s *SQLStore) GetWarehouse(ctx context.Context, name string) (*model.Warehouse, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+warehouseColumns+` FROM warehouses WHERE name = ?`), name)
	w, err := scanWarehouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("warehouse %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}

func (s *SQLStore) WarehouseBounds(ctx context.Context, name string) (model.Bounds, bool, error) {
	var b model.Bounds
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT lft, rgt FROM warehouses WHERE name = ?`), name,
	).Scan(&b.Lft, &b.Rgt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bounds{}, false, nil
	}
	if err != nil {
		return model.Bounds{}, false, fmt.Errorf("get warehouse bounds: %w", err)
	}
	return b, true, nil
}

func (s *SQLStore) ListWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	return s.queryWarehouses(ctx, `SELECT `+warehouseColumns+` FROM warehouses ORDER BY lft, name`)
}

func (s *SQLStore) ListActiveLeafWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	return s.queryWarehouses(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE disabled = ? AND is_group = ? ORDER BY lft, name`,
		false, false)
}

func (s *SQLStore) queryWarehouses(ctx context.Context, query string, args ...any) ([]model.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []model.Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse row: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *SQLStore) GetItem(ctx context.Context, code string) (*model.Item, error) {
	var item model.Item
	var eol sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT item_code, item_name, description, is_stock_item, disabled, end_of_life
		 FROM items WHERE item_code = ?`), code,
	).Scan(&item.Code, &item.Name, &item.Description, &item.IsStockItem, &item.Disabled, &eol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %q: %w", code, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	item.EndOfLife = eol.String
	return &item, nil
}

func (s *SQLStore) GetReorderRule(ctx context.Context, itemCode, warehouse string) (*model.ReorderRule, bool, error) {
	var r model.ReorderRule
	var group, requestType sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT item_code, warehouse, warehouse_group, reorder_level, reorder_qty, material_request_type
		 FROM reorder_rules WHERE item_code = ? AND warehouse = ?`), itemCode, warehouse,
	).Scan(&r.ItemCode, &r.Warehouse, &group, &r.ReorderLevel, &r.ReorderQty, &requestType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get reorder rule: %w", err)
	}
	r.WarehouseGroup = group.String
	r.MaterialRequestType = requestType.String
	return &r, true, nil
}

func (s *SQLStore) ListReorderRules(ctx context.Context, warehouses []string) ([]model.RuleWithItem, error) {
	if len(warehouses) == 0 {
		return nil, nil
	}

	query := `SELECT
			r.item_code, r.warehouse, r.warehouse_group, r.reorder_level, r.reorder_qty, r.material_request_type,
			i.item_name, i.description, i.is_stock_item, i.disabled, i.end_of_life
		FROM reorder_rules r
		INNER JOIN items i ON i.item_code = r.item_code
		WHERE i.disabled = ? AND i.is_stock_item = ? AND r.warehouse IN (` + placeholders(len(warehouses)) + `)
		ORDER BY r.warehouse, r.item_code`

	args := make([]any, 0, len(warehouses)+2)
	args = append(args, false, true)
	for _, w := range warehouses {
		args = append(args, w)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list reorder rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RuleWithItem
	for rows.Next() {
		var r model.RuleWithItem
		var group, requestType, eol sql.NullString
		if err := rows.Scan(&r.ItemCode, &r.Warehouse, &group, &r.ReorderLevel, &r.ReorderQty, &requestType,
			&r.Item.Name, &r.Item.Description, &r.Item.IsStockItem, &r.Item.Disabled, &eol); err != nil {
			return nil, fmt.Errorf("scan reorder rule row: %w", err)
		}
		r.WarehouseGroup = group.String
		r.MaterialRequestType = requestType.String
		r.Item.Code = r.ItemCode
		r.Item.EndOfLife = eol.String
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *SQLStore) ProjectedQty(ctx context.Context, itemCode, warehouse string) (decimal.Decimal, bool, error) {
	var qty decimal.NullDecimal
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT projected_qty FROM bins WHERE item_code = ? AND warehouse = ?`),
		itemCode, warehouse,
	).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get projected qty: %w", err)
	}
	if !qty.Valid {
		return decimal.Zero, true, nil
	}
	return qty.Decimal, true, nil
}

func (s *SQLStore) UpsertWarehouse(ctx context.Context, w *model.Warehouse) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO warehouses (name, is_group, email_id, parent_warehouse, disabled, lft, rgt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   is_group = excluded.is_group,
		   email_id = excluded.email_id,
		   parent_warehouse = excluded.parent_warehouse,
		   disabled = excluded.disabled,
		   lft = excluded.lft,
		   rgt = excluded.rgt`),
		w.Name, w.IsGroup, nullString(w.EmailID), nullString(w.ParentWarehouse), w.Disabled, w.Lft, w.Rgt,
	)
	if err != nil {
		return fmt.Errorf("upsert warehouse: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertItem(ctx context.Context, item *model.Item) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO items (item_code, item_name, description, is_stock_item, disabled, end_of_life)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_code) DO UPDATE SET
		   item_name = excluded.item_name,
		   description = excluded.description,
		   is_stock_item = excluded.is_stock_item,
		   disabled = excluded.disabled,
		   end_of_life = excluded.end_of_life`),
		item.Code, item.Name, item.Description, item.IsStockItem, item.Disabled, nullString(item.EndOfLife),
	)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertReorderRule(ctx context.Context, rule *model.ReorderRule) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO reorder_rules (item_code, warehouse, warehouse_group, reorder_level, reorder_qty, material_request_type)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_code, warehouse) DO UPDATE SET
		   warehouse_group = excluded.warehouse_group,
		   reorder_level = excluded.reorder_level,
		   reorder_qty = excluded.reorder_qty,
		   material_request_type = excluded.material_request_type`),
		rule.ItemCode, rule.Warehouse, nullString(rule.WarehouseGroup),
		rule.ReorderLevel, rule.ReorderQty, nullString(rule.MaterialRequestType),
	)
	if err != nil {
		return fmt.Errorf("upsert reorder rule: %w", err)
	}
	return nil
}

func (s *SQLStore) SetProjectedQty(ctx context.Context, level *model.StockLevel) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO bins (item_code, warehouse, projected_qty)
		 VALUES (?, ?, ?)
		 ON CONFLICT(item_code, warehouse) DO UPDATE SET projected_qty = excluded.projected_qty`),
		level.ItemCode, level.Warehouse, level.ProjectedQty,
	)
	if err != nil {
		return fmt.Errorf("set projected qty: %w", err)
	}
	return nil
}

func (s *SQLStore) RecordNotification(ctx context.Context, rec *model.NotificationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO notifications (id, path, scope, recipient, item_count, item_codes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, string(rec.Path), rec.Scope, rec.Recipient, rec.ItemCount, rec.ItemCodes, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLStore) ListNotifications(ctx context.Context, filter model.HistoryFilter) ([]model.NotificationRecord, error) {
	query := "SELECT id, path, scope, recipient, item_count, item_codes, created_at FROM notifications"
	where, args := buildHistoryWhere(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []model.NotificationRecord
	for rows.Next() {
		var r model.NotificationRecord
		var path string
		if err := rows.Scan(&r.ID, &path, &r.Scope, &r.Recipient, &r.ItemCount, &r.ItemCodes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		r.Path = model.AlertPath(path)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// buildHistoryWhere constructs a SQL WHERE clause from a HistoryFilter.
func buildHistoryWhere(filter model.HistoryFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, string(filter.Path))
	}
	if filter.Recipient != "" {
		conditions = append(conditions, "recipient = ?")
		args = append(args, filter.Recipient)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since)
	}

	return strings.Join(conditions, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
