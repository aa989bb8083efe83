package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *storage.SQLStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, mock, storage.NewPostgresFromDB(db)
}

func TestPostgres_GetReorderRule(t *testing.T) {
	_, mock, store := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"item_code", "warehouse", "warehouse_group", "reorder_level", "reorder_qty", "material_request_type",
	}).AddRow("X", "W1", nil, "10", "5", "Purchase")

	mock.ExpectQuery(`FROM reorder_rules WHERE item_code = \$1 AND warehouse = \$2`).
		WithArgs("X", "W1").
		WillReturnRows(rows)

	rule, ok, err := store.GetReorderRule(context.Background(), "X", "W1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rule.ReorderLevel.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "Purchase", rule.MaterialRequestType)
	assert.Empty(t, rule.WarehouseGroup)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetReorderRule_NoRows(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(`FROM reorder_rules`).
		WithArgs("X", "W1").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := store.GetReorderRule(context.Background(), "X", "W1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WarehouseBounds_StoreFailure(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(`SELECT lft, rgt FROM warehouses WHERE name = \$1`).
		WithArgs("W1").
		WillReturnError(errors.New("connection refused"))

	_, _, err := store.WarehouseBounds(context.Background(), "W1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListReorderRules_Placeholders(t *testing.T) {
	_, mock, store := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"item_code", "warehouse", "warehouse_group", "reorder_level", "reorder_qty", "material_request_type",
		"item_name", "description", "is_stock_item", "disabled", "end_of_life",
	}).
		AddRow("A", "W1", nil, "10", "4", nil, "Alpha", "", true, false, nil).
		AddRow("B", "W2", "G", "3", "1", nil, "Beta", "desc", true, false, "0000-00-00")

	mock.ExpectQuery(`WHERE i.disabled = \$1 AND i.is_stock_item = \$2 AND r.warehouse IN \(\$3, \$4\)`).
		WithArgs(false, true, "W1", "W2").
		WillReturnRows(rows)

	rules, err := store.ListReorderRules(context.Background(), []string{"W1", "W2"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Alpha", rules[0].Item.Name)
	assert.Equal(t, "G", rules[1].WarehouseGroup)
	assert.Equal(t, model.EndOfLifeUnset, rules[1].Item.EndOfLife)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ProjectedQty_Null(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(`SELECT projected_qty FROM bins WHERE item_code = \$1 AND warehouse = \$2`).
		WithArgs("A", "W1").
		WillReturnRows(sqlmock.NewRows([]string{"projected_qty"}).AddRow(nil))

	qty, ok, err := store.ProjectedQty(context.Background(), "A", "W1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, qty.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}
