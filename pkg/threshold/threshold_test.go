package threshold_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
	"github.com/ogulcanaydogan/stockwatch/pkg/storage"
	"github.com/ogulcanaydogan/stockwatch/pkg/threshold"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestIsLow(t *testing.T) {
	tests := []struct {
		name      string
		projected string
		level     string
		want      bool
	}{
		{"below level", "5", "10", true},
		{"exactly at level", "10", "10", true},
		{"above level", "15", "10", false},
		{"just above level", "10.001", "10", false},
		{"negative projected", "-4", "10", true},
		{"zero level", "0", "0", false},
		{"zero level negative projected", "-1", "0", false},
		{"negative level", "-5", "-1", false},
		{"fractional level", "0.5", "0.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, threshold.IsLow(d(tt.projected), d(tt.level)))
		})
	}
}

func newTestEvaluator(t *testing.T) (*threshold.Evaluator, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return threshold.NewEvaluator(store), store
}

func TestEvaluator_Low(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{
		ItemCode: "X", Warehouse: "W1", ReorderLevel: d("10"), ReorderQty: d("5"),
	}))
	require.NoError(t, store.SetProjectedQty(ctx, &model.StockLevel{ItemCode: "X", Warehouse: "W1", ProjectedQty: d("5")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.True(t, got.Low)
	require.NotNil(t, got.Rule)
	assert.True(t, got.Rule.ReorderQty.Equal(d("5")))
	assert.True(t, got.ProjectedQty.Equal(d("5")))
}

func TestEvaluator_AtThreshold(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{ItemCode: "X", Warehouse: "W1", ReorderLevel: d("10")}))
	require.NoError(t, store.SetProjectedQty(ctx, &model.StockLevel{ItemCode: "X", Warehouse: "W1", ProjectedQty: d("10")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.True(t, got.Low)
}

func TestEvaluator_AboveThreshold(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{ItemCode: "X", Warehouse: "W1", ReorderLevel: d("10")}))
	require.NoError(t, store.SetProjectedQty(ctx, &model.StockLevel{ItemCode: "X", Warehouse: "W1", ProjectedQty: d("15")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.False(t, got.Low)
}

func TestEvaluator_NoRule(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.SetProjectedQty(ctx, &model.StockLevel{ItemCode: "X", Warehouse: "W1", ProjectedQty: d("-50")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.False(t, got.Low)
	assert.Nil(t, got.Rule)
}

func TestEvaluator_ZeroLevel(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{ItemCode: "X", Warehouse: "W1", ReorderLevel: d("0")}))
	require.NoError(t, store.SetProjectedQty(ctx, &model.StockLevel{ItemCode: "X", Warehouse: "W1", ProjectedQty: d("-1")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.False(t, got.Low)
}

func TestEvaluator_MissingStockCountsAsZero(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{ItemCode: "X", Warehouse: "W1", ReorderLevel: d("1")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.True(t, got.Low)
	assert.True(t, got.ProjectedQty.IsZero())
}

func TestEvaluator_RuleOnGroupIsIgnored(t *testing.T) {
	ev, store := newTestEvaluator(t)
	ctx := context.Background()

	// Rules live on leaves; a rule on the group never applies to a child.
	require.NoError(t, store.UpsertReorderRule(ctx, &model.ReorderRule{ItemCode: "X", Warehouse: "G", ReorderLevel: d("10")}))

	got, err := ev.Evaluate(ctx, "X", "W1")
	require.NoError(t, err)
	assert.False(t, got.Low)
}

type failingReader struct{}

func (failingReader) GetReorderRule(context.Context, string, string) (*model.ReorderRule, bool, error) {
	return nil, false, errors.New("store unreachable")
}

func (failingReader) ProjectedQty(context.Context, string, string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func TestEvaluator_StoreFailurePropagates(t *testing.T) {
	ev := threshold.NewEvaluator(failingReader{})

	_, err := ev.Evaluate(context.Background(), "X", "W1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}
