package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/data"
	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, batchSize int) *Catalog {
	t.Helper()

	cfg := &config.Config{Catalog: config.Catalog{
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "catalogo_glue.db"),
		ConnAttempts:    1,
		MaxOpenConns:    1,
		InsertBatchSize: batchSize,
	}}

	db, err := data.NewCatalogClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewCatalog(cfg, db)
}

func TestReplaceSnapshotRoundTrip(t *testing.T) {
	catalog := setup(t, 100)
	ctx := context.Background()

	records := []model.RefinedRecord{
		{AssetCode: "PETR4", TotalQuantity: 1000, ReferenceDate: "2024-06-01"},
		{AssetCode: "VALE3", TotalQuantity: 2500, ReferenceDate: "2024-06-01"},
	}
	require.NoError(t, catalog.ReplaceSnapshot(ctx, records))

	got, err := catalog.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReplaceSnapshotIsNotAppend(t *testing.T) {
	catalog := setup(t, 100)
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceSnapshot(ctx, []model.RefinedRecord{
		{AssetCode: "PETR4", TotalQuantity: 1000, ReferenceDate: "2024-06-01"},
		{AssetCode: "VALE3", TotalQuantity: 2500, ReferenceDate: "2024-06-01"},
	}))

	second := []model.RefinedRecord{
		{AssetCode: "ITUB4", TotalQuantity: 42, ReferenceDate: "2024-06-02"},
	}
	require.NoError(t, catalog.ReplaceSnapshot(ctx, second))

	got, err := catalog.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestReplaceSnapshotBatches(t *testing.T) {
	catalog := setup(t, 7)
	ctx := context.Background()

	records := make([]model.RefinedRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, model.RefinedRecord{
			AssetCode:     fmt.Sprintf("ASSET%02d", i),
			TotalQuantity: int64(i * 1000),
			ReferenceDate: "2024-06-01",
		})
	}
	require.NoError(t, catalog.ReplaceSnapshot(ctx, records))

	got, err := catalog.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReplaceSnapshotEmpty(t *testing.T) {
	catalog := setup(t, 100)
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceSnapshot(ctx, []model.RefinedRecord{
		{AssetCode: "PETR4", TotalQuantity: 1, ReferenceDate: "2024-06-01"},
	}))
	require.NoError(t, catalog.ReplaceSnapshot(ctx, nil))

	got, err := catalog.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceSnapshotRollsBackOnCancel(t *testing.T) {
	catalog := setup(t, 100)

	original := []model.RefinedRecord{{AssetCode: "PETR4", TotalQuantity: 1, ReferenceDate: "2024-06-01"}}
	require.NoError(t, catalog.ReplaceSnapshot(context.Background(), original))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, catalog.ReplaceSnapshot(ctx, []model.RefinedRecord{
		{AssetCode: "VALE3", TotalQuantity: 2, ReferenceDate: "2024-06-02"},
	}))

	got, err := catalog.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "catalogo_glue.db")
	cfg := &config.Config{Catalog: config.Catalog{Driver: "sqlite", DSN: dsn, ConnAttempts: 1, MaxOpenConns: 1, InsertBatchSize: 10}}

	for i := 0; i < 2; i++ {
		db, err := data.NewCatalogClient(cfg)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}
