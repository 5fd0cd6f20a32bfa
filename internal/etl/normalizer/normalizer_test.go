package normalizer

import (
	"testing"

	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/b3Model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTable(rows ...[2]string) b3Model.RawTable {
	t := b3Model.RawTable{Columns: []string{b3Model.ColumnCode, b3Model.ColumnName, b3Model.ColumnQuantity}}
	for _, r := range rows {
		t.Rows = append(t.Rows, b3Model.RawRow{
			b3Model.ColumnCode:     r[0],
			b3Model.ColumnName:     "-",
			b3Model.ColumnQuantity: r[1],
		})
	}
	return t
}

func TestNormalizeScenario(t *testing.T) {
	table := rawTable(
		[2]string{"PETR4", "1.000"},
		[2]string{"VALE3", "2.500"},
		[2]string{"Redutor", "10"},
	)

	got, err := New().Normalize(table, "2024-06-01")
	require.NoError(t, err)

	assert.Equal(t, []model.RefinedRecord{
		{AssetCode: "PETR4", TotalQuantity: 1000, ReferenceDate: "2024-06-01"},
		{AssetCode: "VALE3", TotalQuantity: 2500, ReferenceDate: "2024-06-01"},
	}, got)
}

func TestNormalizeSumsDuplicateKeys(t *testing.T) {
	table := rawTable(
		[2]string{"PETR4", "1.000"},
		[2]string{"ITUB4", "7"},
		[2]string{"PETR4", "500"},
		[2]string{"PETR4", "2,000"},
	)

	got, err := New().Normalize(table, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ITUB4", got[0].AssetCode)
	assert.Equal(t, int64(7), got[0].TotalQuantity)
	assert.Equal(t, "PETR4", got[1].AssetCode)
	assert.Equal(t, int64(3500), got[1].TotalQuantity)
}

func TestNormalizeDropsSentinelsRegardlessOfQuantity(t *testing.T) {
	table := rawTable(
		[2]string{"Quantidade Teórica Total", "13.342.268.210"},
		[2]string{"Redutor", "n/d"},
		[2]string{"BBDC4", "5.000"},
	)

	got, err := New().Normalize(table, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BBDC4", got[0].AssetCode)
}

func TestNormalizeStampsSameReferenceDate(t *testing.T) {
	table := rawTable(
		[2]string{"A", "1"},
		[2]string{"B", "2"},
		[2]string{"C", "3"},
	)

	got, err := New().Normalize(table, "2025-01-31")
	require.NoError(t, err)
	for _, r := range got {
		assert.Equal(t, "2025-01-31", r.ReferenceDate)
	}
}

func TestNormalizeUniqueAssetCodes(t *testing.T) {
	table := rawTable(
		[2]string{"X", "1"},
		[2]string{"Y", "1"},
		[2]string{"X", "1"},
		[2]string{"Y", "1"},
	)

	got, err := New().Normalize(table, "2025-01-31")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range got {
		assert.False(t, seen[r.AssetCode], r.AssetCode)
		seen[r.AssetCode] = true
	}
}

func TestNormalizeMalformedQuantity(t *testing.T) {
	table := rawTable(
		[2]string{"PETR4", "1.000"},
		[2]string{"VALE3", "12a"},
	)

	_, err := New().Normalize(table, "2024-06-01")
	require.ErrorIs(t, err, ErrMalformedQuantity)
	assert.Contains(t, err.Error(), "VALE3")
}

func TestNormalizeMissingColumn(t *testing.T) {
	table := b3Model.RawTable{Columns: []string{b3Model.ColumnCode}}

	_, err := New().Normalize(table, "2024-06-01")
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestNormalizeEmptyTable(t *testing.T) {
	got, err := New().Normalize(rawTable(), "2024-06-01")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"12.345.678", 12345678},
		{"12345678", 12345678},
		{"1,000", 1000},
		{" 4.566.457.778 ", 4566457778},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseQuantityIdempotent(t *testing.T) {
	first, err := ParseQuantity("12.345.678")
	require.NoError(t, err)

	second, err := ParseQuantity("12345678")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseQuantityRejects(t *testing.T) {
	for _, raw := range []string{"", "  ", "-5", "1e6", "abc", "99999999999999999999"} {
		_, err := ParseQuantity(raw)
		assert.ErrorIs(t, err, ErrMalformedQuantity, raw)
	}
}
