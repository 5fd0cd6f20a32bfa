package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/b3Model"
)

// Summary and footer rows of the B3 table, not assets.
var defaultSentinels = []string{"Quantidade Teórica Total", "Redutor"}

type Normalizer struct {
	keyColumn      string
	quantityColumn string
	sentinels      map[string]struct{}
}

func New() *Normalizer {
	return NewWithColumns(b3Model.ColumnCode, b3Model.ColumnQuantity, defaultSentinels...)
}

func NewWithColumns(keyColumn, quantityColumn string, sentinels ...string) *Normalizer {
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		set[s] = struct{}{}
	}
	return &Normalizer{keyColumn: keyColumn, quantityColumn: quantityColumn, sentinels: set}
}

// Normalize parses quantities, sums them per asset code, stamps referenceDate
// and drops sentinel rows. The result is sorted by asset code.
func (n *Normalizer) Normalize(table b3Model.RawTable, referenceDate string) ([]model.RefinedRecord, error) {
	for _, c := range []string{n.keyColumn, n.quantityColumn} {
		if !table.HasColumn(c) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
	}

	totals := make(map[string]int64, len(table.Rows))
	for i, row := range table.Rows {
		key := row[n.keyColumn]

		qty, err := ParseQuantity(row[n.quantityColumn])
		if err != nil {
			if n.isSentinel(key) {
				continue
			}
			return nil, fmt.Errorf("row %d (%s): %w", i, key, err)
		}

		sum := totals[key] + qty
		if sum < totals[key] {
			return nil, fmt.Errorf("row %d (%s): %w: sum overflows int64", i, key, ErrMalformedQuantity)
		}
		totals[key] = sum
	}

	res := make([]model.RefinedRecord, 0, len(totals))
	for code, total := range totals {
		res = append(res, model.RefinedRecord{
			AssetCode:     code,
			TotalQuantity: total,
			ReferenceDate: referenceDate,
		})
	}

	res = n.dropSentinels(res)

	sort.Slice(res, func(i, j int) bool { return res[i].AssetCode < res[j].AssetCode })

	return res, nil
}

func (n *Normalizer) dropSentinels(records []model.RefinedRecord) []model.RefinedRecord {
	kept := records[:0]
	for _, r := range records {
		if !n.isSentinel(r.AssetCode) {
			kept = append(kept, r)
		}
	}
	return kept
}

func (n *Normalizer) isSentinel(key string) bool {
	_, ok := n.sentinels[key]
	return ok
}

// ParseQuantity strips the "." and "," thousands separators and parses what is
// left as a non-negative integer.
func ParseQuantity(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(".", "", ",", "").Replace(s)

	if s == "" {
		return 0, fmt.Errorf("%w: %q is empty", ErrMalformedQuantity, raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedQuantity, raw)
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrMalformedQuantity, raw, err)
	}
	return v, nil
}
