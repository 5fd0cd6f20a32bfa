package terminalChart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	New(10).Render(&buf, []model.RefinedRecord{
		{AssetCode: "PETR4", TotalQuantity: 1500, ReferenceDate: "2025-03-14"},
		{AssetCode: "VALE3", TotalQuantity: 500, ReferenceDate: "2025-03-14"},
	})

	out := buf.String()
	assert.Contains(t, out, "2025-03-14")
	assert.Contains(t, out, "PETR4")
	assert.Contains(t, out, "VALE3")
	assert.Contains(t, out, strings.Repeat(barRune, 10))
	assert.NotContains(t, out, strings.Repeat(barRune, 11))
}

func TestBar(t *testing.T) {
	c := New(10)
	assert.Equal(t, strings.Repeat(barRune, 5), c.bar(50, 100))
	assert.Equal(t, barRune, c.bar(1, 1_000_000))
	assert.Equal(t, "", c.bar(0, 100))
	assert.Equal(t, "", c.bar(0, 0))
}
