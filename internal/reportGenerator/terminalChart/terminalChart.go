package terminalChart

import (
	"io"
	"strings"

	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const barRune = "█"

type TerminalChart struct {
	barWidth int
}

func New(barWidth int) *TerminalChart {
	if barWidth <= 0 {
		barWidth = 40
	}
	return &TerminalChart{barWidth: barWidth}
}

// Render draws one horizontal bar per asset, scaled so the largest quantity
// fills barWidth cells.
func (c *TerminalChart) Render(w io.Writer, records []model.RefinedRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if len(records) > 0 {
		t.SetTitle("Composição do índice em " + records[0].ReferenceDate)
	}
	t.AppendHeader(table.Row{"asset_code", "total_quantity", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Colors: text.Colors{text.FgCyan}},
	})

	var top int64
	for _, r := range records {
		top = max(top, r.TotalQuantity)
	}

	for _, r := range records {
		t.AppendRow(table.Row{r.AssetCode, r.TotalQuantity, c.bar(r.TotalQuantity, top)})
	}

	t.Render()
}

func (c *TerminalChart) bar(quantity, top int64) string {
	if top == 0 {
		return ""
	}
	n := int(float64(quantity) / float64(top) * float64(c.barWidth))
	if n == 0 && quantity > 0 {
		n = 1
	}
	return strings.Repeat(barRune, n)
}
