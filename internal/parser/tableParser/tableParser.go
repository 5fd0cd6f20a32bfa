package tableParser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KotFed0t/index_composition_etl/internal/model/b3Model"
	"github.com/PuerkitoBio/goquery"
)

type TableParser struct {
	classes []string
}

// New builds a parser matching a <table> whose class attribute holds exactly
// the given space separated class set, in any order.
func New(tableClass string) *TableParser {
	return &TableParser{classes: strings.Fields(tableClass)}
}

func (p *TableParser) Extract(markup string) (b3Model.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return b3Model.RawTable{}, fmt.Errorf("parse markup: %w", err)
	}

	table := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return p.matchClasses(s.AttrOr("class", ""))
	}).First()
	if table.Length() == 0 {
		return b3Model.RawTable{}, fmt.Errorf("%w: class %q", ErrTableNotFound, strings.Join(p.classes, " "))
	}

	var grid [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// nested tables are not part of this table's grid
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}
		cells := expandRow(tr)
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	})

	if len(grid) == 0 {
		return b3Model.RawTable{}, fmt.Errorf("%w: table has no rows", ErrTableNotFound)
	}

	res := b3Model.RawTable{Columns: uniqueLabels(grid[0])}
	for _, cells := range grid[1:] {
		row := make(b3Model.RawRow, len(res.Columns))
		for i, label := range res.Columns {
			if i < len(cells) {
				row[label] = cells[i]
			} else {
				row[label] = ""
			}
		}
		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

func (p *TableParser) matchClasses(attr string) bool {
	got := strings.Fields(attr)
	if len(got) != len(p.classes) {
		return false
	}

	want := make(map[string]int, len(p.classes))
	for _, c := range p.classes {
		want[c]++
	}
	for _, c := range got {
		if want[c] == 0 {
			return false
		}
		want[c]--
	}
	return true
}

// expandRow returns the text of every th/td in tr, repeating a cell once per
// column it spans.
func expandRow(tr *goquery.Selection) []string {
	var cells []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := normalizeText(cell.Text())
		span, err := strconv.Atoi(cell.AttrOr("colspan", "1"))
		if err != nil || span < 1 {
			span = 1
		}
		for i := 0; i < span; i++ {
			cells = append(cells, text)
		}
	})
	return cells
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func uniqueLabels(labels []string) []string {
	seen := make(map[string]int, len(labels))
	res := make([]string, 0, len(labels))
	for _, l := range labels {
		seen[l]++
		if seen[l] > 1 {
			l = fmt.Sprintf("%s.%d", l, seen[l]-1)
		}
		res = append(res, l)
	}
	return res
}
