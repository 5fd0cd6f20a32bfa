package b3Model

// Column labels of the B3 "Carteira do Dia" table.
const (
	ColumnCode     = "Código"
	ColumnName     = "Ação"
	ColumnType     = "Tipo"
	ColumnQuantity = "Qtde. Teórica"
	ColumnShare    = "Part. (%)"
)

// RawRow maps a column label to the cell text exactly as scraped.
type RawRow map[string]string

type RawTable struct {
	Columns []string
	Rows    []RawRow
}

func (t RawTable) HasColumn(label string) bool {
	for _, c := range t.Columns {
		if c == label {
			return true
		}
	}
	return false
}
