package xlsxChartGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName     = "composicao"
	FileExtension = ".xlsx"

	firstDataRow = 3
)

var ErrEmptySnapshot = errors.New("error empty snapshot")

type XlsxChartGenerator struct{}

func New() *XlsxChartGenerator {
	return &XlsxChartGenerator{}
}

// Generate builds a workbook with one row per asset and a column chart of the
// theoretical quantities.
func (g *XlsxChartGenerator) Generate(ctx context.Context, records []model.RefinedRecord) (fileBytes []byte, fileExtension string, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "XlsxChartGenerator.Generate"

	if len(records) == 0 {
		return nil, "", ErrEmptySnapshot
	}

	slog.Debug("Generate start", slog.String("runID", runID), slog.String("op", op), slog.Int("records", len(records)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, "", fmt.Errorf("rename default sheet: %w", err)
	}

	if err = g.fillSheet(f, records); err != nil {
		return nil, "", err
	}

	if err = g.addChart(f, records); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("runID", runID), slog.String("op", op))

	return buf.Bytes(), FileExtension, nil
}

func (g *XlsxChartGenerator) fillSheet(f *excelize.File, records []model.RefinedRecord) error {
	if err := f.MergeCell(SheetName, "A1", "C1"); err != nil {
		return err
	}
	_ = f.SetCellStr(SheetName, "A1", "Composição do índice em "+records[0].ReferenceDate)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "C2", styleID); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	_ = f.SetCellStr(SheetName, "A2", "asset_code")
	_ = f.SetCellStr(SheetName, "B2", "total_quantity")
	_ = f.SetCellStr(SheetName, "C2", "participação (%)")

	shares := Shares(records)
	for i, r := range records {
		row := firstDataRow + i
		_ = f.SetCellStr(SheetName, fmt.Sprintf("A%d", row), r.AssetCode)
		_ = f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), r.TotalQuantity)
		_ = f.SetCellValue(SheetName, fmt.Sprintf("C%d", row), shares[i].InexactFloat64())
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14)
	_ = f.SetColWidth(SheetName, "B", "C", 18)

	return nil
}

func (g *XlsxChartGenerator) addChart(f *excelize.File, records []model.RefinedRecord) error {
	lastRow := firstDataRow + len(records) - 1

	err := f.AddChart(SheetName, "E2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$B$2", SheetName),
				Categories: fmt.Sprintf("%s!$A$%d:$A$%d", SheetName, firstDataRow, lastRow),
				Values:     fmt.Sprintf("%s!$B$%d:$B$%d", SheetName, firstDataRow, lastRow),
			},
		},
		Title: []excelize.RichTextRun{
			{Text: "Quantidade teórica por ativo"},
		},
		Legend: excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{
			Width:  1200,
			Height: 480,
		},
	})
	if err != nil {
		return fmt.Errorf("add chart: %w", err)
	}
	return nil
}

// Shares returns the participation of every record in the summed quantity, in
// percent rounded to three places. A zero total yields zero shares.
func Shares(records []model.RefinedRecord) []decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(decimal.NewFromInt(r.TotalQuantity))
	}

	res := make([]decimal.Decimal, len(records))
	if total.IsZero() {
		return res
	}

	hundred := decimal.NewFromInt(100)
	for i, r := range records {
		res[i] = decimal.NewFromInt(r.TotalQuantity).Mul(hundred).Div(total).Round(3)
	}
	return res
}
