package parquetStorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/b3Model"
	"github.com/KotFed0t/index_composition_etl/internal/storage"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/google/renameio/v2"
	"github.com/parquet-go/parquet-go"
)

const (
	rawDir     = "raw"
	refinedDir = "refined"
)

type refinedRow struct {
	AssetCode     string `parquet:"asset_code"`
	TotalQuantity int64  `parquet:"total_quantity"`
	ReferenceDate string `parquet:"reference_date"`
}

type ParquetStorage struct {
	baseDir         string
	refinedFileName string
	rawFileName     string
	tempDir         string
}

func New(cfg *config.Config) *ParquetStorage {
	return &ParquetStorage{
		baseDir:         cfg.Storage.BaseDir,
		refinedFileName: cfg.Storage.RefinedFileName,
		rawFileName:     cfg.Storage.RawFileName,
		tempDir:         cfg.Storage.TempDir,
	}
}

// RefinedPath is the partition file of referenceDate.
func (s *ParquetStorage) RefinedPath(referenceDate string) string {
	return filepath.Join(s.baseDir, refinedDir, "reference_date="+referenceDate, s.refinedFileName)
}

// EnsureLayout creates base_dir/raw and base_dir/refined when absent.
func (s *ParquetStorage) EnsureLayout() error {
	for _, dir := range []string{rawDir, refinedDir} {
		if err := os.MkdirAll(filepath.Join(s.baseDir, dir), 0o755); err != nil {
			return fmt.Errorf("%w: create %s dir: %w", storage.ErrStorageWrite, dir, err)
		}
	}
	return nil
}

// WriteRefined replaces the partition file of referenceDate with records.
// The file is written next to its final path and renamed over it, so readers
// never observe a half-written partition.
func (s *ParquetStorage) WriteRefined(ctx context.Context, referenceDate string, records []model.RefinedRecord) (path string, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "ParquetStorage.WriteRefined"

	path = s.RefinedPath(referenceDate)

	slog.Debug("WriteRefined start", slog.String("runID", runID), slog.String("op", op), slog.String("path", path), slog.Int("records", len(records)))
	defer func() {
		if err != nil {
			slog.Error("WriteRefined failed", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("refined data saved", slog.String("runID", runID), slog.String("op", op), slog.String("path", path))
		}
	}()

	if err = s.EnsureLayout(); err != nil {
		return "", err
	}

	rows := make([]refinedRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, refinedRow{
			AssetCode:     r.AssetCode,
			TotalQuantity: r.TotalQuantity,
			ReferenceDate: r.ReferenceDate,
		})
	}

	err = writeAtomic(path, func(w io.Writer) error {
		pw := parquet.NewGenericWriter[refinedRow](w)
		if _, err := pw.Write(rows); err != nil {
			return err
		}
		return pw.Close()
	})
	if err != nil {
		return "", err
	}

	return path, nil
}

// ReadRefined loads a partition file written by WriteRefined.
func (s *ParquetStorage) ReadRefined(path string) ([]model.RefinedRecord, error) {
	rows, err := parquet.ReadFile[refinedRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	res := make([]model.RefinedRecord, 0, len(rows))
	for _, r := range rows {
		res = append(res, model.RefinedRecord{
			AssetCode:     r.AssetCode,
			TotalQuantity: r.TotalQuantity,
			ReferenceDate: r.ReferenceDate,
		})
	}
	return res, nil
}

// WriteRawTemp writes table verbatim (one string column per source label) to a
// temporary file. The caller must call cleanup once done with the file.
func (s *ParquetStorage) WriteRawTemp(ctx context.Context, table b3Model.RawTable) (path string, cleanup func(), err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "ParquetStorage.WriteRawTemp"

	dir, err := os.MkdirTemp(s.tempDir, "raw-")
	if err != nil {
		return "", nil, fmt.Errorf("%w: create temp dir: %w", storage.ErrStorageWrite, err)
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("can't remove temp dir", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	path = filepath.Join(dir, s.rawFileName)
	err = writeAtomic(path, func(w io.Writer) error {
		return WriteRaw(w, table)
	})
	if err != nil {
		cleanup()
		return "", nil, err
	}

	slog.Debug("raw data written", slog.String("runID", runID), slog.String("op", op), slog.String("path", path), slog.Int("rows", len(table.Rows)))

	return path, cleanup, nil
}

// WriteRaw encodes table with one string column per label, in table order.
func WriteRaw(w io.Writer, table b3Model.RawTable) error {
	schema, err := rawSchema(table.Columns)
	if err != nil {
		return err
	}

	rows := make([]parquet.Row, 0, len(table.Rows))
	for _, r := range table.Rows {
		row := make(parquet.Row, 0, len(table.Columns))
		for i, label := range table.Columns {
			row = append(row, parquet.ValueOf(r[label]).Level(0, 0, i))
		}
		rows = append(rows, row)
	}

	pw := parquet.NewWriter(w, schema)
	if _, err := pw.WriteRows(rows); err != nil {
		return err
	}
	return pw.Close()
}

// rawSchema builds the schema from a struct type generated at runtime, since
// struct fields keep their declaration order and parquet.Group sorts by name.
// Blank labels are named "Unnamed: <i>".
func rawSchema(columns []string) (*parquet.Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: raw table has no columns", storage.ErrStorageWrite)
	}

	fields := make([]reflect.StructField, 0, len(columns))
	for i, label := range columns {
		if strings.Contains(label, ",") {
			return nil, fmt.Errorf("%w: column %q can't be a parquet field name", storage.ErrStorageWrite, label)
		}
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("Unnamed: %d", i)
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("C%d", i),
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag("parquet:" + strconv.Quote(label)),
		})
	}

	model := reflect.New(reflect.StructOf(fields)).Elem().Interface()
	return parquet.NewSchema("dados_brutos", parquet.SchemaOf(model)), nil
}

func writeAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", storage.ErrStorageWrite, dir, err)
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", storage.ErrStorageWrite, err)
	}
	defer func() {
		_ = pf.Cleanup()
	}()

	if err = write(pf); err != nil {
		return fmt.Errorf("%w: encode %s: %w", storage.ErrStorageWrite, path, err)
	}
	// fsyncs the temp file, then renames it over path
	if err = pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: replace %s: %w", storage.ErrStorageWrite, path, err)
	}

	return nil
}
