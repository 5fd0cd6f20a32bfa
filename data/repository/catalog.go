package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/converter/dbConverter"
	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/dbModel"
	"github.com/KotFed0t/index_composition_etl/internal/storage"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/jmoiron/sqlx"
)

const TableRefined = "dados_refinados"

type Catalog struct {
	db        *sqlx.DB
	batchSize int
}

func NewCatalog(cfg *config.Config, db *sqlx.DB) *Catalog {
	return &Catalog{db: db, batchSize: cfg.Catalog.InsertBatchSize}
}

// ReplaceSnapshot discards every row of dados_refinados and stores records in
// their place, inside one transaction. It never appends: after it returns the
// table holds exactly records.
func (c *Catalog) ReplaceSnapshot(ctx context.Context, records []model.RefinedRecord) (err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "Catalog.ReplaceSnapshot"

	slog.Debug("ReplaceSnapshot start", slog.String("runID", runID), slog.String("op", op), slog.Int("records", len(records)))
	defer func() {
		if err != nil {
			slog.Error("ReplaceSnapshot failed", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("data cataloged", slog.String("runID", runID), slog.String("op", op), slog.Int("records", len(records)))
		}
	}()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", storage.ErrStorageWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM `+TableRefined); err != nil {
		return fmt.Errorf("%w: clear %s: %w", storage.ErrStorageWrite, TableRefined, err)
	}

	query := `
		INSERT INTO ` + TableRefined + ` (asset_code, total_quantity, reference_date)
		VALUES (:asset_code, :total_quantity, :reference_date)
	`

	rows := dbConverter.ConvertToDbRefinedRecords(records)
	for start := 0; start < len(rows); start += c.batchSize {
		end := min(start+c.batchSize, len(rows))
		if _, err = tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("%w: insert batch %d-%d: %w", storage.ErrStorageWrite, start, end, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrStorageWrite, err)
	}

	return nil
}

func (c *Catalog) GetSnapshot(ctx context.Context) (records []model.RefinedRecord, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "Catalog.GetSnapshot"
	query := `
		SELECT asset_code, total_quantity, reference_date
		FROM ` + TableRefined + `
		ORDER BY asset_code
	`

	slog.Debug("GetSnapshot start", slog.String("runID", runID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetSnapshot failed", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSnapshot completed", slog.String("runID", runID), slog.String("op", op))
		}
	}()

	var rows []dbModel.RefinedRecord
	if err = c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	records = make([]model.RefinedRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, dbConverter.ConvertRefinedRecord(r))
	}

	return records, nil
}
