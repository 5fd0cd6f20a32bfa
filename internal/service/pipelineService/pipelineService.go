package pipelineService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/metrics"
	"github.com/KotFed0t/index_composition_etl/internal/model"
	"github.com/KotFed0t/index_composition_etl/internal/model/b3Model"
	"github.com/KotFed0t/index_composition_etl/internal/service"
	"github.com/KotFed0t/index_composition_etl/utils"
)

type Renderer interface {
	Render(ctx context.Context) (markup string, err error)
}

type Extractor interface {
	Extract(markup string) (b3Model.RawTable, error)
}

type Normalizer interface {
	Normalize(table b3Model.RawTable, referenceDate string) ([]model.RefinedRecord, error)
}

type PartitionStorage interface {
	WriteRefined(ctx context.Context, referenceDate string, records []model.RefinedRecord) (path string, err error)
	WriteRawTemp(ctx context.Context, table b3Model.RawTable) (path string, cleanup func(), err error)
}

type Catalog interface {
	ReplaceSnapshot(ctx context.Context, records []model.RefinedRecord) error
	GetSnapshot(ctx context.Context) ([]model.RefinedRecord, error)
}

type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

type RawUploader interface {
	UploadRaw(ctx context.Context, localPath, referenceDate string) (key string, err error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, records []model.RefinedRecord) (fileBytes []byte, fileExtension string, err error)
}

type TerminalChart interface {
	Render(w io.Writer, records []model.RefinedRecord)
}

type ReportStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) (deleted int, err error)
}

// Deps groups the collaborators of the pipeline. Everything a run variant
// doesn't touch may be nil: the cloud variant needs no Normalizer, Catalog or
// report parts, the local one no RawUploader.
type Deps struct {
	Renderer   Renderer
	Extractor  Extractor
	Normalizer Normalizer
	Partitions PartitionStorage
	Catalog    Catalog
	Locker     Locker
	Uploader   RawUploader
	Metrics    *metrics.RunMetrics

	ReportGenerator ReportGenerator
	TerminalChart   TerminalChart
	ReportStorage   ReportStorage
}

type PipelineService struct {
	Deps

	loc            *time.Location
	reportDir      string
	diagnosticsDir string
	terminal  bool
	xlsx      bool
	out       io.Writer
	now       func() time.Time
}

func New(cfg *config.Config, deps Deps) *PipelineService {
	return &PipelineService{
		Deps:      deps,
		loc:            cfg.Location(),
		reportDir:      cfg.Report.Dir,
		diagnosticsDir: cfg.Scraper.DiagnosticsDir,
		terminal:       cfg.Report.Terminal,
		xlsx:           cfg.Report.Xlsx,
		out:            os.Stdout,
		now:            time.Now,
	}
}

// LocalResult describes what a local run produced.
type LocalResult struct {
	ReferenceDate string
	RefinedPath   string
	Records       int
	Report        Report
}

// Report describes the rendered visualization. Empty fields were not produced.
type Report struct {
	Path string
	Link string
}

// ReferenceDate is today's calendar date in the configured time zone.
func (s *PipelineService) ReferenceDate() string {
	return s.now().In(s.loc).Format(model.ReferenceDateLayout)
}

// RunLocal renders the index page, normalizes the composition table, replaces
// the date partition and the catalog snapshot, then renders the chart.
func (s *PipelineService) RunLocal(ctx context.Context) (res LocalResult, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "PipelineService.RunLocal"

	started := s.now()
	stage := "lock"
	res.ReferenceDate = s.ReferenceDate()

	slog.Info("RunLocal start", slog.String("runID", runID), slog.String("op", op), slog.String("referenceDate", res.ReferenceDate))
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Finish(ctx, started, stage, err)
		}
		if err != nil {
			slog.Error("RunLocal failed", slog.String("runID", runID), slog.String("op", op), slog.String("stage", stage), slog.String("err", err.Error()))
		} else {
			slog.Info("RunLocal completed", slog.String("runID", runID), slog.String("op", op), slog.Int("records", res.Records), slog.String("path", res.RefinedPath))
		}
	}()

	unlock, err := s.Locker.Lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	stage = "scrape"
	table, err := s.scrape(ctx)
	if err != nil {
		return res, err
	}

	stage = "normalize"
	records, err := s.Normalizer.Normalize(table, res.ReferenceDate)
	if err != nil {
		return res, fmt.Errorf("normalize: %w", err)
	}
	res.Records = len(records)
	if s.Metrics != nil {
		s.Metrics.Records.Set(float64(len(records)))
	}

	stage = "partition"
	res.RefinedPath, err = s.Partitions.WriteRefined(ctx, res.ReferenceDate, records)
	if err != nil {
		return res, err
	}

	stage = "catalog"
	if err = s.Catalog.ReplaceSnapshot(ctx, records); err != nil {
		return res, err
	}

	stage = "chart"
	res.Report, err = s.RenderChart(ctx)
	if err != nil {
		return res, err
	}

	return res, nil
}

// RunRaw renders and extracts the table and lands it verbatim in object
// storage, keyed by today's date.
func (s *PipelineService) RunRaw(ctx context.Context) (key string, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "PipelineService.RunRaw"

	started := s.now()
	stage := "scrape"
	referenceDate := s.ReferenceDate()

	slog.Info("RunRaw start", slog.String("runID", runID), slog.String("op", op), slog.String("referenceDate", referenceDate))
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Finish(ctx, started, stage, err)
		}
		if err != nil {
			slog.Error("RunRaw failed", slog.String("runID", runID), slog.String("op", op), slog.String("stage", stage), slog.String("err", err.Error()))
		} else {
			slog.Info("RunRaw completed", slog.String("runID", runID), slog.String("op", op), slog.String("key", key))
		}
	}()

	table, err := s.scrape(ctx)
	if err != nil {
		return "", err
	}

	stage = "upload"
	path, cleanup, err := s.Partitions.WriteRawTemp(ctx, table)
	if err != nil {
		return "", err
	}
	defer cleanup()

	return s.Uploader.UploadRaw(ctx, path, referenceDate)
}

func (s *PipelineService) scrape(ctx context.Context) (b3Model.RawTable, error) {
	markup, err := s.Renderer.Render(ctx)
	if err != nil {
		return b3Model.RawTable{}, err
	}

	table, err := s.Extractor.Extract(markup)
	if err != nil {
		s.saveMarkup(ctx, markup)
		return b3Model.RawTable{}, fmt.Errorf("extract: %w", err)
	}

	if s.Metrics != nil {
		s.Metrics.RawRows.Set(float64(len(table.Rows)))
	}
	slog.Debug("table extracted", slog.String("runID", utils.GetRunIDFromCtx(ctx)), slog.Int("rows", len(table.Rows)), slog.Any("columns", table.Columns))

	return table, nil
}

// saveMarkup keeps the page the extractor rejected, whatever
// SCRAPER_SAVE_MARKUP says. Failures here are only logged.
func (s *PipelineService) saveMarkup(ctx context.Context, markup string) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "PipelineService.saveMarkup"

	if err := os.MkdirAll(s.diagnosticsDir, 0o755); err != nil {
		slog.Warn("can't create diagnostics dir", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}

	name := "erro_extract.html"
	if runID != "" {
		name = "erro_extract_" + runID + ".html"
	}
	path := filepath.Join(s.diagnosticsDir, name)
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		slog.Warn("can't write diagnostic file", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}
	slog.Info("diagnostic file saved", slog.String("runID", runID), slog.String("op", op), slog.String("path", path))
}

// RenderChart draws the current catalog snapshot: a bar chart on the terminal
// and an xlsx workbook with a native chart, published to Drive when a report
// storage is configured. Publishing problems are logged, not returned.
func (s *PipelineService) RenderChart(ctx context.Context) (report Report, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "PipelineService.RenderChart"

	slog.Debug("RenderChart start", slog.String("runID", runID), slog.String("op", op))

	records, err := s.Catalog.GetSnapshot(ctx)
	if err != nil {
		return report, err
	}
	if len(records) == 0 {
		return report, service.ErrEmptyCatalog
	}

	if s.terminal && s.TerminalChart != nil {
		s.TerminalChart.Render(s.out, records)
	}

	if !s.xlsx || s.ReportGenerator == nil {
		return report, nil
	}

	fileBytes, ext, err := s.ReportGenerator.Generate(ctx, records)
	if err != nil {
		return report, fmt.Errorf("generate report: %w", err)
	}

	filename := "composicao_" + records[0].ReferenceDate + ext
	if err = os.MkdirAll(s.reportDir, 0o755); err != nil {
		return report, fmt.Errorf("create report dir: %w", err)
	}
	report.Path = filepath.Join(s.reportDir, filename)
	if err = os.WriteFile(report.Path, fileBytes, 0o644); err != nil {
		return report, fmt.Errorf("write report: %w", err)
	}
	slog.Info("chart saved", slog.String("runID", runID), slog.String("op", op), slog.String("path", report.Path))

	if s.ReportStorage == nil {
		return report, nil
	}

	link, err := s.ReportStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Warn("report not published", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		return report, nil
	}
	report.Link = link
	slog.Info("report published", slog.String("runID", runID), slog.String("op", op), slog.String("link", link))

	if _, err := s.ReportStorage.DeleteOldFiles(ctx); err != nil {
		slog.Warn("old reports not cleaned up", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return report, nil
}
