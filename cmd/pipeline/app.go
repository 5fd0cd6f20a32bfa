package main

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/data"
	"github.com/KotFed0t/index_composition_etl/data/repository"
	"github.com/KotFed0t/index_composition_etl/data/runLock"
	"github.com/KotFed0t/index_composition_etl/internal/etl/normalizer"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi/devtoolsApi"
	"github.com/KotFed0t/index_composition_etl/internal/metrics"
	"github.com/KotFed0t/index_composition_etl/internal/parser/tableParser"
	"github.com/KotFed0t/index_composition_etl/internal/reportGenerator/terminalChart"
	"github.com/KotFed0t/index_composition_etl/internal/reportGenerator/xlsxChartGenerator"
	"github.com/KotFed0t/index_composition_etl/internal/scraper/b3Scraper"
	"github.com/KotFed0t/index_composition_etl/internal/service/pipelineService"
	"github.com/KotFed0t/index_composition_etl/internal/storage/parquetStorage"
	"github.com/redis/go-redis/v9"
)

type app struct {
	svc     *pipelineService.PipelineService
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("close failed", slog.String("err", err.Error()))
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	catalogClient, err := data.NewCatalogClient(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, catalogClient.Close)

	var redisClient *redis.Client
	if cfg.Lock.Backend == "redis" {
		redisClient, err = data.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisClient.Close)
	}

	deps := pipelineService.Deps{
		Renderer:        b3Scraper.New(cfg, devtoolsApi.New(cfg)),
		Extractor:       tableParser.New(cfg.Scraper.TableClass),
		Normalizer:      normalizer.New(),
		Partitions:      parquetStorage.New(cfg),
		Catalog:         repository.NewCatalog(cfg, catalogClient),
		Locker:          runLock.New(cfg, redisClient),
		Metrics:         metrics.New(cfg, "local"),
		ReportGenerator: xlsxChartGenerator.New(),
		TerminalChart:   terminalChart.New(cfg.Report.BarWidth),
	}

	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.ReportStorage = drive
	}

	a.svc = pipelineService.New(cfg, deps)
	return a, nil
}
