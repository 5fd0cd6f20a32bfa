package cloudfn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi/cloudStorageApi/gcsApi"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi/devtoolsApi"
	"github.com/KotFed0t/index_composition_etl/internal/metrics"
	"github.com/KotFed0t/index_composition_etl/internal/parser/tableParser"
	"github.com/KotFed0t/index_composition_etl/internal/scraper/b3Scraper"
	"github.com/KotFed0t/index_composition_etl/internal/service/pipelineService"
	"github.com/KotFed0t/index_composition_etl/internal/storage/parquetStorage"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/cloudevents/sdk-go/v2/event"
)

const FunctionName = "ScrapeIndexRaw"

func init() {
	functions.CloudEvent(FunctionName, ScrapeIndexRaw)
}

type RawRunner interface {
	RunRaw(ctx context.Context) (key string, err error)
}

// Handler lands the raw composition table in object storage once per event.
type Handler struct {
	runner RawRunner
}

func NewHandler(runner RawRunner) *Handler {
	return &Handler{runner: runner}
}

// Handle runs the raw variant. The event ID becomes the run ID, so logs of a
// redelivered event correlate with the first attempt.
func (h *Handler) Handle(ctx context.Context, e event.Event) error {
	ctx = utils.CreateCtxWithRunID(ctx, e.ID())
	runID := utils.GetRunIDFromCtx(ctx)

	slog.Info("event received", slog.String("runID", runID), slog.String("type", e.Type()), slog.String("source", e.Source()))

	key, err := h.runner.RunRaw(ctx)
	if err != nil {
		return fmt.Errorf("raw run %s: %w", runID, err)
	}

	slog.Info("event handled", slog.String("runID", runID), slog.String("key", key))
	return nil
}

var (
	once       sync.Once
	defaultH   *Handler
	defaultErr error

	buildHandler = newDefaultHandler
)

// ScrapeIndexRaw is the CloudEvent entry point. Dependencies are built on the
// first event and reused by warm instances, so they must not be bound to the
// first event's context.
func ScrapeIndexRaw(ctx context.Context, e event.Event) error {
	once.Do(func() {
		defaultH, defaultErr = buildHandler(context.Background())
	})
	if defaultErr != nil {
		return defaultErr
	}
	return defaultH.Handle(ctx, e)
}

func newDefaultHandler(ctx context.Context) (*Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.SetupLogger(cfg.LogLevel)

	if err = cfg.ValidateCloud(); err != nil {
		return nil, err
	}

	uploader, err := gcsApi.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := pipelineService.New(cfg, pipelineService.Deps{
		Renderer:   b3Scraper.New(cfg, devtoolsApi.New(cfg)),
		Extractor:  tableParser.New(cfg.Scraper.TableClass),
		Partitions: parquetStorage.New(cfg),
		Uploader:   uploader,
		Metrics:    metrics.New(cfg, "cloud"),
	})

	return NewHandler(svc), nil
}
