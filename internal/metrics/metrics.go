package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunMetrics collects the figures of a single batch run. Batch jobs don't live
// long enough to be scraped, so they are pushed to a Pushgateway at the end.
type RunMetrics struct {
	pushgatewayURL string
	job            string
	registry       *prometheus.Registry

	RawRows     prometheus.Gauge
	Records     prometheus.Gauge
	Duration    prometheus.Gauge
	LastSuccess prometheus.Gauge
	Failures    *prometheus.CounterVec
}

func New(cfg *config.Config, variant string) *RunMetrics {
	labels := prometheus.Labels{"variant": variant}

	m := &RunMetrics{
		pushgatewayURL: cfg.Metrics.PushgatewayURL,
		job:            cfg.Metrics.Job,
		registry:       prometheus.NewRegistry(),
		RawRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "index_etl_raw_rows",
			Help:        "Rows read from the rendered composition table",
			ConstLabels: labels,
		}),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "index_etl_refined_records",
			Help:        "Refined records written by the last run",
			ConstLabels: labels,
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "index_etl_run_duration_seconds",
			Help:        "Wall time of the last run",
			ConstLabels: labels,
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "index_etl_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful run",
			ConstLabels: labels,
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "index_etl_failures_total",
			Help:        "Failed runs by stage",
			ConstLabels: labels,
		}, []string{"stage"}),
	}

	m.registry.MustRegister(m.RawRows, m.Records, m.Duration, m.LastSuccess, m.Failures)
	return m
}

// Finish records the outcome of the run and pushes it when a Pushgateway is
// configured. A push error is logged, never returned: metrics must not fail
// the run.
func (m *RunMetrics) Finish(ctx context.Context, started time.Time, stage string, runErr error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "RunMetrics.Finish"

	m.Duration.Set(time.Since(started).Seconds())
	if runErr != nil {
		m.Failures.WithLabelValues(stage).Inc()
	} else {
		m.LastSuccess.SetToCurrentTime()
	}

	if m.pushgatewayURL == "" {
		return
	}

	err := push.New(m.pushgatewayURL, m.job).
		Gatherer(m.registry).
		Grouping("instance", "index_etl").
		PushContext(ctx)
	if err != nil {
		slog.Warn("can't push metrics", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}

	slog.Debug("metrics pushed", slog.String("runID", runID), slog.String("op", op))
}
