package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinishPushes(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New(&config.Config{Metrics: config.Metrics{PushgatewayURL: srv.URL, Job: "index_etl"}}, "local")
	m.Records.Set(2)
	m.Finish(context.Background(), time.Now().Add(-time.Second), "", nil)

	require.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/index_etl/instance/index_etl", path)
	assert.Contains(t, string(body), "index_etl_refined_records")
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Duration), 1.0)
}

func TestFinishCountsFailureStage(t *testing.T) {
	m := New(&config.Config{}, "cloud")
	m.Finish(context.Background(), time.Now(), "render", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("render")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))
}
