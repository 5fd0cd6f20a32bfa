package devtoolsApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApi(remoteURL string) *DevtoolsApi {
	return New(&config.Config{Browser: config.Browser{RemoteURL: remoteURL, ProbeTimeout: 5 * time.Second}})
}

func TestWebSocketURLDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Browser": "HeadlessChrome/131.0.6778.85",
			"Protocol-Version": "1.3",
			"webSocketDebuggerUrl": "ws://0.0.0.0:9222/devtools/browser/3f7c"
		}`))
	}))
	defer srv.Close()

	got, err := newApi(srv.URL).WebSocketURL(context.Background())
	require.NoError(t, err)

	host := strings.TrimPrefix(srv.URL, "http://")
	assert.Equal(t, "ws://"+host+"/devtools/browser/3f7c", got)
}

func TestWebSocketURLPassThrough(t *testing.T) {
	got, err := newApi("ws://chrome:9222/devtools/browser/abc").WebSocketURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ws://chrome:9222/devtools/browser/abc", got)
}

func TestWebSocketURLBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newApi(srv.URL).WebSocketURL(context.Background())
	require.ErrorIs(t, err, externalApi.ErrUnexpectedStatus)
}

func TestWebSocketURLMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Browser": "Chrome"}`))
	}))
	defer srv.Close()

	_, err := newApi(srv.URL).WebSocketURL(context.Background())
	require.Error(t, err)
}

func TestWebSocketURLUnsupportedScheme(t *testing.T) {
	_, err := newApi("ftp://chrome:9222").WebSocketURL(context.Background())
	require.Error(t, err)
}
