package devtoolsApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/externalApi"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/go-resty/resty/v2"
)

// VersionInfo is the body of GET /json/version on a Chrome DevTools endpoint.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type DevtoolsApi struct {
	client    *resty.Client
	remoteURL string
}

func New(cfg *config.Config) *DevtoolsApi {
	client := resty.New().
		SetDebug(cfg.Browser.Debug).
		SetTimeout(cfg.Browser.ProbeTimeout).
		SetBaseURL(strings.TrimRight(cfg.Browser.RemoteURL, "/"))
	return &DevtoolsApi{client: client, remoteURL: cfg.Browser.RemoteURL}
}

func (a *DevtoolsApi) GetVersion(ctx context.Context) (VersionInfo, error) {
	runID := utils.GetRunIDFromCtx(ctx)

	slog.Debug("start DevtoolsApi.GetVersion request", slog.String("runID", runID), slog.String("remoteURL", a.remoteURL))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/json/version")
	if err != nil {
		slog.Error("error while dialing devtools endpoint", slog.String("err", err.Error()), slog.String("runID", runID))
		return VersionInfo{}, err
	}

	if resp.IsError() {
		return VersionInfo{}, fmt.Errorf("%w: %s", externalApi.ErrUnexpectedStatus, resp.Status())
	}

	info := VersionInfo{}
	if err = json.Unmarshal(resp.Body(), &info); err != nil {
		slog.Error("can't unmarshall response into devtoolsApi.VersionInfo", slog.String("err", err.Error()), slog.String("runID", runID))
		return VersionInfo{}, err
	}

	slog.Debug("DevtoolsApi.GetVersion request complete", slog.String("runID", runID), slog.String("browser", info.Browser))

	return info, nil
}

// WebSocketURL resolves the browser-level debugger URL. A ws:// or wss:// remote
// URL is returned unchanged; an http(s) one is discovered through /json/version
// and its host rewritten to the configured host, since Chrome reports the
// address it listens on, not the one it is reached through.
func (a *DevtoolsApi) WebSocketURL(ctx context.Context) (string, error) {
	remote, err := url.Parse(a.remoteURL)
	if err != nil {
		return "", fmt.Errorf("parse BROWSER_REMOTE_URL: %w", err)
	}

	switch remote.Scheme {
	case "ws", "wss":
		return a.remoteURL, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported BROWSER_REMOTE_URL scheme %q", remote.Scheme)
	}

	info, err := a.GetVersion(ctx)
	if err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", errors.New("devtools endpoint returned no webSocketDebuggerUrl")
	}

	ws, err := url.Parse(info.WebSocketDebuggerURL)
	if err != nil {
		return "", fmt.Errorf("parse webSocketDebuggerUrl: %w", err)
	}
	ws.Host = remote.Host
	if remote.Scheme == "https" {
		ws.Scheme = "wss"
	}

	return ws.String(), nil
}
