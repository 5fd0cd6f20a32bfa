package b3Scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/chromedp/chromedp"
)

const (
	rowPollInterval   = 250 * time.Millisecond
	diagnosticTimeout = 10 * time.Second
	debugMarkupFile   = "pagina_debug.html"
)

// WebSocketResolver finds the debugger URL of an already running browser.
type WebSocketResolver interface {
	WebSocketURL(ctx context.Context) (string, error)
}

// Scraper drives a browser to the index page and forces the paginated
// composition table to show every row.
type Scraper struct {
	cfg      config.Scraper
	browser  config.Browser
	resolver WebSocketResolver
}

// New builds a Scraper. resolver is only used when BROWSER_REMOTE_URL is set.
func New(cfg *config.Config, resolver WebSocketResolver) *Scraper {
	return &Scraper{cfg: cfg.Scraper, browser: cfg.Browser, resolver: resolver}
}

// Render returns the markup of the page once the whole table is on screen.
// The browser is started and released inside the call, whatever the outcome.
func (s *Scraper) Render(ctx context.Context) (markup string, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "Scraper.Render"

	slog.Info("Render start", slog.String("runID", runID), slog.String("op", op), slog.String("url", s.cfg.URL))
	defer func() {
		if err != nil {
			slog.Error("Render failed", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("Render completed", slog.String("runID", runID), slog.String("op", op), slog.Int("bytes", len(markup)))
		}
	}()

	browserCtx, release, err := s.openBrowser(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	navCtx, cancel := context.WithTimeout(browserCtx, s.cfg.PageLoadTimeout)
	err = chromedp.Run(navCtx, chromedp.Navigate(s.cfg.URL))
	cancel()
	if err != nil {
		s.captureDiagnostics(browserCtx, "navigate")
		return "", fmt.Errorf("navigate to %s: %w", s.cfg.URL, err)
	}
	slog.Debug("page loaded", slog.String("runID", runID), slog.String("op", op))

	if err = s.showAllRows(browserCtx); err != nil {
		s.captureDiagnostics(browserCtx, "dropdown")
		return "", err
	}

	if err = chromedp.Run(browserCtx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		s.captureDiagnostics(browserCtx, "markup")
		return "", fmt.Errorf("read rendered markup: %w", err)
	}

	if s.cfg.SaveMarkup {
		s.writeDiagnostic(ctx, debugMarkupFile, []byte(markup))
	}

	return markup, nil
}

func (s *Scraper) openBrowser(ctx context.Context) (context.Context, func(), error) {
	runID := utils.GetRunIDFromCtx(ctx)

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)

	if s.browser.RemoteURL != "" {
		if s.resolver == nil {
			return nil, nil, errors.New("BROWSER_REMOTE_URL set without a devtools resolver")
		}
		wsURL, err := s.resolver.WebSocketURL(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve remote browser: %w", err)
		}
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, wsURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.browser.Headless),
			chromedp.DisableGPU,
		)
		if s.browser.NoSandbox {
			opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-dev-shm-usage", true))
		}
		if s.browser.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(s.browser.ExecPath))
		}
		if s.browser.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(s.browser.UserAgent))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf("chromedp: "+format, args...), slog.String("runID", runID))
		}),
	)

	release := func() {
		if err := chromedp.Cancel(browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("can't close browser gracefully", slog.String("runID", runID), slog.String("err", err.Error()))
		}
		cancelBrowser()
		cancelAlloc()
		slog.Debug("browser released", slog.String("runID", runID))
	}

	// starts the browser under browserCtx, not under a step timeout
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	return browserCtx, release, nil
}

func (s *Scraper) selectSelector() string {
	return "#" + s.cfg.SelectID
}

// showAllRows selects the largest page size and waits for the table to
// re-render with it.
func (s *Scraper) showAllRows(ctx context.Context) error {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "Scraper.showAllRows"
	sel := s.selectSelector()

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ElementTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %s after %s: %w", ErrElementNotFound, sel, s.cfg.ElementTimeout, err)
	}

	var options []Option
	var before pageState
	err = chromedp.Run(ctx,
		chromedp.Evaluate(listOptionsJS(sel), &options),
		chromedp.Evaluate(pageStateJS(sel, s.cfg.TableSelector), &before),
	)
	if err != nil {
		return fmt.Errorf("read page size options: %w", err)
	}

	target, err := pickMaxOption(options)
	if err != nil {
		return err
	}
	slog.Info("largest page size found", slog.String("runID", runID), slog.String("op", op), slog.String("option", target.Text), slog.Int("rowsBefore", before.Rows))

	var applied string
	var dispatched bool
	err = chromedp.Run(ctx,
		chromedp.Evaluate(setValueJS(sel, target.Value), &applied),
		chromedp.Evaluate(dispatchChangeJS(sel), &dispatched),
	)
	if err != nil {
		return fmt.Errorf("select page size %s: %w", target.Value, err)
	}
	if applied != target.Value {
		return fmt.Errorf("select page size %s: select kept value %q", target.Value, applied)
	}

	return s.waitForTable(ctx, before, target)
}

func (s *Scraper) waitForTable(ctx context.Context, before pageState, target Option) error {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "Scraper.waitForTable"

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.TableTimeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(s.cfg.TableSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %s after %s: %w", ErrTableNotRendered, s.cfg.TableSelector, s.cfg.TableTimeout, err)
	}

	// A full page before the change means more rows are coming; a short one
	// already held the whole table.
	pageWasFull := before.Value != target.Value && before.Rows > 0 && strconv.Itoa(before.Rows) == before.Value
	if pageWasFull {
		var changed bool
		err := chromedp.Run(waitCtx, chromedp.Poll(
			rowsChangedJS(s.cfg.TableSelector, before.Rows),
			&changed,
			chromedp.WithPollingInterval(rowPollInterval),
			chromedp.WithPollingTimeout(s.cfg.TableTimeout),
		))
		if err != nil {
			return fmt.Errorf("%w: still %d rows after %s: %w", ErrTableNotRendered, before.Rows, s.cfg.TableTimeout, err)
		}
		slog.Debug("table re-rendered", slog.String("runID", runID), slog.String("op", op), slog.Int("rowsBefore", before.Rows))
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleDelay)); err != nil {
		return err
	}

	slog.Info("table loaded", slog.String("runID", runID), slog.String("op", op))
	return nil
}

// captureDiagnostics saves a screenshot and the current markup so a failed
// run can be inspected offline. Failures here are only logged.
func (s *Scraper) captureDiagnostics(browserCtx context.Context, stage string) {
	runID := utils.GetRunIDFromCtx(browserCtx)

	ctx, cancel := context.WithTimeout(browserCtx, diagnosticTimeout)
	defer cancel()

	var screenshot []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&screenshot, 90)); err != nil {
		slog.Warn("can't capture screenshot", slog.String("runID", runID), slog.String("stage", stage), slog.String("err", err.Error()))
	} else {
		s.writeDiagnostic(browserCtx, fmt.Sprintf("erro_%s_%s.png", stage, fileSafe(runID)), screenshot)
	}

	var markup string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		slog.Warn("can't capture markup", slog.String("runID", runID), slog.String("stage", stage), slog.String("err", err.Error()))
		return
	}
	s.writeDiagnostic(browserCtx, fmt.Sprintf("erro_%s_%s.html", stage, fileSafe(runID)), []byte(markup))
}

func (s *Scraper) writeDiagnostic(ctx context.Context, name string, content []byte) {
	runID := utils.GetRunIDFromCtx(ctx)

	if err := os.MkdirAll(s.cfg.DiagnosticsDir, 0o755); err != nil {
		slog.Warn("can't create diagnostics dir", slog.String("runID", runID), slog.String("err", err.Error()))
		return
	}

	path := filepath.Join(s.cfg.DiagnosticsDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		slog.Warn("can't write diagnostic file", slog.String("runID", runID), slog.String("path", path), slog.String("err", err.Error()))
		return
	}
	slog.Info("diagnostic file saved", slog.String("runID", runID), slog.String("path", path))
}

func fileSafe(runID string) string {
	if runID == "" {
		return "norun"
	}
	return runID
}
