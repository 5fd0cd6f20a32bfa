package b3Scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The page mimics the B3 widget: the table is rebuilt from a change listener
// on the select, and setting the value alone does nothing. The listener body is
// the second placeholder.
const pageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"></head><body>
%s
<div id="holder"></div>
<script>
const assets = ["ALOS3", "ABEV3", "ASAI3", "AZUL4", "B3SA3"];
function render(size) {
	const rows = assets.slice(0, size).map(a => "<tr><td>" + a + "</td><td>1.000</td></tr>").join("");
	document.getElementById("holder").innerHTML =
		'<table class="table table-responsive-sm table-responsive-md"><thead><tr><th>Código</th><th>Qtde. Teórica</th></tr></thead><tbody>' +
		rows + '</tbody></table>';
}
render(2);
const sel = document.getElementById("selectPage");
if (sel) {
	sel.addEventListener("change", () => { %s });
}
</script>
</body></html>`

func findChrome(t *testing.T) string {
	t.Helper()
	if os.Getenv("SKIP_BROWSER_TESTS") != "" {
		t.Skip("SKIP_BROWSER_TESTS set")
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary found")
	return ""
}

func newTestScraper(t *testing.T, url string) (*Scraper, string) {
	t.Helper()
	diag := t.TempDir()
	cfg := &config.Config{
		Browser: config.Browser{
			ExecPath:  findChrome(t),
			Headless:  true,
			NoSandbox: true,
		},
		Scraper: config.Scraper{
			URL:             url,
			PageLoadTimeout: 15 * time.Second,
			ElementTimeout:  2 * time.Second,
			TableTimeout:    5 * time.Second,
			SettleDelay:     100 * time.Millisecond,
			SelectID:        "selectPage",
			TableSelector:   "table.table-responsive-md",
			DiagnosticsDir:  diag,
		},
	}
	return New(cfg, nil), diag
}

const (
	rerenderLater = `setTimeout(() => render(parseInt(sel.value, 10)), 300);`
	dropTable     = `document.getElementById("holder").innerHTML = "";`
	ignoreChange  = ``
)

func serve(t *testing.T, selectMarkup string) string {
	t.Helper()
	return serveWith(t, selectMarkup, rerenderLater)
}

func serveWith(t *testing.T, selectMarkup, onChange string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, pageTemplate, selectMarkup, onChange)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRenderShowsAllRows(t *testing.T) {
	url := serve(t, `<select id="selectPage"><option value="2" selected>2</option><option value="4">4</option><option value="10">10</option></select>`)
	s, _ := newTestScraper(t, url)

	markup, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(markup, "1.000"))
	assert.Contains(t, markup, "B3SA3")
}

func TestRenderFailsOnNonNumericOption(t *testing.T) {
	url := serve(t, `<select id="selectPage"><option value="2">2</option><option value="all">Todos</option></select>`)
	s, diag := newTestScraper(t, url)

	_, err := s.Render(context.Background())
	require.ErrorIs(t, err, ErrOptionParse)

	shots, _ := filepath.Glob(filepath.Join(diag, "erro_dropdown_*.png"))
	assert.NotEmpty(t, shots, "a screenshot is captured before the error propagates")
}

func TestRenderFailsWithoutSelect(t *testing.T) {
	url := serve(t, ``)
	s, _ := newTestScraper(t, url)

	_, err := s.Render(context.Background())
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestRenderShortFirstPage(t *testing.T) {
	// 2 rows on a page of 10: the table is already complete, no row count wait
	url := serveWith(t, `<select id="selectPage"><option value="2">2</option><option value="10" selected>10</option><option value="20">20</option></select>`, ignoreChange)
	s, _ := newTestScraper(t, url)
	s.cfg.TableTimeout = time.Second

	markup, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(markup, "1.000"))
}

func TestRenderFailsWhenTableDisappears(t *testing.T) {
	url := serveWith(t, `<select id="selectPage"><option value="2" selected>2</option><option value="10">10</option></select>`, dropTable)
	s, diag := newTestScraper(t, url)
	s.cfg.TableTimeout = time.Second

	_, err := s.Render(context.Background())
	require.ErrorIs(t, err, ErrTableNotRendered)

	shots, _ := filepath.Glob(filepath.Join(diag, "erro_dropdown_*.png"))
	assert.NotEmpty(t, shots)
}

func TestRenderFailsWhenFullPageNeverGrows(t *testing.T) {
	url := serveWith(t, `<select id="selectPage"><option value="2" selected>2</option><option value="10">10</option></select>`, ignoreChange)
	s, diag := newTestScraper(t, url)
	s.cfg.TableTimeout = time.Second

	_, err := s.Render(context.Background())
	require.ErrorIs(t, err, ErrTableNotRendered)

	pages, _ := filepath.Glob(filepath.Join(diag, "erro_dropdown_*.html"))
	assert.NotEmpty(t, pages)
}
