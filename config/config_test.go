package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "selectPage", cfg.Scraper.SelectID)
	assert.Equal(t, 40*time.Second, cfg.Scraper.ElementTimeout)
	assert.Equal(t, "table table-responsive-sm table-responsive-md", cfg.Scraper.TableClass)
	assert.Equal(t, "catalogo_glue.db", cfg.Catalog.DSN)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, "dados_refinados.parquet", cfg.Storage.RefinedFileName)
	assert.Equal(t, "raw", cfg.GCS.RawPrefix)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCRAPER_URL", "http://localhost:9999/index")
	t.Setenv("SCRAPER_TABLE_TIMEOUT", "5s")
	t.Setenv("LOCK_BACKEND", "none")
	t.Setenv("CATALOG_DRIVER", "pgx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/index", cfg.Scraper.URL)
	assert.Equal(t, 5*time.Second, cfg.Scraper.TableTimeout)
	assert.Equal(t, "none", cfg.Lock.Backend)
	assert.Equal(t, "pgx", cfg.Catalog.Driver)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "etcd")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("LOCK_BACKEND", "file")
	t.Setenv("CATALOG_DRIVER", "mysql")
	_, err = Load()
	require.Error(t, err)
}

func TestValidateCloud(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.ValidateCloud())

	cfg.GCS.Bucket = "landing"
	require.NoError(t, cfg.ValidateCloud())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "America/Sao_Paulo"
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "America/Atlantis")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEZONE")
}
