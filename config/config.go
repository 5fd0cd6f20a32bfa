package config

import (
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone    string `env:"TIMEZONE" envDefault:"America/Sao_Paulo"`
	Browser     Browser
	Scraper     Scraper
	Storage     Storage
	Catalog     Catalog
	Redis       Redis
	Lock        Lock
	GCS         GCS
	GoogleDrive GoogleDrive
	Report      Report
	Metrics     Metrics
	CloudFn     CloudFn
}

type Browser struct {
	ExecPath  string `env:"BROWSER_EXEC_PATH"`
	RemoteURL string `env:"BROWSER_REMOTE_URL"`
	Headless  bool   `env:"BROWSER_HEADLESS" envDefault:"true"`
	NoSandbox bool   `env:"BROWSER_NO_SANDBOX" envDefault:"false"`
	UserAgent string `env:"BROWSER_USER_AGENT"`
	// Debug enables resty request dumps while discovering a remote browser.
	Debug        bool          `env:"BROWSER_DEBUG" envDefault:"false"`
	ProbeTimeout time.Duration `env:"BROWSER_PROBE_TIMEOUT" envDefault:"10s"`
}

type Scraper struct {
	URL             string        `env:"SCRAPER_URL" envDefault:"https://sistemaswebb3-listados.b3.com.br/indexPage/day/IBOV?language=pt-br"`
	PageLoadTimeout time.Duration `env:"SCRAPER_PAGE_LOAD_TIMEOUT" envDefault:"20s"`
	ElementTimeout  time.Duration `env:"SCRAPER_ELEMENT_TIMEOUT" envDefault:"40s"`
	TableTimeout    time.Duration `env:"SCRAPER_TABLE_TIMEOUT" envDefault:"40s"`
	SettleDelay     time.Duration `env:"SCRAPER_SETTLE_DELAY" envDefault:"1s"`
	SelectID        string        `env:"SCRAPER_SELECT_ID" envDefault:"selectPage"`
	TableSelector   string        `env:"SCRAPER_TABLE_SELECTOR" envDefault:"table.table-responsive-md"`
	TableClass      string        `env:"SCRAPER_TABLE_CLASS" envDefault:"table table-responsive-sm table-responsive-md"`
	DiagnosticsDir  string        `env:"SCRAPER_DIAGNOSTICS_DIR" envDefault:"diagnostics"`
	SaveMarkup      bool          `env:"SCRAPER_SAVE_MARKUP" envDefault:"true"`
}

type Storage struct {
	BaseDir         string `env:"STORAGE_BASE_DIR" envDefault:"tabelas"`
	RefinedFileName string `env:"STORAGE_REFINED_FILE_NAME" envDefault:"dados_refinados.parquet"`
	RawFileName     string `env:"STORAGE_RAW_FILE_NAME" envDefault:"dados_brutos.parquet"`
	TempDir         string `env:"STORAGE_TEMP_DIR"`
}

type Catalog struct {
	// Driver is "sqlite" or "pgx".
	Driver          string        `env:"CATALOG_DRIVER" envDefault:"sqlite"`
	DSN             string        `env:"CATALOG_DSN" envDefault:"catalogo_glue.db"`
	ConnAttempts    int           `env:"CATALOG_CONN_ATTEMPTS" envDefault:"10"`
	MaxOpenConns    int           `env:"CATALOG_MAX_OPEN_CONNS" envDefault:"1"`
	ConnMaxLifetime time.Duration `env:"CATALOG_CONN_MAX_LIFETIME" envDefault:"5m"`
	InsertBatchSize int           `env:"CATALOG_INSERT_BATCH_SIZE" envDefault:"100"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Lock struct {
	// Backend is "file", "redis" or "none".
	Backend  string        `env:"LOCK_BACKEND" envDefault:"file"`
	FilePath string        `env:"LOCK_FILE" envDefault:"pipeline.lock"`
	RedisKey string        `env:"LOCK_REDIS_KEY" envDefault:"index_composition_etl:run"`
	TTL      time.Duration `env:"LOCK_TTL" envDefault:"15m"`
}

type GCS struct {
	Bucket          string `env:"GCS_BUCKET"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	Endpoint        string `env:"GCS_ENDPOINT"`
	RawPrefix       string `env:"GCS_RAW_PREFIX" envDefault:"raw"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

type Report struct {
	Dir      string `env:"REPORT_DIR" envDefault:"reports"`
	Terminal bool   `env:"REPORT_TERMINAL" envDefault:"true"`
	Xlsx     bool   `env:"REPORT_XLSX" envDefault:"true"`
	BarWidth int    `env:"REPORT_BAR_WIDTH" envDefault:"40"`
}

type Metrics struct {
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`
	Job            string `env:"METRICS_JOB" envDefault:"index_composition_etl"`
}

type CloudFn struct {
	Port         string `env:"PORT" envDefault:"8080"`
	FunctionName string `env:"FUNCTION_TARGET" envDefault:"ScrapeIndexRaw"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}
	return cfg
}

// Location returns the time zone the reference date is computed in. Load
// rejects an unknown TIMEZONE, so the UTC fallback only applies to configs
// built by hand.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) validate() error {
	switch c.Catalog.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unknown CATALOG_DRIVER %q", c.Catalog.Driver)
	}

	switch c.Lock.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.Lock.Backend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.Scraper.URL == "" {
		return errors.New("SCRAPER_URL is empty")
	}

	if c.Catalog.InsertBatchSize <= 0 {
		return errors.New("CATALOG_INSERT_BATCH_SIZE must be positive")
	}

	return nil
}

// ValidateCloud checks the settings only the cloud function needs.
func (c *Config) ValidateCloud() error {
	if c.GCS.Bucket == "" {
		return errors.New("GCS_BUCKET is required for the cloud function")
	}
	return nil
}
