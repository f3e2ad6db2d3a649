package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/digital-products/constants"
)

// ConfigFileEnv names the optional YAML file layered under environment variables.
const ConfigFileEnv = "PRODUCT_BATCH_CONFIG"

// Config holds all application configuration
type Config struct {
	SourceDir string        `yaml:"source_dir"`
	Run       RunConfig     `yaml:"run"`
	Store     StoreConfig   `yaml:"store"`
	Storage   StorageConfig `yaml:"storage"`
	Ledger    LedgerConfig  `yaml:"ledger"`
	Webhook   WebhookConfig `yaml:"webhook"`
	Log       LogConfig     `yaml:"log"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Report    ReportConfig  `yaml:"report"`
}

// RunConfig holds per-run knobs
type RunConfig struct {
	Limit       int  `yaml:"limit"`        // max PDFs handed to catalog creation, 0 = all
	InspectPDFs bool `yaml:"inspect_pdfs"` // parse PDFs with pdfcpu before creating products
}

// StoreConfig holds storefront API configuration
type StoreConfig struct {
	URL         string        `yaml:"url"`
	AccessToken string        `yaml:"access_token"`
	APIVersion  string        `yaml:"api_version"`
	RateLimit   float64       `yaml:"rate_limit"` // requests per second
	Burst       int           `yaml:"burst"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig holds cloud storage configuration
type StorageConfig struct {
	Backend         string   `yaml:"backend"`
	CredentialsFile string   `yaml:"credentials_file"`
	DriveFolderID   string   `yaml:"drive_folder_id"`
	GCSBucket       string   `yaml:"gcs_bucket"`
	Prefix          string   `yaml:"prefix"` // object key prefix for gcs and s3
	S3              S3Config `yaml:"s3"`
}

// S3Config holds S3/MinIO connection settings
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LedgerConfig holds ledger backend configuration
type LedgerConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // csv and sqlite
	DSN     string `yaml:"dsn"`  // postgres
}

// WebhookConfig holds the notification sink configuration
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig holds diagnostic log configuration
type LogConfig struct {
	File    string `yaml:"file"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"` // tee JSON records to stderr
}

// MetricsConfig holds metrics output configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ReportConfig holds report export configuration
type ReportConfig struct {
	XLSXPath string `yaml:"xlsx_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			APIVersion: "2024-01",
			RateLimit:  2,
			Burst:      4,
			Timeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: constants.StorageDrive,
		},
		Ledger: LedgerConfig{
			Backend: constants.LedgerCSV,
		},
		Webhook: WebhookConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			File:  "CreateProducts.log",
			Level: "info",
		},
	}
}

// LoadConfig loads defaults, then the optional YAML file named by PRODUCT_BATCH_CONFIG,
// then environment variables. Set variables win.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ConfigError(fmt.Sprintf("read %s", path), err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return ConfigError(fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.SourceDir = getEnv("SOURCE_DIR", c.SourceDir)
	c.Run.Limit = getEnvAsInt("RUN_LIMIT", c.Run.Limit)
	c.Run.InspectPDFs = getEnvAsBool("INSPECT_PDFS", c.Run.InspectPDFs)

	c.Store.URL = getEnv("SHOPIFY_STORE_URL", c.Store.URL)
	c.Store.AccessToken = getEnv("SHOPIFY_ACCESS_TOKEN", c.Store.AccessToken)
	c.Store.APIVersion = getEnv("SHOPIFY_API_VERSION", c.Store.APIVersion)
	c.Store.RateLimit = getEnvAsFloat64("SHOPIFY_RATE_LIMIT", c.Store.RateLimit)
	c.Store.Burst = getEnvAsInt("SHOPIFY_BURST", c.Store.Burst)
	c.Store.Timeout = getEnvAsDuration("SHOPIFY_TIMEOUT", c.Store.Timeout)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.CredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.Storage.CredentialsFile)
	c.Storage.DriveFolderID = getEnv("DRIVE_FOLDER_ID", c.Storage.DriveFolderID)
	c.Storage.GCSBucket = getEnv("GCS_BUCKET", c.Storage.GCSBucket)
	c.Storage.Prefix = getEnv("STORAGE_PREFIX", c.Storage.Prefix)
	c.Storage.S3.Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3.Endpoint)
	c.Storage.S3.Bucket = getEnv("S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.Storage.S3.AccessKey)
	c.Storage.S3.SecretKey = getEnv("S3_SECRET_KEY", c.Storage.S3.SecretKey)
	c.Storage.S3.Region = getEnv("S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.UseSSL = getEnvAsBool("S3_USE_SSL", c.Storage.S3.UseSSL)

	c.Ledger.Backend = getEnv("LEDGER_BACKEND", c.Ledger.Backend)
	c.Ledger.Path = getEnv("LEDGER_PATH", c.Ledger.Path)
	c.Ledger.DSN = getEnv("LEDGER_DSN", c.Ledger.DSN)

	c.Webhook.URL = getEnv("WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Timeout = getEnvAsDuration("WEBHOOK_TIMEOUT", c.Webhook.Timeout)

	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Console = getEnvAsBool("LOG_CONSOLE", c.Log.Console)

	c.Metrics.Textfile = getEnv("METRICS_TEXTFILE", c.Metrics.Textfile)
	c.Report.XLSXPath = getEnv("REPORT_XLSX", c.Report.XLSXPath)
}

// LedgerPath returns the configured ledger path, defaulting to the CSV inside SourceDir.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	name := constants.LedgerFileName
	if c.Ledger.Backend == constants.LedgerSQLite {
		name = "product_pdf_data.db"
	}
	return filepath.Join(c.SourceDir, name)
}

// CatalogPath returns the location of the catalog template inside SourceDir.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.SourceDir, constants.ConfigFileName)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("SOURCE_DIR", c.SourceDir, Required).
		Field("SHOPIFY_STORE_URL", c.Store.URL, Required).
		Field("SHOPIFY_ACCESS_TOKEN", c.Store.AccessToken, Required).
		Field("SHOPIFY_API_VERSION", c.Store.APIVersion, Required).
		Field("SHOPIFY_RATE_LIMIT", c.Store.RateLimit, Positive).
		Field("SHOPIFY_BURST", c.Store.Burst, Positive).
		Field("STORAGE_BACKEND", c.Storage.Backend, OneOf(constants.StorageDrive, constants.StorageGCS, constants.StorageS3)).
		Field("LEDGER_BACKEND", c.Ledger.Backend, OneOf(constants.LedgerCSV, constants.LedgerSQLite, constants.LedgerPostgres)).
		Field("WEBHOOK_URL", c.Webhook.URL, AbsoluteURL).
		Field("LOG_LEVEL", c.Log.Level, OneOf("debug", "info", "warn", "error"))

	switch c.Storage.Backend {
	case constants.StorageDrive:
		v.Field("GOOGLE_CREDENTIALS_FILE", c.Storage.CredentialsFile, Required)
	case constants.StorageGCS:
		v.Field("GOOGLE_CREDENTIALS_FILE", c.Storage.CredentialsFile, Required).
			Field("GCS_BUCKET", c.Storage.GCSBucket, Required)
	case constants.StorageS3:
		v.Field("S3_ENDPOINT", c.Storage.S3.Endpoint, Required).
			Field("S3_BUCKET", c.Storage.S3.Bucket, Required).
			Field("S3_ACCESS_KEY", c.Storage.S3.AccessKey, Required).
			Field("S3_SECRET_KEY", c.Storage.S3.SecretKey, Required)
	}
	v.When(c.Ledger.Backend == constants.LedgerPostgres, "LEDGER_DSN", c.Ledger.DSN, Required)
	v.When(c.Run.Limit < 0, "RUN_LIMIT", c.Run.Limit, Positive)

	if err := v.Error(); err != nil {
		return ConfigError("invalid configuration", err)
	}
	if info, err := os.Stat(c.SourceDir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return ConfigError(fmt.Sprintf("source dir %s", c.SourceDir), err)
	}
	return nil
}
