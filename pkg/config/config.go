package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

// FileName is the optional per-plugin configuration file
const FileName = "storenest-plugin.yaml"

// Config holds all CLI configuration. It is built once by Load and passed by
// value into each command; nothing reads settings from globals.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Package  PackageConfig `yaml:"package"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Tracing  TracingConfig `yaml:"tracing"`
	Ledger   LedgerConfig  `yaml:"ledger"`
	Publish  PublishConfig `yaml:"publish"`
}

// PackageConfig controls how artifacts are built
type PackageConfig struct {
	Archiver  string   `yaml:"archiver"` // exec or native
	ZipBinary string   `yaml:"zip_binary"`
	Exclude   []string `yaml:"exclude"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// TracingConfig holds OpenTelemetry export settings
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// LedgerConfig selects the database that records validation outcomes
type LedgerConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite3
	DSN    string `yaml:"dsn"`
}

// PublishConfig holds the S3 destination for published artifacts.
// Credentials are only read from the environment.
type PublishConfig struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
	AccessKey    string `yaml:"-"`
	SecretKey    string `yaml:"-"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel: "warn",
		Package: PackageConfig{
			Archiver:  "exec",
			ZipBinary: "zip",
			Exclude:   append(slices.Clone(plugins.DefaultExclusions), FileName),
		},
		Tracing: TracingConfig{
			ServiceName: "storenest-plugin",
		},
		Publish: PublishConfig{
			Region: "us-east-1",
			Prefix: "plugins",
		},
	}
}

// Load builds the configuration for a plugin directory: defaults, then the
// file named by STORENEST_CONFIG or dir/storenest-plugin.yaml, then STORENEST_* variables.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := getEnv("STORENEST_CONFIG", filepath.Join(dir, FileName))
	if err := loadFile(&cfg, path); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)

	// The config file can carry credentials and must never ship in an artifact
	cfg.Package.Exclude = appendMissing(cfg.Package.Exclude, FileName)
	if abs, err := filepath.Abs(path); err == nil {
		if absDir, err := filepath.Abs(dir); err == nil && filepath.Dir(abs) == absDir {
			cfg.Package.Exclude = appendMissing(cfg.Package.Exclude, filepath.Base(abs))
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML file into cfg. A missing file is not an error.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getEnv("STORENEST_LOG_LEVEL", cfg.LogLevel)

	cfg.Package.Archiver = getEnv("STORENEST_ARCHIVER", cfg.Package.Archiver)
	cfg.Package.ZipBinary = getEnv("STORENEST_ZIP_BINARY", cfg.Package.ZipBinary)
	if exclude := getEnv("STORENEST_EXCLUDE", ""); exclude != "" {
		cfg.Package.Exclude = splitList(exclude)
	}

	cfg.Metrics.Textfile = getEnv("STORENEST_METRICS_FILE", cfg.Metrics.Textfile)

	cfg.Tracing.Endpoint = getEnv("STORENEST_OTEL_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.ServiceName = getEnv("STORENEST_OTEL_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.Insecure = getEnvBool("STORENEST_OTEL_INSECURE", cfg.Tracing.Insecure)

	cfg.Ledger.Driver = getEnv("STORENEST_LEDGER_DRIVER", cfg.Ledger.Driver)
	cfg.Ledger.DSN = getEnv("STORENEST_LEDGER_DSN", cfg.Ledger.DSN)

	cfg.Publish.Bucket = getEnv("STORENEST_S3_BUCKET", cfg.Publish.Bucket)
	cfg.Publish.Region = getEnv("STORENEST_S3_REGION", cfg.Publish.Region)
	cfg.Publish.Endpoint = getEnv("STORENEST_S3_ENDPOINT", cfg.Publish.Endpoint)
	cfg.Publish.Prefix = getEnv("STORENEST_S3_PREFIX", cfg.Publish.Prefix)
	cfg.Publish.UsePathStyle = getEnvBool("STORENEST_S3_USE_PATH_STYLE", cfg.Publish.UsePathStyle)
	cfg.Publish.AccessKey = getEnv("STORENEST_S3_ACCESS_KEY", cfg.Publish.AccessKey)
	cfg.Publish.SecretKey = getEnv("STORENEST_S3_SECRET_KEY", cfg.Publish.SecretKey)
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	switch c.Package.Archiver {
	case "exec", "native":
	default:
		return fmt.Errorf("invalid archiver: %s (must be exec or native)", c.Package.Archiver)
	}
	if c.Package.Archiver == "exec" && c.Package.ZipBinary == "" {
		return fmt.Errorf("zip binary is required for the exec archiver")
	}

	switch c.Ledger.Driver {
	case "":
	case "postgres", "sqlite3":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger DSN is required for driver %s", c.Ledger.Driver)
		}
	default:
		return fmt.Errorf("invalid ledger driver: %s (must be postgres or sqlite3)", c.Ledger.Driver)
	}

	if (c.Publish.AccessKey == "") != (c.Publish.SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key must be set together")
	}

	return nil
}

func appendMissing(list []string, value string) []string {
	if slices.Contains(list, value) {
		return list
	}
	return append(slices.Clone(list), value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
