// Package config loads deployment configuration from a YAML file with
// environment-variable overrides. Environment always wins, so container
// deployments can run without a config file at all.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration root.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Index    IndexConfig    `yaml:"index"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig selects and parameterizes the record store driver.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// IndexConfig parameterizes the document index synchronizer.
type IndexConfig struct {
	// URL of the indexing service; empty disables synchronization.
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"`
	// Async moves pushes onto a background worker; QueueSize bounds its
	// queue.
	Async     bool `yaml:"async"`
	QueueSize int  `yaml:"queue_size"`
}

// ArtifactConfig selects and parameterizes closure-artifact storage.
type ArtifactConfig struct {
	Driver string   `yaml:"driver"` // fs|s3|memory
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3 / MinIO settings for the s3 artifact driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// LoggingConfig tunes the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error (default info)
	Format string `yaml:"format"` // text|json (default text)
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "anomalycore.db"},
		Index: IndexConfig{
			Timeout:         10 * time.Second,
			RetryAttempts:   3,
			RetryBackoff:    100 * time.Millisecond,
			MaxRetryBackoff: 2 * time.Second,
			QueueSize:       256,
		},
		Artifact: ArtifactConfig{Driver: "fs", FSRoot: "./artifacts"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Storage.Driver, "ANOMALYCORE_STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "ANOMALYCORE_SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "ANOMALYCORE_POSTGRES_DSN")

	setString(&c.Index.URL, "ANOMALYCORE_INDEX_URL")
	setBool(&c.Index.Async, "ANOMALYCORE_INDEX_ASYNC")
	setInt(&c.Index.QueueSize, "ANOMALYCORE_INDEX_QUEUE_SIZE")

	setString(&c.Artifact.Driver, "ANOMALYCORE_ARTIFACT_DRIVER")
	setString(&c.Artifact.FSRoot, "ANOMALYCORE_ARTIFACT_FS_ROOT")
	setString(&c.Artifact.S3.Bucket, "ANOMALYCORE_ARTIFACT_S3_BUCKET")
	setString(&c.Artifact.S3.Region, "ANOMALYCORE_ARTIFACT_S3_REGION")
	setString(&c.Artifact.S3.Endpoint, "ANOMALYCORE_ARTIFACT_S3_ENDPOINT")
	setBool(&c.Artifact.S3.PathStyle, "ANOMALYCORE_ARTIFACT_S3_PATH_STYLE")

	setString(&c.Logging.Level, "ANOMALYCORE_LOG_LEVEL")
	setString(&c.Logging.Format, "ANOMALYCORE_LOG_FORMAT")
}

// Logger builds the process slog.Logger from the logging section.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
