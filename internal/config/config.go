// Package config loads sigcore settings from defaults, an optional YAML or
// TOML file and SIGCORE_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
)

// Environment variables.
const (
	EnvConfig         = "SIGCORE_CONFIG"
	EnvStorageDriver  = "SIGCORE_STORAGE_DRIVER"
	EnvSQLitePath     = "SIGCORE_SQLITE_PATH"
	EnvPostgresDSN    = "SIGCORE_POSTGRES_DSN"
	EnvBlobDriver     = "SIGCORE_BLOB_DRIVER"
	EnvBlobFSRoot     = "SIGCORE_BLOB_FS_ROOT"
	EnvBlobS3Bucket   = "SIGCORE_BLOB_S3_BUCKET"
	EnvBlobS3Region   = "SIGCORE_BLOB_S3_REGION"
	EnvBlobS3Endpoint = "SIGCORE_BLOB_S3_ENDPOINT"
	EnvBlobS3Path     = "SIGCORE_BLOB_S3_PATH_STYLE"
	EnvLogLevel       = "SIGCORE_LOG_LEVEL"
	EnvLogFormat      = "SIGCORE_LOG_FORMAT"
)

// Storage selects the document store.
type Storage struct {
	Driver      string `yaml:"driver" toml:"driver"`
	SQLitePath  string `yaml:"sqlite_path" toml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" toml:"postgres_dsn"`
}

// Blob selects where export artifacts are written.
type Blob struct {
	Driver      string `yaml:"driver" toml:"driver"`
	FSRoot      string `yaml:"fs_root" toml:"fs_root"`
	S3Bucket    string `yaml:"s3_bucket" toml:"s3_bucket"`
	S3Region    string `yaml:"s3_region" toml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint" toml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style" toml:"s3_path_style"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Config is the full sigcore configuration.
type Config struct {
	Storage Storage `yaml:"storage" toml:"storage"`
	Blob    Blob    `yaml:"blob" toml:"blob"`
	Log     Log     `yaml:"log" toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: Storage{Driver: "memory", SQLitePath: "sigcore.db"},
		Blob:    Blob{Driver: "fs", FSRoot: "blobdata"},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// Validate checks enumerated settings and driver prerequisites.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("storage: postgres driver needs %s", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if strings.TrimSpace(c.Blob.S3Bucket) == "" {
			return fmt.Errorf("blob: s3 driver needs %s", EnvBlobS3Bucket)
		}
	default:
		return fmt.Errorf("blob: unknown driver %q", c.Blob.Driver)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}
