package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a config file over the defaults. The format follows the
// extension: .toml for TOML, anything else is YAML.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := mergeFile(&cfg, path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode toml %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml %s: %w", path, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the file named by
// SIGCORE_CONFIG (when set) and SIGCORE_* variables. getenv is usually
// os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv(EnvConfig); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.Driver, EnvStorageDriver)
	set(&cfg.Storage.SQLitePath, EnvSQLitePath)
	set(&cfg.Storage.PostgresDSN, EnvPostgresDSN)
	set(&cfg.Blob.Driver, EnvBlobDriver)
	set(&cfg.Blob.FSRoot, EnvBlobFSRoot)
	set(&cfg.Blob.S3Bucket, EnvBlobS3Bucket)
	set(&cfg.Blob.S3Region, EnvBlobS3Region)
	set(&cfg.Blob.S3Endpoint, EnvBlobS3Endpoint)
	set(&cfg.Log.Level, EnvLogLevel)
	set(&cfg.Log.Format, EnvLogFormat)
	if raw := strings.TrimSpace(getenv(EnvBlobS3Path)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBlobS3Path, err)
		}
		cfg.Blob.S3PathStyle = v
	}
	return nil
}
