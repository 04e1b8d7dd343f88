package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/fallback"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// MINOS_SECTION_FIELD (e.g. MINOS_STORAGE_PATH) and always take precedence
// over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies MINOS_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Aggregation overrides
	if val := os.Getenv("MINOS_AGGREGATION_BLOCK_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Aggregation.BlockThreshold = f
		}
	}
	if val := os.Getenv("MINOS_AGGREGATION_AMBIGUITY_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Aggregation.AmbiguityThreshold = f
		}
	}
	if val := os.Getenv("MINOS_AGGREGATION_MORAL_MODE"); val != "" {
		cfg.Aggregation.MoralMode = aggregation.MoralMode(val)
	}

	// Fallback overrides
	if val := os.Getenv("MINOS_FALLBACK_STRATEGY"); val != "" {
		cfg.Fallback.Strategy = fallback.Strategy(val)
	}
	if val := os.Getenv("MINOS_FALLBACK_ERROR_RATE_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Fallback.ErrorRateThreshold = f
		}
	}

	// Critics overrides
	if val := os.Getenv("MINOS_CRITICS_MAX_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Critics.MaxWorkers = i
		}
	}
	if val := os.Getenv("MINOS_CRITICS_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Critics.CriticTimeout = d
		}
	}
	if val := os.Getenv("MINOS_CRITICS_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Critics.Cache.Enabled = b
		}
	}

	// Storage overrides
	if val := os.Getenv("MINOS_STORAGE_PATH"); val != "" {
		cfg.Precedent.Storage.Path = val
	}
	if val := os.Getenv("MINOS_STORAGE_DRIVER"); val != "" {
		cfg.Precedent.Storage.Driver = val
	}

	// Embedding overrides
	if val := os.Getenv("MINOS_EMBEDDING_PROVIDER"); val != "" {
		cfg.Precedent.Embedding.Provider = val
	}
	if val := os.Getenv("MINOS_EMBEDDING_API_KEY"); val != "" {
		cfg.Precedent.Embedding.OpenAI.APIKey = val
	}
	if val := os.Getenv("MINOS_EMBEDDING_BASE_URL"); val != "" {
		cfg.Precedent.Embedding.OpenAI.BaseURL = val
	}
	if val := os.Getenv("MINOS_INDEX_BACKEND"); val != "" {
		cfg.Precedent.IndexBackend = val
	}

	// Retention overrides
	if val := os.Getenv("MINOS_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.RetentionDays = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("MINOS_LOG_LEVEL"); val != "" {
		cfg.Telemetry.LogLevel = val
	}
	if val := os.Getenv("MINOS_LOG_FORMAT"); val != "" {
		cfg.Telemetry.LogFormat = val
	}
	if val := os.Getenv("MINOS_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.MetricsAddress = val
	}
}
