package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/fallback"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}

	if cfg.Aggregation.BlockThreshold != 2.0 {
		t.Errorf("BlockThreshold = %v, want 2.0", cfg.Aggregation.BlockThreshold)
	}
	if cfg.Fallback.Strategy != fallback.StrategyConservative {
		t.Errorf("Strategy = %v, want conservative", cfg.Fallback.Strategy)
	}
	if cfg.Critics.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.Critics.MaxWorkers)
	}
	if cfg.Precedent.Storage.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want sqlite3", cfg.Precedent.Storage.Driver)
	}
	if cfg.Precedent.IndexBackend != "bruteforce" {
		t.Errorf("IndexBackend = %q, want bruteforce", cfg.Precedent.IndexBackend)
	}
	if cfg.Telemetry.LogLevel != "info" || cfg.Telemetry.LogFormat != "json" {
		t.Errorf("telemetry defaults = %q/%q", cfg.Telemetry.LogLevel, cfg.Telemetry.LogFormat)
	}
}

func TestLoadConfig_PartialFileGetsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
aggregation:
  block_threshold: 3.5
critics:
  definitions:
    - name: safety
      type: keyword
      keywords: ["forbidden"]
      confidence: 0.9
      critical: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Aggregation.BlockThreshold != 3.5 {
		t.Errorf("BlockThreshold = %v, want file value 3.5", cfg.Aggregation.BlockThreshold)
	}
	// Unset fields fall back to defaults.
	if cfg.Aggregation.ErrorReviewThreshold != 0.5 {
		t.Errorf("ErrorReviewThreshold = %v, want default 0.5", cfg.Aggregation.ErrorReviewThreshold)
	}
	if cfg.Critics.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want default 8", cfg.Critics.MaxWorkers)
	}
	if cfg.Critics.CriticTimeout != 10*time.Second {
		t.Errorf("CriticTimeout = %v, want default 10s", cfg.Critics.CriticTimeout)
	}

	if len(cfg.Critics.Definitions) != 1 || !cfg.Critics.Definitions[0].Critical {
		t.Errorf("definitions not loaded: %+v", cfg.Critics.Definitions)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "aggregation: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "duplicate critic names",
			yaml: `
critics:
  definitions:
    - {name: dup, type: keyword, keywords: ["x"]}
    - {name: dup, type: keyword, keywords: ["y"]}
`,
			wantErr: "duplicate critic name",
		},
		{
			name: "keyword critic without keywords",
			yaml: `
critics:
  definitions:
    - {name: empty, type: keyword}
`,
			wantErr: "at least one keyword",
		},
		{
			name: "unknown critic type",
			yaml: `
critics:
  definitions:
    - {name: odd, type: regex}
`,
			wantErr: "unknown type",
		},
		{
			name: "unknown storage driver",
			yaml: `
precedent:
  storage:
    driver: postgres
`,
			wantErr: "unknown storage driver",
		},
		{
			name: "openai without key",
			yaml: `
precedent:
  embedding:
    provider: openai
`,
			wantErr: "api_key",
		},
		{
			name: "bad ambiguity threshold",
			yaml: `
aggregation:
  ambiguity_threshold: 1.5
`,
			wantErr: "ambiguity_threshold",
		},
		{
			name: "bad log level",
			yaml: `
telemetry:
  log_level: loud
`,
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
aggregation:
  block_threshold: 2.0
precedent:
  storage:
    path: from-file.db
`)

	t.Setenv("MINOS_AGGREGATION_BLOCK_THRESHOLD", "4.5")
	t.Setenv("MINOS_STORAGE_PATH", "from-env.db")
	t.Setenv("MINOS_FALLBACK_STRATEGY", string(fallback.StrategyEscalate))
	t.Setenv("MINOS_CRITICS_TIMEOUT", "2s")
	t.Setenv("MINOS_LOG_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Aggregation.BlockThreshold != 4.5 {
		t.Errorf("BlockThreshold = %v, want env 4.5", cfg.Aggregation.BlockThreshold)
	}
	if cfg.Precedent.Storage.Path != "from-env.db" {
		t.Errorf("Path = %q, want env value", cfg.Precedent.Storage.Path)
	}
	if cfg.Fallback.Strategy != fallback.StrategyEscalate {
		t.Errorf("Strategy = %v, want escalate", cfg.Fallback.Strategy)
	}
	if cfg.Critics.CriticTimeout != 2*time.Second {
		t.Errorf("CriticTimeout = %v, want 2s", cfg.Critics.CriticTimeout)
	}
	if cfg.Telemetry.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Telemetry.LogLevel)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValueFails(t *testing.T) {
	path := writeConfigFile(t, "")

	t.Setenv("MINOS_FALLBACK_STRATEGY", "COIN_FLIP")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("expected validation failure for invalid env strategy")
	}
}

func TestApplyDefaults_DoesNotClobberExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Aggregation.MoralMode = aggregation.ModeDeontological
	cfg.Precedent.Storage.Driver = "sqlite"
	cfg.ApplyDefaults()

	if cfg.Aggregation.MoralMode != aggregation.ModeDeontological {
		t.Errorf("MoralMode = %v, explicit value clobbered", cfg.Aggregation.MoralMode)
	}
	if cfg.Precedent.Storage.Driver != "sqlite" {
		t.Errorf("Driver = %q, explicit value clobbered", cfg.Precedent.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config must validate: %v", err)
	}
}
