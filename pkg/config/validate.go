package config

import "fmt"

// Validate checks the full configuration for consistency. It returns the
// first problem found.
func (c *Config) Validate() error {
	if err := c.Aggregation.Validate(); err != nil {
		return fmt.Errorf("aggregation: %w", err)
	}
	if err := c.Fallback.Validate(); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	if err := c.validateCritics(); err != nil {
		return fmt.Errorf("critics: %w", err)
	}
	if err := c.validatePrecedent(); err != nil {
		return fmt.Errorf("precedent: %w", err)
	}
	if c.Privacy.AgeRangeSize <= 0 {
		return fmt.Errorf("privacy: age_range_size must be positive, got %d", c.Privacy.AgeRangeSize)
	}
	if c.Retention.RetentionDays < 0 {
		return fmt.Errorf("retention: retention_days must be non-negative, got %d", c.Retention.RetentionDays)
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit: buffer_size must be positive, got %d", c.Audit.BufferSize)
	}
	switch c.Telemetry.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry: unknown log_level %q", c.Telemetry.LogLevel)
	}
	switch c.Telemetry.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry: unknown log_format %q", c.Telemetry.LogFormat)
	}
	return nil
}

func (c *Config) validateCritics() error {
	if c.Critics.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.Critics.MaxWorkers)
	}
	if c.Critics.CriticTimeout <= 0 {
		return fmt.Errorf("critic_timeout must be positive, got %s", c.Critics.CriticTimeout)
	}

	seen := make(map[string]bool, len(c.Critics.Definitions))
	for i, d := range c.Critics.Definitions {
		if d.Name == "" {
			return fmt.Errorf("definition %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate critic name %q", d.Name)
		}
		seen[d.Name] = true

		switch d.Type {
		case "keyword":
			if len(d.Keywords) == 0 {
				return fmt.Errorf("critic %q: keyword critics need at least one keyword", d.Name)
			}
		case "length":
			if d.MaxLength <= 0 {
				return fmt.Errorf("critic %q: length critics need a positive max_length", d.Name)
			}
		default:
			return fmt.Errorf("critic %q: unknown type %q", d.Name, d.Type)
		}

		if d.Weight < 0 {
			return fmt.Errorf("critic %q: weight must be non-negative, got %f", d.Name, d.Weight)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("critic %q: confidence must be in [0,1], got %f", d.Name, d.Confidence)
		}
		if d.Priority != "" && d.Priority != "override" {
			return fmt.Errorf("critic %q: unknown priority %q", d.Name, d.Priority)
		}
	}
	return nil
}

func (c *Config) validatePrecedent() error {
	switch c.Precedent.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Precedent.Storage.Driver)
	}

	switch c.Precedent.IndexBackend {
	case "bruteforce", "chromem":
	default:
		return fmt.Errorf("unknown index backend %q", c.Precedent.IndexBackend)
	}

	switch c.Precedent.Embedding.Provider {
	case "", "openai", "static":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Precedent.Embedding.Provider)
	}
	if c.Precedent.Embedding.Provider == "openai" && c.Precedent.Embedding.OpenAI.APIKey == "" {
		return fmt.Errorf("openai embedding provider requires an api_key")
	}

	if err := c.Precedent.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}
