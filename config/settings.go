package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LokiConfig enables forwarding of engine logs to a Loki endpoint.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Labels  map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string     `yaml:"level,omitempty" json:"level,omitempty"`
	Format string     `yaml:"format,omitempty" json:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki,omitempty" json:"loki,omitempty"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
}

// Settings bundles the process-level configuration consumed by the CLI.
type Settings struct {
	Logging   LoggingConfig   `yaml:"logging,omitempty" json:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}

// LoadSettings reads process settings from a YAML file.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New("settings path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	var settings Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings %s: %w", path, err)
	}
	return &settings, nil
}
