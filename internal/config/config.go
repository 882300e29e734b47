// Package config loads the testpilot configuration from YAML.
//
// Missing configuration falls back to defaults; a file that exists but
// does not parse, or parses into an invalid shape, is a fatal error for
// the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"testpilot/internal/types"
)

// Config is the root configuration for suite selection and workflows.
type Config struct {
	// Suites lists every configured test suite.
	Suites []types.TestSuiteDefinition `yaml:"suites"`

	// Coverage controls coverage-based selection.
	Coverage CoverageConfig `yaml:"coverage"`

	// CriticalPaths are files or globs whose change forces a full run.
	CriticalPaths CriticalPathConfig `yaml:"critical_paths"`

	// Complexity thresholds for classify().
	Complexity ComplexityConfig `yaml:"complexity"`

	// Cache holds per-operation TTLs for the workflow orchestrator.
	Cache CacheConfig `yaml:"cache"`

	// StoragePath is the sqlite database used for coverage history.
	// ":memory:" is supported for tests.
	StoragePath string `yaml:"storage_path"`
}

// CoverageConfig holds coverage thresholds as percentages (0-100).
type CoverageConfig struct {
	Enabled              bool    `yaml:"enabled"`
	UnitThreshold        float64 `yaml:"unit_threshold"`
	IntegrationThreshold float64 `yaml:"integration_threshold"`
	E2EThreshold         float64 `yaml:"e2e_threshold"`

	// ReportPath is where the coverage tool writes its JSON summary.
	ReportPath string `yaml:"report_path"`

	// HistoryLimit caps the coverage history; oldest entries evicted.
	HistoryLimit int `yaml:"history_limit"`
}

// CriticalPathConfig lists exact prefixes and glob patterns.
type CriticalPathConfig struct {
	Paths    []string `yaml:"paths"`
	Patterns []string `yaml:"patterns"`
}

// ComplexityConfig holds the warn/error thresholds for classification.
type ComplexityConfig struct {
	WarningThreshold int `yaml:"warning_threshold"`
	ErrorThreshold   int `yaml:"error_threshold"`
}

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// CacheConfig maps operation names to TTLs. An absent or zero entry
// means the operation is not cached.
type CacheConfig struct {
	TTLs map[string]Duration `yaml:"ttls"`
}

// TTLFor returns the cache TTL for an operation, or zero if uncached.
func (c CacheConfig) TTLFor(operation string) time.Duration {
	return time.Duration(c.TTLs[operation])
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Suites: []types.TestSuiteDefinition{
			{
				Type:          types.SuiteUnit,
				Pattern:       "**/*.test.{ts,tsx,js}",
				WatchPatterns: []string{"src/**/*.{ts,tsx,js}"},
				Command:       "npx jest",
				Priority:      1,
				Enabled:       true,
			},
			{
				Type:          types.SuiteE2E,
				Pattern:       "cypress/e2e/**/*.cy.ts",
				WatchPatterns: []string{"src/**/*.{ts,tsx}", "cypress/**/*.ts"},
				Command:       "npx cypress run",
				Priority:      3,
				Enabled:       true,
			},
		},
		Coverage: CoverageConfig{
			Enabled:              true,
			UnitThreshold:        80,
			IntegrationThreshold: 70,
			E2EThreshold:         60,
			ReportPath:           "coverage/coverage-summary.json",
			HistoryLimit:         50,
		},
		Complexity: ComplexityConfig{
			WarningThreshold: 10,
			ErrorThreshold:   20,
		},
		Cache: CacheConfig{
			TTLs: map[string]Duration{
				"repository-status": Duration(30 * time.Second),
				"ticket-system":     Duration(60 * time.Second),
				"deployment-status": Duration(300 * time.Second),
				"review-status":     Duration(60 * time.Second),
			},
		},
		StoragePath: ".testpilot/history.db",
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration shape. Shape errors are fatal and
// propagate to the caller; they are never papered over with defaults.
func (c *Config) Validate() error {
	for i := range c.Suites {
		if err := c.Suites[i].Validate(); err != nil {
			return fmt.Errorf("suite %d: %w", i, err)
		}
	}
	if c.Coverage.UnitThreshold < 0 || c.Coverage.UnitThreshold > 100 {
		return fmt.Errorf("unit_threshold must be 0-100 (got %g)", c.Coverage.UnitThreshold)
	}
	if c.Coverage.E2EThreshold < 0 || c.Coverage.E2EThreshold > 100 {
		return fmt.Errorf("e2e_threshold must be 0-100 (got %g)", c.Coverage.E2EThreshold)
	}
	if c.Coverage.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive (got %d)", c.Coverage.HistoryLimit)
	}
	if c.Complexity.WarningThreshold >= c.Complexity.ErrorThreshold {
		return fmt.Errorf("complexity warning threshold %d must be below error threshold %d",
			c.Complexity.WarningThreshold, c.Complexity.ErrorThreshold)
	}
	return nil
}

// EnabledSuites returns only the suites marked enabled.
func (c *Config) EnabledSuites() []types.TestSuiteDefinition {
	var out []types.TestSuiteDefinition
	for _, s := range c.Suites {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
