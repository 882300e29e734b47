package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpilot/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".testpilot.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.True(t, cfg.Coverage.Enabled)
	assert.Equal(t, 80.0, cfg.Coverage.UnitThreshold)
	assert.Equal(t, 50, cfg.Coverage.HistoryLimit)
	assert.Equal(t, 10, cfg.Complexity.WarningThreshold)
	assert.Equal(t, 20, cfg.Complexity.ErrorThreshold)
	assert.Len(t, cfg.Suites, 2)
	assert.Equal(t, ".testpilot/history.db", cfg.StoragePath)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
suites:
  - type: unit
    pattern: "**/*.spec.ts"
    watch_patterns: ["lib/**/*.ts"]
    command: "npm test"
    priority: 1
    enabled: true
coverage:
  enabled: false
  unit_threshold: 70
  e2e_threshold: 50
  history_limit: 10
cache:
  ttls:
    ticket-system: 45s
    deployment-status: 2m
storage_path: "/tmp/testpilot.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Suites, 1)
	assert.Equal(t, types.SuiteUnit, cfg.Suites[0].Type)
	assert.Equal(t, "npm test", cfg.Suites[0].Command)

	assert.False(t, cfg.Coverage.Enabled)
	assert.Equal(t, 70.0, cfg.Coverage.UnitThreshold)
	assert.Equal(t, 10, cfg.Coverage.HistoryLimit)
	assert.Equal(t, "/tmp/testpilot.db", cfg.StoragePath)

	assert.Equal(t, 45*time.Second, cfg.Cache.TTLFor("ticket-system"))
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTLFor("deployment-status"))
	assert.Equal(t, time.Duration(0), cfg.Cache.TTLFor("never-configured"))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "suites: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttls:
    ticket-system: soonish
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parsing duration "soonish"`)
}

func TestLoadInvalidShape(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "suite without command",
			content: `
suites:
  - type: unit
    watch_patterns: ["src/**"]
    enabled: true
`,
			wantErr: "has no command",
		},
		{
			name: "unknown suite type",
			content: `
suites:
  - type: smoke
    watch_patterns: ["src/**"]
    command: "npm test"
`,
			wantErr: "invalid suite type",
		},
		{
			name:    "threshold out of range",
			content: "coverage:\n  unit_threshold: 140\n",
			wantErr: "unit_threshold",
		},
		{
			name:    "non-positive history limit",
			content: "coverage:\n  history_limit: 0\n",
			wantErr: "history_limit",
		},
		{
			name:    "warning above error threshold",
			content: "complexity:\n  warning_threshold: 25\n",
			wantErr: "below error threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnabledSuites(t *testing.T) {
	cfg := &Config{Suites: []types.TestSuiteDefinition{
		{Type: types.SuiteUnit, Enabled: true},
		{Type: types.SuiteE2E, Enabled: false},
		{Type: types.SuiteUI, Enabled: true},
	}}

	enabled := cfg.EnabledSuites()
	require.Len(t, enabled, 2)
	assert.Equal(t, types.SuiteUnit, enabled[0].Type)
	assert.Equal(t, types.SuiteUI, enabled[1].Type)
}
