package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 10, cfg.APIRate.MaxCalls)
	assert.Equal(t, time.Minute, cfg.APIRate.Period())
	assert.Equal(t, 30, cfg.ToolRate.MaxCalls)
	assert.Equal(t, time.Minute, cfg.ToolRate.Period())
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"workspace: /tmp/proj\n"+
			"model: gemini-2.5-flash\n"+
			"max_iterations: 5\n"+
			"api_rate_limit:\n"+
			"  max_calls: 3\n"+
			"  period_seconds: 10\n",
	), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/proj", cfg.Workspace)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.APIRate.MaxCalls)
	assert.Equal(t, 10*time.Second, cfg.APIRate.Period())

	// Unset sections fall back to defaults.
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 30, cfg.ToolRate.MaxCalls)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
