package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/codeagent/workspace"
)

// RateConfig describes one sliding-window rate limit.
type RateConfig struct {
	MaxCalls      int     `yaml:"max_calls"`
	PeriodSeconds float64 `yaml:"period_seconds"`
}

// Period returns the window as a duration.
func (r RateConfig) Period() time.Duration {
	return time.Duration(r.PeriodSeconds * float64(time.Second))
}

// LimitsConfig mirrors workspace.Limits with YAML tags. Zero values fall
// back to the workspace defaults.
type LimitsConfig struct {
	MaxReadSize       int64 `yaml:"max_read_size"`
	MaxWriteSize      int   `yaml:"max_write_size"`
	MaxSearchFileSize int64 `yaml:"max_search_file_size"`
	MaxFilesPerSearch int   `yaml:"max_files_per_search"`
	MaxSearchResults  int   `yaml:"max_search_results"`
}

func (l LimitsConfig) toWorkspace() workspace.Limits {
	return workspace.Limits{
		MaxReadSize:       l.MaxReadSize,
		MaxWriteSize:      l.MaxWriteSize,
		MaxSearchFileSize: l.MaxSearchFileSize,
		MaxFilesPerSearch: l.MaxFilesPerSearch,
		MaxSearchResults:  l.MaxSearchResults,
	}
}

// Config holds everything a run needs.
type Config struct {
	Workspace           string       `yaml:"workspace"`
	Provider            string       `yaml:"provider"`
	Model               string       `yaml:"model"`
	MaxIterations       int          `yaml:"max_iterations"`
	LoopDetectionWindow int          `yaml:"loop_detection_window"`
	APIRate             RateConfig   `yaml:"api_rate_limit"`
	ToolRate            RateConfig   `yaml:"tool_rate_limit"`
	Limits              LimitsConfig `yaml:"limits"`
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		Workspace:           ".",
		Provider:            "gemini",
		MaxIterations:       20,
		LoopDetectionWindow: 6,
		APIRate:             RateConfig{MaxCalls: 10, PeriodSeconds: 60},
		ToolRate:            RateConfig{MaxCalls: 30, PeriodSeconds: 60},
	}
}

// LoadConfig reads a YAML config file and fills unset fields with
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workspace == "" {
		c.Workspace = d.Workspace
	}
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.LoopDetectionWindow <= 0 {
		c.LoopDetectionWindow = d.LoopDetectionWindow
	}
	if c.APIRate.MaxCalls <= 0 || c.APIRate.PeriodSeconds <= 0 {
		c.APIRate = d.APIRate
	}
	if c.ToolRate.MaxCalls <= 0 || c.ToolRate.PeriodSeconds <= 0 {
		c.ToolRate = d.ToolRate
	}
	return c
}
