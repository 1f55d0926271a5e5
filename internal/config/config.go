// Package config holds the process-wide knobs described in spec.md §6:
// scan-ahead window size, thread pool sizing, the debug/cache path, and
// verbosity/timing flags. Grounded on the teacher's internal/mcp.Config/
// LoadConfig pattern (YAML, os.ReadFile, defaults-then-override).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration.
type Config struct {
	// MaxWindow bounds how far a scope's scan may race ahead of
	// execution (spec.md §4.3).
	MaxWindow int `yaml:"max_window"`
	// ThreadPoolDefaultSize bounds the sync ("python agent") worker
	// pool's concurrency.
	ThreadPoolDefaultSize int `yaml:"thread_pool_default_size"`
	// AsyncPoolDefaultSize bounds the async (LLM) worker pool's
	// concurrency.
	AsyncPoolDefaultSize int `yaml:"async_pool_default_size"`
	// DebugPath is loaded from the file but no other package reads it;
	// the model-client response cache is enabled by passing a Cache to
	// modelclient.New, not by this field.
	DebugPath string `yaml:"debug_path"`
	// TracePath roots the SQLite execution trace (internal/trace).
	// Empty disables tracing.
	TracePath string `yaml:"trace_path"`
	// Verbose is loaded from the file but no other package reads it; it
	// switches no per-event logging.
	Verbose bool `yaml:"verbose"`
	// Timing is loaded from the file but no other package reads it; it
	// switches no latency logging.
	Timing bool `yaml:"timing"`
}

// Default returns the baseline configuration used when no file is
// present, mirroring scheduler.DefaultConfig/executor.DefaultConfig's
// individual defaults collected into one process-wide knob set.
func Default() *Config {
	return &Config{
		MaxWindow:             32,
		ThreadPoolDefaultSize: 8,
		AsyncPoolDefaultSize:  64,
		DebugPath:             "",
		TracePath:             "",
		Verbose:               false,
		Timing:                false,
	}
}

// Load reads a YAML configuration file at path, falling back to
// Default if the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxWindow < 1 {
		return fmt.Errorf("max_window must be at least 1")
	}
	if c.ThreadPoolDefaultSize < 1 {
		return fmt.Errorf("thread_pool_default_size must be at least 1")
	}
	if c.AsyncPoolDefaultSize < 1 {
		return fmt.Errorf("async_pool_default_size must be at least 1")
	}
	return nil
}
