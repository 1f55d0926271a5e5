package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds router configuration, grounded on the teacher's
// internal/mcp.Config.
type Config struct {
	Enabled         bool                 `yaml:"enabled"`
	Strategy        string               `yaml:"strategy"`
	MaxToolsPerTask int                  `yaml:"max_tools_per_task"`
	Priority        map[string]int       `yaml:"priority"`
	Groups          map[string][]string  `yaml:"groups"`
	AlwaysOn        []string             `yaml:"always_on"`
	AlwaysOff       []string             `yaml:"always_off"`
	Rules           []RoutingRule        `yaml:"rules"`
}

// RoutingRule triggers enabling a set of ToolSets when a task's title
// or description matches.
type RoutingRule struct {
	Keywords []string `yaml:"keywords"`
	Enable   []string `yaml:"enable"`
	Pattern  string   `yaml:"pattern,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Strategy:        "keywords",
		MaxToolsPerTask: 40,
		Priority: map[string]int{
			"registry": 100,
			"search":   70,
			"fileio":   60,
		},
		Groups: map[string][]string{
			"stateful": {"registry"},
			"research": {"search"},
		},
		AlwaysOn:  []string{},
		AlwaysOff: []string{},
		Rules: []RoutingRule{
			{Keywords: []string{"set", "update", "store", "remember"}, Enable: []string{"registry"}},
			{Keywords: []string{"search", "lookup", "find"}, Enable: []string{"search"}},
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to
// DefaultConfig if the file does not exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading tool router config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing tool router config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tool router config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes configuration to a YAML file.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxToolsPerTask < 1 {
		return fmt.Errorf("max_tools_per_task must be at least 1")
	}
	valid := map[string]bool{"auto": true, "keywords": true, "manual": true}
	if !valid[c.Strategy] {
		return fmt.Errorf("invalid strategy %q, must be: auto, keywords, or manual", c.Strategy)
	}
	return nil
}

// IsAlwaysOn reports whether name is in the always-on list.
func (c *Config) IsAlwaysOn(name string) bool {
	for _, n := range c.AlwaysOn {
		if n == name {
			return true
		}
	}
	return false
}

// IsAlwaysOff reports whether name is in the always-off list.
func (c *Config) IsAlwaysOff(name string) bool {
	for _, n := range c.AlwaysOff {
		if n == name {
			return true
		}
	}
	return false
}

// ExpandGroup expands a group name to its member set names, or returns
// name unchanged if it is not a group.
func (c *Config) ExpandGroup(name string) []string {
	if members, ok := c.Groups[name]; ok {
		return members
	}
	return []string{name}
}
