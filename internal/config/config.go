// Package config handles refmark root discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents tool configuration stored in .refmark/config.yaml.
type Config struct {
	Verify  Verify  `yaml:"verify" json:"verify"`
	Lookup  Lookup  `yaml:"lookup" json:"lookup"`
	History History `yaml:"history" json:"history"`
}

// Verify tunes the citation-context check.
type Verify struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Window     int     `yaml:"window" json:"window"`         // Lines of context on each side of a mark
	TopK       int     `yaml:"top_k" json:"top_k"`           // Context terms kept per citation
	Threshold  float64 `yaml:"threshold" json:"threshold"`   // Overlap below this is flagged
	Downweight bool    `yaml:"downweight" json:"downweight"` // Discount terms shared across entries
}

// Lookup configures the external metadata resolver.
type Lookup struct {
	BaseURL        string  `yaml:"base_url" json:"base_url"`
	Email          string  `yaml:"email,omitempty" json:"email,omitempty"` // Sent as mailto for polite-pool access
	RPS            float64 `yaml:"rps" json:"rps"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// History configures the run ledger.
type History struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

const (
	RefmarkDir   = ".refmark"
	ConfigFile   = "config.yaml"
	MappingsFile = "mappings.jsonl"
	CacheDir     = "cache"
	DBFile       = "history.db"
)

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Verify: Verify{
			Enabled:    true,
			Window:     3,
			TopK:       10,
			Threshold:  0.10,
			Downweight: true,
		},
		Lookup: Lookup{
			BaseURL:        "https://api.crossref.org",
			RPS:            2,
			TimeoutSeconds: 15,
		},
		History: History{
			Enabled: true,
		},
	}
}

// RefmarkPath returns the path to the .refmark directory from a root path.
func RefmarkPath(root string) string {
	return filepath.Join(root, RefmarkDir)
}

// ConfigPath returns the path to config.yaml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, RefmarkDir, ConfigFile)
}

// MappingsPath returns the path to mappings.jsonl from a root path.
func MappingsPath(root string) string {
	return filepath.Join(root, RefmarkDir, MappingsFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, RefmarkDir, CacheDir)
}

// DBPath returns the path to history.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, RefmarkDir, CacheDir, DBFile)
}

// IsRoot checks if the given path contains a refmark root.
func IsRoot(root string) bool {
	info, err := os.Stat(RefmarkPath(root))
	return err == nil && info.IsDir()
}

// FindRoot walks up from the given path to find a refmark root.
// Returns the root path or an error if not found.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRoot(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a refmark root (no .refmark directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the root at the given path. A missing
// config file yields the defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the root at the given path.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// InitRoot creates the .refmark directory with cache subdirectory and a
// default config file. Fails if the root is already initialized.
func InitRoot(root string) error {
	if IsRoot(root) {
		return fmt.Errorf("already a refmark root: %s", RefmarkPath(root))
	}

	if err := os.MkdirAll(CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", RefmarkDir, err)
	}

	return Default().Save(root)
}

// Validate checks option values that have meaningful bounds.
func (c *Config) Validate() error {
	if c.Verify.Window < 1 {
		return fmt.Errorf("verify.window must be at least 1, got %d", c.Verify.Window)
	}
	if c.Verify.TopK < 1 {
		return fmt.Errorf("verify.top_k must be at least 1, got %d", c.Verify.TopK)
	}
	if c.Verify.Threshold < 0 || c.Verify.Threshold > 1 {
		return fmt.Errorf("verify.threshold must be in [0, 1], got %g", c.Verify.Threshold)
	}
	if c.Lookup.RPS <= 0 {
		return fmt.Errorf("lookup.rps must be positive, got %g", c.Lookup.RPS)
	}
	if c.Lookup.TimeoutSeconds <= 0 {
		return fmt.Errorf("lookup.timeout_seconds must be positive, got %d", c.Lookup.TimeoutSeconds)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
