package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/rfm/config.yml.
type GlobalConfig struct {
	DefaultRoot string `yaml:"default_root,omitempty"` // Fallback root when cwd is not inside one
	LookupEmail string `yaml:"lookup_email,omitempty"` // Contact email sent to the metadata service
	LookupToken string `yaml:"lookup_token,omitempty"` // API token for the metadata service
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "rfm"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override global config values.
const (
	EnvLookupEmail = "REFMARK_EMAIL"
	EnvLookupToken = "REFMARK_TOKEN"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/rfm/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	// Expand tilde in default_root
	if cfg.DefaultRoot != "" {
		cfg.DefaultRoot = ExpandPath(cfg.DefaultRoot)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable value if set, otherwise
// the config value.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}

// GetLookupEmail returns the metadata-service contact email.
// REFMARK_EMAIL takes priority over the global config.
func GetLookupEmail() string {
	cfg, _ := LoadGlobalConfig()
	return GetConfigValue(EnvLookupEmail, cfg.LookupEmail)
}

// GetLookupToken returns the metadata-service API token.
// REFMARK_TOKEN takes priority over the global config.
func GetLookupToken() string {
	cfg, _ := LoadGlobalConfig()
	return GetConfigValue(EnvLookupToken, cfg.LookupToken)
}

// GetDefaultRoot returns the configured fallback root from global config.
func GetDefaultRoot() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.DefaultRoot
}

// ErrRootNotConfigured is returned when no root is found and default_root is not set.
var ErrRootNotConfigured = errors.New("default_root not configured")

// ErrRootNotExist is returned when the configured default_root is not a refmark root.
var ErrRootNotExist = errors.New("default_root is not a refmark root")

// ResolveRoot finds the refmark root for a starting path, falling back to
// the global default_root when the walk finds nothing.
func ResolveRoot(start string) (string, error) {
	root, err := FindRoot(start)
	if err == nil {
		return root, nil
	}

	fallback := GetDefaultRoot()
	if fallback == "" {
		return "", fmt.Errorf("%w: %v", ErrRootNotConfigured, err)
	}
	if !IsRoot(fallback) {
		return "", fmt.Errorf("%w: %s", ErrRootNotExist, fallback)
	}
	return fallback, nil
}

// HelpfulConfigMessage returns guidance printed when no root can be resolved.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No refmark root found.

Tip: run 'rfm init' in your document tree, or create %s to set a default:
  mkdir -p %s
  echo 'default_root: /path/to/your/docs' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
