package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeGlobalConfig(t *testing.T, configHome string, cfg GlobalConfig) {
	t.Helper()
	configDir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	// Save and restore XDG_CONFIG_HOME
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	// Test with custom XDG_CONFIG_HOME
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path := GlobalConfigPath()
	want := "/custom/config/rfm/config.yml"
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}

	// Test with empty XDG_CONFIG_HOME (should use ~/.config)
	os.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	path = GlobalConfigPath()
	want = filepath.Join(home, ".config", "rfm", "config.yml")
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	// Save and restore XDG_CONFIG_HOME
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	// Point to a non-existent directory
	tmpDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}

	// Should return empty config
	if cfg.DefaultRoot != "" {
		t.Errorf("DefaultRoot = %q, want empty", cfg.DefaultRoot)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	// Save and restore XDG_CONFIG_HOME
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := t.TempDir()
	writeGlobalConfig(t, tmpDir, GlobalConfig{
		DefaultRoot: "~/notes",
		LookupEmail: "reader@example.org",
		LookupToken: "tok-test",
	})
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	// Check tilde expansion
	home, _ := os.UserHomeDir()
	wantPath := filepath.Join(home, "notes")
	if cfg.DefaultRoot != wantPath {
		t.Errorf("DefaultRoot = %q, want %q", cfg.DefaultRoot, wantPath)
	}

	if cfg.LookupEmail != "reader@example.org" {
		t.Errorf("LookupEmail = %q, want reader@example.org", cfg.LookupEmail)
	}
	if cfg.LookupToken != "tok-test" {
		t.Errorf("LookupToken = %q, want tok-test", cfg.LookupToken)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	// Save and restore XDG_CONFIG_HOME
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(configDir, GlobalConfigFile)
	if err := os.WriteFile(bad, []byte("default_root: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	_, err := LoadGlobalConfig()
	if err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestGetConfigValue(t *testing.T) {
	// Save and restore env
	orig := os.Getenv("TEST_CONFIG_KEY")
	defer os.Setenv("TEST_CONFIG_KEY", orig)

	// Env var takes priority
	os.Setenv("TEST_CONFIG_KEY", "from-env")
	got := GetConfigValue("TEST_CONFIG_KEY", "from-config")
	if got != "from-env" {
		t.Errorf("GetConfigValue() = %q, want from-env", got)
	}

	// Fall back to config value
	os.Setenv("TEST_CONFIG_KEY", "")
	got = GetConfigValue("TEST_CONFIG_KEY", "from-config")
	if got != "from-config" {
		t.Errorf("GetConfigValue() = %q, want from-config", got)
	}
}

func TestGetLookupEmail(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	// Save and restore env
	orig := os.Getenv(EnvLookupEmail)
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		os.Setenv(EnvLookupEmail, orig)
		os.Setenv("XDG_CONFIG_HOME", origXDG)
	}()

	// Point to empty config
	tmpDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	// Env var takes priority
	os.Setenv(EnvLookupEmail, "env@example.org")
	if got := GetLookupEmail(); got != "env@example.org" {
		t.Errorf("GetLookupEmail() = %q, want env@example.org", got)
	}

	// Without env var, falls back to config
	os.Setenv(EnvLookupEmail, "")
	ResetGlobalConfigCache()

	writeGlobalConfig(t, tmpDir, GlobalConfig{LookupEmail: "cfg@example.org"})

	if got := GetLookupEmail(); got != "cfg@example.org" {
		t.Errorf("GetLookupEmail() = %q, want cfg@example.org", got)
	}
}

func TestResolveRoot_FallsBackToDefaultRoot(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	// A root somewhere else, configured as default_root.
	rootDir := t.TempDir()
	if err := InitRoot(rootDir); err != nil {
		t.Fatal(err)
	}

	configHome := t.TempDir()
	writeGlobalConfig(t, configHome, GlobalConfig{DefaultRoot: rootDir})
	os.Setenv("XDG_CONFIG_HOME", configHome)

	start := t.TempDir()
	if _, err := FindRoot(start); err == nil {
		t.Skip("unexpected .refmark directory above temp dir")
	}

	got, err := ResolveRoot(start)
	if err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if got != rootDir {
		t.Errorf("ResolveRoot() = %q, want %q", got, rootDir)
	}
}

func TestResolveRoot_NotConfigured(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	// Empty global config: no default_root.
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	start := t.TempDir()
	if _, err := FindRoot(start); err == nil {
		t.Skip("unexpected .refmark directory above temp dir")
	}

	_, err := ResolveRoot(start)
	if !errors.Is(err, ErrRootNotConfigured) {
		t.Errorf("ResolveRoot() error = %v, want ErrRootNotConfigured", err)
	}
}

func TestHelpfulConfigMessage(t *testing.T) {
	msg := HelpfulConfigMessage()
	if msg == "" {
		t.Error("HelpfulConfigMessage() returned empty string")
	}

	// Check that it mentions key elements
	if len(msg) < 50 {
		t.Error("HelpfulConfigMessage() seems too short")
	}
}

func TestGlobalConfigCache(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	// Save and restore XDG_CONFIG_HOME
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := t.TempDir()
	writeGlobalConfig(t, tmpDir, GlobalConfig{LookupToken: "cached-tok"})
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	// First load
	cfg1, _ := LoadGlobalConfig()
	if cfg1.LookupToken != "cached-tok" {
		t.Errorf("First load: LookupToken = %q, want cached-tok", cfg1.LookupToken)
	}

	// Modify file
	writeGlobalConfig(t, tmpDir, GlobalConfig{LookupToken: "modified-tok"})

	// Second load should return cached value
	cfg2, _ := LoadGlobalConfig()
	if cfg2.LookupToken != "cached-tok" {
		t.Errorf("Second load: LookupToken = %q, want cached-tok (cached)", cfg2.LookupToken)
	}

	// Reset cache
	ResetGlobalConfigCache()

	// Third load should read modified file
	cfg3, _ := LoadGlobalConfig()
	if cfg3.LookupToken != "modified-tok" {
		t.Errorf("Third load: LookupToken = %q, want modified-tok", cfg3.LookupToken)
	}
}
