package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/docs"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"RefmarkPath", RefmarkPath, "/test/docs/.refmark"},
		{"ConfigPath", ConfigPath, "/test/docs/.refmark/config.yaml"},
		{"MappingsPath", MappingsPath, "/test/docs/.refmark/mappings.jsonl"},
		{"CachePath", CachePath, "/test/docs/.refmark/cache"},
		{"DBPath", DBPath, "/test/docs/.refmark/cache/history.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// Not a root initially
	if IsRoot(tmpDir) {
		t.Error("IsRoot() = true for plain directory")
	}

	// Create .refmark directory
	if err := os.Mkdir(filepath.Join(tmpDir, RefmarkDir), 0755); err != nil {
		t.Fatalf("Failed to create .refmark: %v", err)
	}

	// Now it should be a root
	if !IsRoot(tmpDir) {
		t.Error("IsRoot() = false for initialized directory")
	}
}

func TestIsRoot_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	// Create .refmark as a file, not directory
	marker := filepath.Join(tmpDir, RefmarkDir)
	if err := os.WriteFile(marker, []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .refmark file: %v", err)
	}

	// Should not be considered a root
	if IsRoot(tmpDir) {
		t.Error("IsRoot() = true when .refmark is a file")
	}
}

func TestFindRoot(t *testing.T) {
	// Create nested structure: /tmp/xxx/docs/.refmark
	tmpDir := t.TempDir()
	rootDir := filepath.Join(tmpDir, "docs")
	nestedDir := filepath.Join(rootDir, "drafts", "2026")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(rootDir, RefmarkDir), 0755); err != nil {
		t.Fatalf("Failed to create .refmark: %v", err)
	}

	// Find from nested dir should return the root
	found, err := FindRoot(nestedDir)
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if found != rootDir {
		t.Errorf("FindRoot() = %q, want %q", found, rootDir)
	}

	// Find from the root itself
	found, err = FindRoot(rootDir)
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if found != rootDir {
		t.Errorf("FindRoot() = %q, want %q", found, rootDir)
	}
}

func TestFindRoot_NotFound(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := FindRoot(tmpDir); err == nil {
		t.Skip("unexpected .refmark directory above temp dir")
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(filepath.Join(tmpDir, RefmarkDir), 0755); err != nil {
		t.Fatalf("Failed to create .refmark: %v", err)
	}

	cfg := Default()
	cfg.Verify.Window = 5
	cfg.Verify.Threshold = 0.25
	cfg.Lookup.Email = "reader@example.org"
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Verify.Window != 5 {
		t.Errorf("Verify.Window = %d, want 5", loaded.Verify.Window)
	}
	if loaded.Verify.Threshold != 0.25 {
		t.Errorf("Verify.Threshold = %g, want 0.25", loaded.Verify.Threshold)
	}
	if loaded.Lookup.Email != "reader@example.org" {
		t.Errorf("Lookup.Email = %q, want reader@example.org", loaded.Lookup.Email)
	}
	// Untouched options keep their defaults.
	if loaded.Verify.TopK != 10 {
		t.Errorf("Verify.TopK = %d, want 10", loaded.Verify.TopK)
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	// .refmark exists but holds no config file.
	if err := os.Mkdir(filepath.Join(tmpDir, RefmarkDir), 0755); err != nil {
		t.Fatalf("Failed to create .refmark: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg.Verify != want.Verify || cfg.Lookup != want.Lookup || cfg.History != want.History {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(filepath.Join(tmpDir, RefmarkDir), 0755); err != nil {
		t.Fatalf("Failed to create .refmark: %v", err)
	}
	if err := os.WriteFile(ConfigPath(tmpDir), []byte("verify: [broken"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestInitRoot(t *testing.T) {
	tmpDir := t.TempDir()

	if err := InitRoot(tmpDir); err != nil {
		t.Fatalf("InitRoot() error = %v", err)
	}

	if !IsRoot(tmpDir) {
		t.Error("InitRoot() did not create .refmark")
	}
	if info, err := os.Stat(CachePath(tmpDir)); err != nil || !info.IsDir() {
		t.Error("InitRoot() did not create cache directory")
	}
	if _, err := os.Stat(ConfigPath(tmpDir)); err != nil {
		t.Error("InitRoot() did not write config.yaml")
	}

	// Second init must refuse
	if err := InitRoot(tmpDir); err == nil {
		t.Error("InitRoot() should fail on an initialized root")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero window", func(c *Config) { c.Verify.Window = 0 }, true},
		{"zero top_k", func(c *Config) { c.Verify.TopK = 0 }, true},
		{"negative threshold", func(c *Config) { c.Verify.Threshold = -0.1 }, true},
		{"threshold above one", func(c *Config) { c.Verify.Threshold = 1.5 }, true},
		{"zero rps", func(c *Config) { c.Lookup.RPS = 0 }, true},
		{"zero timeout", func(c *Config) { c.Lookup.TimeoutSeconds = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	if got := ExpandPath("~/notes"); got != filepath.Join(home, "notes") {
		t.Errorf("ExpandPath(~/notes) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q, want unchanged", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q, want empty", got)
	}
}

func TestConstants(t *testing.T) {
	// Verify constants have expected values
	if RefmarkDir != ".refmark" {
		t.Errorf("RefmarkDir = %q, want .refmark", RefmarkDir)
	}
	if ConfigFile != "config.yaml" {
		t.Errorf("ConfigFile = %q, want config.yaml", ConfigFile)
	}
	if MappingsFile != "mappings.jsonl" {
		t.Errorf("MappingsFile = %q, want mappings.jsonl", MappingsFile)
	}
	if CacheDir != "cache" {
		t.Errorf("CacheDir = %q, want cache", CacheDir)
	}
	if DBFile != "history.db" {
		t.Errorf("DBFile = %q, want history.db", DBFile)
	}
}
