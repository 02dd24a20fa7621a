package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvData, EnvURL, EnvPassphrase} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.DefaultView != "list" {
		t.Errorf("expected default view 'list', got %q", cfg.UI.DefaultView)
	}
	if !cfg.UI.SearchInInfo {
		t.Error("expected info search on by default")
	}
	if cfg.UI.MaxResults != 50 {
		t.Errorf("expected max results 50, got %d", cfg.UI.MaxResults)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.DefaultView != "list" {
		t.Errorf("expected default config, got view %q", cfg.UI.DefaultView)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
family_name: 王
data:
  path: ~/family/family-data.json
  watch: true
auth:
  required: true
  passphrase: secret
  token_ttl: 2h
ui:
  default_view: tree
  search_in_info: false
  max_results: 20
server:
  addr: ":8080"
  cors_origins:
    - http://localhost:3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Title() != "王族谱" {
		t.Errorf("expected title 王族谱, got %q", cfg.Title())
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "family/family-data.json"); cfg.Data.Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Data.Path)
	}
	if !cfg.Data.Watch || !cfg.Auth.Required || cfg.Auth.Passphrase != "secret" {
		t.Errorf("unexpected data/auth section: %+v %+v", cfg.Data, cfg.Auth)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.UI.DefaultView != "tree" || cfg.UI.SearchInInfo || cfg.UI.MaxResults != 20 {
		t.Errorf("unexpected ui section: %+v", cfg.UI)
	}
	if cfg.UI.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected unset debounce to keep its default, got %s", cfg.UI.SearchDebounce)
	}
	if cfg.Server.Addr != ":8080" || len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data:\n  path: /from/file.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvData, "/from/env.json")
	t.Setenv(EnvURL, "https://example.org/api/family-data")
	t.Setenv(EnvPassphrase, "hunter2")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.Path != "/from/env.json" || cfg.Data.URL == "" || cfg.Auth.Passphrase != "hunter2" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Data, cfg.Auth)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad view", func(c *Config) { c.UI.DefaultView = "board" }, "default_view"},
		{"negative results", func(c *Config) { c.UI.MaxResults = -1 }, "max_results"},
		{"auth without passphrase", func(c *Config) { c.Auth.Required = true }, "passphrase"},
		{"negative ttl", func(c *Config) { c.Auth.TokenTTL = -time.Second }, "token_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.FamilyName = "李"
	cfg.Data.URL = "https://example.org/family"
	cfg.UI.DefaultView = "tree"
	cfg.Auth.TokenTTL = 90 * time.Minute

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.FamilyName != "李" || loaded.Data.URL != cfg.Data.URL {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
	if loaded.UI.DefaultView != "tree" || loaded.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("unexpected ui/auth after round trip: %+v %+v", loaded.UI, loaded.Auth)
	}
}

func TestHeaderStrings(t *testing.T) {
	cfg := Config{FamilyName: "张"}
	if cfg.Tagline() != "传承历史 · 延续文化" {
		t.Errorf("unexpected tagline %q", cfg.Tagline())
	}
	if cfg.Greeting() != "欢迎您，张族人" {
		t.Errorf("unexpected greeting %q", cfg.Greeting())
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "ftv")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if ConfigPath() != filepath.Join(expected, "config.yaml") {
		t.Errorf("unexpected config path %q", ConfigPath())
	}
}

func TestStateDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got := StateDir()
	expected := filepath.Join(dir, "ftv")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
