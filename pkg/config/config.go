// Package config handles loading and saving ftv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/ftv/config.yaml
//   - State:   ~/.local/state/ftv/ (session token)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "ftv"

// Environment overrides, applied after the file is read.
const (
	EnvData       = "FTV_DATA"
	EnvURL        = "FTV_URL"
	EnvPassphrase = "FTV_PASSPHRASE"
)

// DataConfig says where family data comes from.
type DataConfig struct {
	Path  string `yaml:"path,omitempty"`  // Local JSON or SQLite file
	URL   string `yaml:"url,omitempty"`   // Remote endpoint, wins over Path when set
	Watch bool   `yaml:"watch,omitempty"` // Reload when Path changes on disk
}

// AuthConfig gates access behind a shared passphrase.
type AuthConfig struct {
	Required   bool          `yaml:"required,omitempty"`
	Passphrase string        `yaml:"passphrase,omitempty"`
	TokenTTL   time.Duration `yaml:"token_ttl,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DefaultView    string        `yaml:"default_view,omitempty"` // list, tree
	SearchInInfo   bool          `yaml:"search_in_info"`
	MaxResults     int           `yaml:"max_results,omitempty"`
	SearchDebounce time.Duration `yaml:"search_debounce,omitempty"`
}

// ServerConfig configures `ftv --serve`.
type ServerConfig struct {
	Addr        string   `yaml:"addr,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Config is the top-level configuration for ftv.
type Config struct {
	FamilyName string       `yaml:"family_name,omitempty"`
	Data       DataConfig   `yaml:"data,omitempty"`
	Auth       AuthConfig   `yaml:"auth,omitempty"`
	UI         UIConfig     `yaml:"ui,omitempty"`
	Server     ServerConfig `yaml:"server,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		UI: UIConfig{
			DefaultView:    "list",
			SearchInInfo:   true,
			MaxResults:     50,
			SearchDebounce: 300 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:3000",
		},
	}
}

// Title is the header shown above the family, e.g. "王氏族谱".
func (c Config) Title() string {
	return c.FamilyName + "族谱"
}

// Tagline is the fixed subtitle under the title.
func (c Config) Tagline() string {
	return "传承历史 · 延续文化"
}

// Greeting welcomes a signed-in member.
func (c Config) Greeting() string {
	return "欢迎您，" + c.FamilyName + "族人"
}

// ConfigDir returns the XDG config directory for ftv.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for ftv.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path, then applies environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvData); v != "" {
		c.Data.Path = expandHome(v)
	}
	if v := os.Getenv(EnvURL); v != "" {
		c.Data.URL = v
	}
	if v := os.Getenv(EnvPassphrase); v != "" {
		c.Auth.Passphrase = v
	}
}

// Validate checks settings that would otherwise fail later and far away.
func (c Config) Validate() error {
	switch c.UI.DefaultView {
	case "", "list", "tree":
	default:
		return fmt.Errorf("invalid ui.default_view %q (want list or tree)", c.UI.DefaultView)
	}
	if c.UI.MaxResults < 0 {
		return fmt.Errorf("invalid ui.max_results %d", c.UI.MaxResults)
	}
	if c.Auth.Required && c.Auth.Passphrase == "" {
		return fmt.Errorf("auth.required is set but no passphrase is configured (set auth.passphrase or %s)", EnvPassphrase)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("invalid auth.token_ttl %s", c.Auth.TokenTTL)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
