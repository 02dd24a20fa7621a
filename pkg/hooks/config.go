// Package hooks runs user commands around ftv exports.
// Hooks are configured in .ftv/hooks.yaml and run before and after each
// exported file is written.
package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase is when a hook runs relative to writing the export.
type HookPhase string

const (
	// PreExport failures with on_error "fail" cancel the export.
	PreExport HookPhase = "pre-export"
	// PostExport hooks see the written file in FTV_EXPORT_PATH.
	PostExport HookPhase = "post-export"
)

// OnError values.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout applies to hooks without a timeout.
const DefaultTimeout = 30 * time.Second

// Hook config location, relative to the project directory.
const (
	ConfigDir  = ".ftv"
	ConfigFile = "hooks.yaml"
)

// Hook is one shell command. Timeout accepts a Go duration or bare seconds.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Timeout time.Duration     `yaml:"-"`
	Env     map[string]string `yaml:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty"`
}

// Config is the parsed hooks file.
type Config struct {
	Hooks HooksByPhase `yaml:"hooks"`
}

// HooksByPhase lists hooks in run order per phase.
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty"`
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.Hooks.PreExport)+len(c.Hooks.PostExport) == 0
}

// ExportContext describes the export a hook runs around.
type ExportContext struct {
	ExportPath      string
	ExportFormat    string // sqlite, svg or markdown
	FamilyName      string
	PersonCount     int
	GenerationCount int
	Timestamp       time.Time
}

// ToEnv returns the FTV_* variables hooks receive.
func (c ExportContext) ToEnv() []string {
	return []string{
		"FTV_EXPORT_PATH=" + c.ExportPath,
		"FTV_EXPORT_FORMAT=" + c.ExportFormat,
		"FTV_FAMILY=" + c.FamilyName,
		"FTV_PERSON_COUNT=" + strconv.Itoa(c.PersonCount),
		"FTV_GENERATION_COUNT=" + strconv.Itoa(c.GenerationCount),
		"FTV_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// LoadConfig reads projectDir/.ftv/hooks.yaml. A missing file is an empty
// config. Hooks with a blank command are dropped and reported as warnings;
// the others get a name, timeout and on_error default for their phase.
func LoadConfig(projectDir string) (*Config, []string, error) {
	path := filepath.Join(projectDir, ConfigDir, ConfigFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var warnings []string
	cfg.Hooks.PreExport = withDefaults(cfg.Hooks.PreExport, PreExport, OnErrorFail, &warnings)
	cfg.Hooks.PostExport = withDefaults(cfg.Hooks.PostExport, PostExport, OnErrorContinue, &warnings)
	return &cfg, warnings, nil
}

func withDefaults(hooks []Hook, phase HookPhase, onError string, warnings *[]string) []Hook {
	out := hooks[:0]
	for i, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		if h.Timeout == 0 {
			h.Timeout = DefaultTimeout
		}
		if h.OnError == "" {
			h.OnError = onError
		}
		out = append(out, h)
	}
	return out
}

// UnmarshalYAML decodes a hook, parsing its timeout.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	type plain Hook
	var aux struct {
		plain   `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	*h = Hook(aux.plain)
	if aux.Timeout == "" {
		return nil
	}
	d, err := time.ParseDuration(aux.Timeout)
	if err != nil {
		secs, numErr := strconv.ParseFloat(aux.Timeout, 64)
		if numErr != nil {
			return fmt.Errorf("invalid timeout %q: %w", aux.Timeout, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	h.Timeout = d
	return nil
}
