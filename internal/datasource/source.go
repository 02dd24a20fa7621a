// Package datasource discovers family data sources, validates them, and
// selects the one to load: JSON documents, SQLite exports, and a remote URL.
package datasource

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/familytree/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a family document on disk
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a database written by the SQLite export
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeURL is a remote endpoint serving a family document
	SourceTypeURL SourceType = "url"
)

// Priority values for source types (higher = more authoritative)
const (
	PriorityJSON          = 100
	PriorityJSONSecondary = 90
	PrioritySQLite        = 60
	PriorityURL           = 40
)

// DefaultValidateConcurrency bounds parallel validation.
const DefaultValidateConcurrency = 4

// DataSource represents a potential source of family data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file, or the URL
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source (zero for URLs)
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// PersonCount is the number of people in the source (set during validation)
	PersonCount int `json:"person_count"`
	// GenerationCount is the number of generations (set during validation)
	GenerationCount int `json:"generation_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	mod := "-"
	if !s.ModTime.IsZero() {
		mod = s.ModTime.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, people=%d, %s)",
		s.Path, s.Type, s.Priority, mod, s.PersonCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is searched for sources. Empty means ./config, else the working directory.
	Dir string
	// URL adds a remote source when set
	URL string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Client is used to validate URL sources. Nil uses a default client.
	Client *http.Client
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

func (o DiscoveryOptions) logf(format string, args ...any) {
	if o.Verbose && o.Logger != nil {
		o.Logger(fmt.Sprintf(format, args...))
	}
}

// DiscoverSources finds all potential data sources.
func DiscoverSources(ctx context.Context, opts DiscoveryOptions) ([]DataSource, error) {
	dir, err := resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	opts.logf("Discovering sources in: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil && opts.URL == "" {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := e.Name()
		src := DataSource{Path: filepath.Join(dir, name), ModTime: info.ModTime(), Size: info.Size()}
		switch {
		case loader.IsDataFileName(name):
			src.Type = SourceTypeJSON
			src.Priority = PriorityJSONSecondary
			for _, preferred := range loader.PreferredDataNames {
				if name == preferred {
					src.Priority = PriorityJSON
				}
			}
		case isSQLiteName(name):
			src.Type = SourceTypeSQLite
			src.Priority = PrioritySQLite
		default:
			continue
		}
		opts.logf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339))
		sources = append(sources, src)
	}

	if opts.URL != "" {
		sources = append(sources, DataSource{Type: SourceTypeURL, Path: opts.URL, Priority: PriorityURL})
		opts.logf("Found url: %s", opts.URL)
	}

	if opts.ValidateAfterDiscovery {
		ValidateSources(ctx, sources, opts.Client)
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				} else {
					opts.logf("Validation failed for %s: %s", s.Path, s.ValidationError)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	opts.logf("Discovered %d sources", len(sources))
	return sources, nil
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	if info, err := os.Stat(filepath.Join(cwd, loader.DefaultDataDir)); err == nil && info.IsDir() {
		return filepath.Join(cwd, loader.DefaultDataDir), nil
	}
	return cwd, nil
}

// ForPath describes a file named explicitly by the user. The type follows the
// extension; anything that is not a SQLite database is read as JSON.
func ForPath(path string) DataSource {
	src := DataSource{Type: SourceTypeJSON, Path: path, Priority: PriorityJSON}
	if isSQLiteName(filepath.Base(path)) {
		src.Type = SourceTypeSQLite
		src.Priority = PrioritySQLite
	}
	if info, err := os.Stat(path); err == nil {
		src.ModTime = info.ModTime()
		src.Size = info.Size()
	}
	return src
}

// ForURL describes a remote endpoint.
func ForURL(url string) DataSource {
	return DataSource{Type: SourceTypeURL, Path: url, Priority: PriorityURL}
}

func isSQLiteName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".sqlite", ".sqlite3", ".db":
		return true
	}
	return false
}

// sortSources orders by freshness, then priority, then path.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i], sources[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Path < b.Path
	})
}

// ValidateSource loads the source and records whether it is usable.
func ValidateSource(ctx context.Context, src *DataSource, client *http.Client) error {
	data, err := LoadFromSource(ctx, *src, LoadOptions{
		Loader: loader.Options{WarningHandler: func(string) {}},
		Client: client,
	})
	if err != nil {
		src.Valid = false
		src.ValidationError = err.Error()
		return err
	}
	src.Valid = true
	src.ValidationError = ""
	src.PersonCount = data.PersonCount()
	src.GenerationCount = len(data.Generations)
	return nil
}

// ValidateSources validates every source in parallel. Failures are recorded
// on the sources, not returned.
func ValidateSources(ctx context.Context, sources []DataSource, client *http.Client) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultValidateConcurrency)
	for i := range sources {
		src := &sources[i]
		g.Go(func() error {
			_ = ValidateSource(ctx, src, client)
			return nil
		})
	}
	_ = g.Wait()
}

// SelectBestSource returns the freshest valid source, preferring higher
// priority on ties.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, fmt.Errorf("no valid sources among %d discovered", len(sources))
	}
	sortSources(valid)
	return valid[0], nil
}
