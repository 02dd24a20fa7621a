package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/familytree/pkg/debug"
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// DataPathEnvVar overrides the family data file location.
const DataPathEnvVar = "FTV_DATA"

// DefaultDataDir is the directory searched relative to the working directory.
const DefaultDataDir = "config"

// LoadErrorMessage is shown to the user when data could not be loaded and the
// view fell back to an empty family.
const LoadErrorMessage = "加载家族数据失败，使用默认数据"

// PreferredDataNames defines the priority order for looking up family data files.
var PreferredDataNames = []string{"family-data.json", "family.json"}

// ErrNotFound is returned when no family data file exists.
var ErrNotFound = errors.New("family data not found")

// DefaultMaxBytes caps the size of a family document (16MB).
const DefaultMaxBytes = 16 << 20

// Options configures Parse and the loaders built on it.
type Options struct {
	// WarningHandler is called with recoverable problems in the document.
	// If nil, warnings go to stderr unless FTV_ROBOT=1.
	WarningHandler func(string)

	// MaxBytes limits the document size. If 0, DefaultMaxBytes is used.
	MaxBytes int64
}

func (o Options) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv("FTV_ROBOT") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return DefaultMaxBytes
}

// ResolvePath returns the data file to load. An explicit path wins, then
// FTV_DATA, then the first preferred file in ./config or the working
// directory. When nothing exists the canonical ./config/family-data.json is
// returned together with ErrNotFound.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(DataPathEnvVar); env != "" {
		return env, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	for _, dir := range []string{filepath.Join(cwd, DefaultDataDir), cwd} {
		if path, err := FindDataPath(dir); err == nil {
			return path, nil
		}
	}
	return filepath.Join(cwd, DefaultDataDir, PreferredDataNames[0]), ErrNotFound
}

// FindDataPath locates the family data file in dir. Preferred names win,
// then any other non-empty .json file. Backups and editor leftovers are skipped.
func FindDataPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read data directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); IsDataFileName(name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNotFound, dir)
	}

	nonEmpty := func(name string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && info.Size() > 0
	}
	for _, preferred := range PreferredDataNames {
		for _, name := range candidates {
			if name == preferred && nonEmpty(name) {
				return filepath.Join(dir, name), nil
			}
		}
	}
	for _, name := range candidates {
		if nonEmpty(name) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("%w in %s (only empty files)", ErrNotFound, dir)
}

// IsDataFileName reports whether name looks like a family document rather
// than a backup or editor leftover.
func IsDataFileName(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return !strings.Contains(name, ".backup") && !strings.Contains(name, ".orig") &&
		!strings.HasPrefix(name, ".") && !strings.HasSuffix(name, "~")
}

// LoadFile reads a family document from path. A missing file yields an empty
// document and an error wrapping ErrNotFound.
func LoadFile(path string, opts Options) (model.FamilyData, error) {
	defer metrics.Timer(metrics.DataLoad)()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Empty(), fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return model.Empty(), fmt.Errorf("failed to open family data: %w", err)
	}
	defer f.Close()

	data, err := Parse(f, opts)
	if err != nil {
		return model.Empty(), fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("loaded %d people in %d generations from %s", data.PersonCount(), len(data.Generations), path)
	return data, nil
}

// Parse decodes a FamilyData document. A UTF-8 BOM is stripped, null people
// are dropped, and any children carried by the input are discarded since
// children are derived by the tree builder. Invalid people are kept and
// reported through the warning handler.
func Parse(r io.Reader, opts Options) (model.FamilyData, error) {
	warn := opts.warn()
	limit := opts.maxBytes()

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return model.Empty(), fmt.Errorf("error reading family data: %w", err)
	}
	if int64(len(raw)) > limit {
		return model.Empty(), fmt.Errorf("family data exceeds %d bytes", limit)
	}
	raw = bytes.TrimSpace(stripBOM(raw))
	if len(raw) == 0 {
		return model.Empty(), errors.New("family data is empty")
	}

	var data model.FamilyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.Empty(), fmt.Errorf("invalid family data JSON: %w", err)
	}
	if data.Generations == nil {
		data.Generations = []model.Generation{}
	}
	sanitize(&data, warn)
	return data, nil
}

func sanitize(data *model.FamilyData, warn func(string)) {
	defer metrics.Timer(metrics.Validation)()

	for gi := range data.Generations {
		g := &data.Generations[gi]
		people := make([]*model.Person, 0, len(g.People))
		for pi, p := range g.People {
			if p == nil {
				warn(fmt.Sprintf("skipping null person %d in generation %q", pi, g.Title))
				continue
			}
			if len(p.Children) > 0 {
				warn(fmt.Sprintf("ignoring stored children of %q in generation %q", p.Name, g.Title))
			}
			p.Children = nil
			if err := p.Validate(); err != nil {
				warn(fmt.Sprintf("generation %q person %d: %v", g.Title, pi, err))
			}
			people = append(people, p)
		}
		g.People = people
	}
}

// Fallback turns a load outcome into the data a view should show and the
// message it should surface. On error the data is always the empty document.
func Fallback(data model.FamilyData, err error) (model.FamilyData, string) {
	if err != nil {
		debug.Log("family data load failed: %v", err)
		return model.Empty(), LoadErrorMessage
	}
	return data, ""
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
