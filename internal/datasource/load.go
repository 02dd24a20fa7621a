package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// LoadOptions configures LoadFromSource.
type LoadOptions struct {
	Loader loader.Options
	Client *http.Client
}

// LoadFromSource loads FamilyData from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource, opts LoadOptions) (model.FamilyData, error) {
	switch source.Type {
	case SourceTypeJSON:
		return loader.LoadFile(source.Path, opts.Loader)

	case SourceTypeSQLite:
		defer metrics.Timer(metrics.DataLoad)()
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return model.Empty(), fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadFamily(ctx)

	case SourceTypeURL:
		return loader.Fetch(ctx, opts.Client, source.Path, opts.Loader)

	default:
		return model.Empty(), fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// LoadSmart discovers sources in dir (and url when set), validates them, and
// loads the best one. When nothing valid is found it falls back to the
// canonical JSON path so the caller still gets loader.ErrNotFound semantics.
func LoadSmart(ctx context.Context, dir, url string, opts LoadOptions) (model.FamilyData, DataSource, error) {
	sources, err := DiscoverSources(ctx, DiscoveryOptions{
		Dir:                    dir,
		URL:                    url,
		ValidateAfterDiscovery: true,
		Client:                 opts.Client,
	})
	if err == nil && len(sources) > 0 {
		best, selErr := SelectBestSource(sources)
		if selErr == nil {
			data, loadErr := LoadFromSource(ctx, best, opts)
			return data, best, loadErr
		}
		err = selErr
	}

	path, resolveErr := loader.ResolvePath("")
	fallback := DataSource{Type: SourceTypeJSON, Path: path, Priority: PriorityJSON}
	if resolveErr != nil && !errors.Is(resolveErr, loader.ErrNotFound) {
		return model.Empty(), fallback, resolveErr
	}
	data, loadErr := loader.LoadFile(path, opts.Loader)
	if loadErr != nil && err != nil {
		loadErr = fmt.Errorf("%w (discovery: %v)", loadErr, err)
	}
	return data, fallback, loadErr
}
