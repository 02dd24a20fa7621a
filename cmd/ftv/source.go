package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vanderheijden86/familytree/internal/datasource"
	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/debug"
	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/watcher"
)

// dataLoader resolves where family data comes from: the configured URL, then
// the configured path, then discovery in ./config or the working directory.
type dataLoader struct {
	path string
	url  string
	opts datasource.LoadOptions
}

func newDataLoader(cfg config.Config) dataLoader {
	return dataLoader{
		path: cfg.Data.Path,
		url:  cfg.Data.URL,
		opts: datasource.LoadOptions{
			Client: &http.Client{Timeout: loader.DefaultFetchTimeout},
		},
	}
}

// describe names the source for the loading screen.
func (d dataLoader) describe() string {
	switch {
	case d.url != "":
		return d.url
	case d.path != "":
		return d.path
	}
	path, _ := loader.ResolvePath("")
	return path
}

// Load reads the family document and reports which source it came from.
func (d dataLoader) Load(ctx context.Context) (model.FamilyData, datasource.DataSource, error) {
	switch {
	case d.url != "":
		src := datasource.ForURL(d.url)
		data, err := datasource.LoadFromSource(ctx, src, d.opts)
		return data, src, err
	case d.path != "":
		src := datasource.ForPath(d.path)
		data, err := datasource.LoadFromSource(ctx, src, d.opts)
		return data, src, err
	}
	return datasource.LoadSmart(ctx, "", "", d.opts)
}

// LoadOrEmpty treats a missing file as an empty family.
func (d dataLoader) LoadOrEmpty(ctx context.Context) (model.FamilyData, error) {
	start := time.Now()
	data, src, err := d.Load(ctx)
	debug.LogTiming("load "+src.Path, time.Since(start))
	if errors.Is(err, loader.ErrNotFound) {
		debug.Log("no family data at %s, starting empty", src.Path)
		return model.Empty(), nil
	}
	return data, err
}

// Serve adapts Load for the HTTP server, which handles ErrNotFound itself.
func (d dataLoader) Serve(ctx context.Context) (model.FamilyData, error) {
	data, _, err := d.Load(ctx)
	return data, err
}

// watchPath returns the local file to watch, or "" when the source is remote.
func (d dataLoader) watchPath() string {
	if d.url != "" {
		return ""
	}
	if d.path != "" {
		return d.path
	}
	path, err := loader.ResolvePath("")
	if err != nil {
		return ""
	}
	return path
}

// newReloader watches the data file when cfg asks for it.
func (d dataLoader) newReloader(ctx context.Context, cfg config.Config) (*watcher.Reloader, error) {
	if !cfg.Data.Watch {
		return nil, nil
	}
	path := d.watchPath()
	if path == "" {
		return nil, nil
	}
	return watcher.NewReloader(ctx, path, func(p string) (model.FamilyData, error) {
		return datasource.LoadFromSource(ctx, datasource.ForPath(p), d.opts)
	})
}
