package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/export"
	"github.com/vanderheijden86/familytree/pkg/hooks"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// exportFlags select the files written by --export-*.
type exportFlags struct {
	sqlite   string
	svg      string
	markdown string
	prune    bool
	noHooks  bool
	// hooksDir holds .ftv/hooks.yaml. Empty means the working directory.
	hooksDir string
}

func (e exportFlags) requested() bool {
	return e.sqlite != "" || e.svg != "" || e.markdown != ""
}

type exportJob struct {
	format string
	path   string
	write  func(path string) error
}

// runExports writes every requested export, wrapping each in the configured
// hooks, and reports each path on w.
func runExports(w io.Writer, cfg config.Config, data model.FamilyData, e exportFlags, q queryFlags, now time.Time) error {
	var jobs []exportJob
	if e.sqlite != "" {
		jobs = append(jobs, exportJob{"sqlite", e.sqlite, func(path string) error {
			return export.NewSQLiteExporter(data).Export(path)
		}})
	}
	if e.svg != "" {
		filters, err := q.filters(cfg)
		if err != nil {
			return err
		}
		path := e.svg
		if filepath.Ext(path) == "" {
			path += ".svg"
		}
		jobs = append(jobs, exportJob{"svg", path, func(path string) error {
			return export.SaveTreeSnapshot(export.TreeSnapshotOptions{
				Path:    path,
				Title:   cfg.Title(),
				Data:    data,
				Term:    q.term,
				Filters: filters,
				Prune:   e.prune,
			})
		}})
	}
	if e.markdown != "" {
		jobs = append(jobs, exportJob{"markdown", e.markdown, func(path string) error {
			return export.SaveMarkdown(path, data, cfg.Title())
		}})
	}

	for _, job := range jobs {
		hctx := hooks.ExportContext{
			ExportPath:      job.path,
			ExportFormat:    job.format,
			FamilyName:      cfg.FamilyName,
			PersonCount:     data.PersonCount(),
			GenerationCount: len(data.Generations),
			Timestamp:       now,
		}
		if err := runExportJob(w, job, hctx, e); err != nil {
			return err
		}
	}
	return nil
}

func runExportJob(w io.Writer, job exportJob, hctx hooks.ExportContext, e exportFlags) error {
	executor, err := hooks.RunHooks(e.hooksDir, hctx, e.noHooks)
	if err != nil {
		return fmt.Errorf("loading hooks: %w", err)
	}

	if executor != nil {
		if err := executor.RunPreExport(); err != nil {
			fmt.Fprint(w, executor.Summary())
			return err
		}
	}

	if err := job.write(job.path); err != nil {
		return fmt.Errorf("%s export: %w", job.format, err)
	}
	fmt.Fprintf(w, "Wrote %s\n", job.path)

	if executor == nil {
		return nil
	}
	postErr := executor.RunPostExport()
	fmt.Fprint(w, executor.Summary())
	return postErr
}
