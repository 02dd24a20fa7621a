package main

import (
	"context"
	"io"
	"time"

	"github.com/vanderheijden86/familytree/internal/datasource"
	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/robot"
)

func runRobotSearch(w io.Writer, cfg config.Config, data model.FamilyData, q queryFlags, now time.Time) error {
	filters, err := q.filters(cfg)
	if err != nil {
		return err
	}
	tree, err := q.treeView()
	if err != nil {
		return err
	}
	limit := q.limit
	if limit == 0 {
		limit = cfg.UI.MaxResults
	}
	out := robot.NewSearchOutput(data, robot.SearchOptions{
		Term:    q.term,
		Filters: filters,
		Limit:   limit,
		Tree:    tree,
	}, now)
	return robot.Encode(w, out)
}

func runRobotTree(w io.Writer, data model.FamilyData, now time.Time) error {
	return robot.Encode(w, robot.NewTreeOutput(data, now))
}

// runRobotCheck writes the report and fails when the data has errors.
func runRobotCheck(w io.Writer, data model.FamilyData, now time.Time) error {
	out := robot.NewCheckOutput(data, now)
	if err := robot.Encode(w, out); err != nil {
		return err
	}
	if !out.OK {
		return errCheckFailed
	}
	return nil
}

func runRobotSources(ctx context.Context, w io.Writer, cfg config.Config, now time.Time) error {
	sources, err := datasource.DiscoverSources(ctx, datasource.DiscoveryOptions{
		URL:                    cfg.Data.URL,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		return err
	}
	return robot.Encode(w, robot.NewSourcesOutput(sources, now))
}
