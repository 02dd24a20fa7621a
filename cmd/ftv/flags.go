package main

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/search"
)

// queryFlags are the search switches shared by --robot-search and --export-svg.
type queryFlags struct {
	term        string
	generations string
	yearStart   string
	yearEnd     string
	noInfo      bool
	view        string
	limit       int
}

// filters builds search filters from the flags. Info search follows the
// config unless --no-info is given.
func (q queryFlags) filters(cfg config.Config) (search.Filters, error) {
	f := search.DefaultFilters()
	f.SearchInInfo = cfg.UI.SearchInInfo && !q.noInfo
	for _, g := range strings.Split(q.generations, ",") {
		if g = strings.TrimSpace(g); g != "" && !f.IsSelected(g) {
			f = f.ToggleGeneration(g)
		}
	}
	yr, err := search.ParseYearRange(q.yearStart, q.yearEnd)
	if err != nil {
		return search.Filters{}, err
	}
	f.YearRange = yr
	return f, nil
}

func (q queryFlags) treeView() (bool, error) {
	switch q.view {
	case "", "list":
		return false, nil
	case "tree":
		return true, nil
	}
	return false, fmt.Errorf("invalid --view: %q (expected list|tree)", q.view)
}
