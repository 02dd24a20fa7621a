// Package robot renders machine-readable JSON for scripts and agents driving
// ftv without a terminal.
package robot

import (
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/familytree/internal/datasource"
	"github.com/vanderheijden86/familytree/pkg/analysis"
	"github.com/vanderheijden86/familytree/pkg/export"
	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
	"github.com/vanderheijden86/familytree/pkg/version"
)

// Environment switches honoured by robot mode.
const (
	EnvRobot    = "FTV_ROBOT"
	EnvTestMode = "FTV_TEST_MODE"
)

// Header is shared by every robot document.
type Header struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
	DataHash    string `json:"data_hash,omitempty"`
}

func newHeader(data model.FamilyData, now time.Time) Header {
	hash, _ := export.DataHash(data)
	return Header{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Version:     version.Version,
		DataHash:    hash,
	}
}

// Node is a person with its descendants, with back edges cut.
type Node = familytree.Node

// TreeOutput is the result of --robot-tree.
type TreeOutput struct {
	Header
	Title string  `json:"title"`
	Roots int     `json:"roots"`
	Nodes int     `json:"nodes"`
	Depth int     `json:"depth"`
	Tree  []*Node `json:"tree"`
}

// NewTreeOutput builds the tree of data.
func NewTreeOutput(data model.FamilyData, now time.Time) TreeOutput {
	roots := familytree.Roots(familytree.Build(data))
	return TreeOutput{
		Header: newHeader(data, now),
		Title:  model.TreeTitle,
		Roots:  len(roots),
		Nodes:  familytree.NodeCount(roots),
		Depth:  familytree.Depth(roots),
		Tree:   familytree.Nodes(roots),
	}
}

// SearchMatch is one ranked match.
type SearchMatch struct {
	ID         string           `json:"id,omitempty"`
	Name       string           `json:"name"`
	Generation string           `json:"generation"`
	Kind       search.MatchKind `json:"kind"`
	Text       string           `json:"text,omitempty"`
	BirthYear  *int             `json:"birthYear,omitempty"`
	DeathYear  *int             `json:"deathYear,omitempty"`
	FatherID   string           `json:"fatherId,omitempty"`
}

// SearchOutput is the result of --robot-search.
type SearchOutput struct {
	Header
	Query   string         `json:"query"`
	Filters search.Filters `json:"filters"`
	Active  bool           `json:"active"`
	Total   int            `json:"total"`
	Shown   int            `json:"shown"`
	Matches []SearchMatch  `json:"matches"`
	// Tree is the pruned tree, set when the tree view is requested.
	Tree []*Node `json:"tree,omitempty"`
}

// SearchOptions configures NewSearchOutput.
type SearchOptions struct {
	Term    string
	Filters search.Filters
	// Limit caps Matches; 0 means no cap.
	Limit int
	// Tree adds the pruned tree.
	Tree bool
}

// NewSearchOutput runs a query over data.
func NewSearchOutput(data model.FamilyData, opts SearchOptions, now time.Time) SearchOutput {
	res := search.Run(data, familytree.Build(data), opts.Term, opts.Filters)
	out := SearchOutput{
		Header:  newHeader(data, now),
		Query:   opts.Term,
		Filters: opts.Filters,
		Active:  res.Active,
		Total:   len(res.Matches),
		Matches: []SearchMatch{},
	}
	matches := res.Matches
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	for _, m := range matches {
		out.Matches = append(out.Matches, SearchMatch{
			ID:         m.Person.ID,
			Name:       m.Person.Name,
			Generation: m.Generation,
			Kind:       m.Kind,
			Text:       m.Text,
			BirthYear:  m.Person.BirthYear,
			DeathYear:  m.Person.DeathYear,
			FatherID:   m.Person.FatherID,
		})
	}
	out.Shown = len(out.Matches)
	if opts.Tree {
		out.Tree = familytree.Nodes(familytree.Roots(res.Tree))
	}
	return out
}

// CheckOutput is the result of --robot-check.
type CheckOutput struct {
	Header
	OK bool `json:"ok"`
	analysis.Report
}

// NewCheckOutput checks data for structural problems.
func NewCheckOutput(data model.FamilyData, now time.Time) CheckOutput {
	report := analysis.Check(data, analysis.DefaultConfig())
	return CheckOutput{Header: newHeader(data, now), OK: report.OK(), Report: report}
}

// SourcesOutput is the result of --robot-sources.
type SourcesOutput struct {
	GeneratedAt string                  `json:"generated_at"`
	Selected    *datasource.DataSource  `json:"selected,omitempty"`
	Sources     []datasource.DataSource `json:"sources"`
}

// NewSourcesOutput lists discovered sources and the one that would be loaded.
func NewSourcesOutput(sources []datasource.DataSource, now time.Time) SourcesOutput {
	out := SourcesOutput{GeneratedAt: now.UTC().Format(time.RFC3339), Sources: sources}
	if out.Sources == nil {
		out.Sources = []datasource.DataSource{}
	}
	if best, err := datasource.SelectBestSource(sources); err == nil {
		out.Selected = &best
	}
	return out
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
