package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// SourceDiff represents differences between two data sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string `json:"source_a"`
	// SourceB is the path of the second source
	SourceB string `json:"source_b"`
	// MissingInA contains person IDs present in B but not in A
	MissingInA []string `json:"missing_in_a,omitempty"`
	// MissingInB contains person IDs present in A but not in B
	MissingInB []string `json:"missing_in_b,omitempty"`
	// Changed lists fields that differ for people present in both
	Changed []FieldDifference `json:"changed,omitempty"`
	// CountA is the number of people in source A
	CountA int `json:"count_a"`
	// CountB is the number of people in source B
	CountB int `json:"count_b"`
}

// FieldDifference is one field that differs for a person.
type FieldDifference struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	A     string `json:"a"`
	B     string `json:"b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Changed) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d people each)", d.CountA)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&sb, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	listIDs := func(ids []string, in, notIn string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&sb, "  - %d people in %s but not %s\n", len(ids), in, notIn)
		if len(ids) <= 5 {
			for _, id := range ids {
				fmt.Fprintf(&sb, "    - %s\n", id)
			}
		}
	}
	listIDs(d.MissingInA, d.SourceB, d.SourceA)
	listIDs(d.MissingInB, d.SourceA, d.SourceB)
	if len(d.Changed) > 0 {
		fmt.Fprintf(&sb, "  - %d field differences\n", len(d.Changed))
		if len(d.Changed) <= 5 {
			for _, c := range d.Changed {
				fmt.Fprintf(&sb, "    - %s.%s: %q vs %q\n", c.ID, c.Field, c.A, c.B)
			}
		}
	}
	return sb.String()
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareFields specifies which fields to compare (empty = all)
	CompareFields []string
	// MaxDifferences limits the number of field differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

// diffFields lists the comparable fields in report order.
var diffFields = []string{"name", "fatherId", "birthYear", "deathYear", "info", "generation"}

type keyed struct {
	p   *model.Person
	gen string
}

func byID(data model.FamilyData) map[string]keyed {
	m := make(map[string]keyed)
	for _, g := range data.Generations {
		for _, p := range g.People {
			if p != nil && p.ID != "" {
				m[p.ID] = keyed{p: p, gen: g.Title}
			}
		}
	}
	return m
}

func fieldValue(k keyed, field string) string {
	year := func(v *int) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	}
	switch field {
	case "name":
		return k.p.Name
	case "fatherId":
		return k.p.FatherID
	case "birthYear":
		return year(k.p.BirthYear)
	case "deathYear":
		return year(k.p.DeathYear)
	case "info":
		return k.p.Info
	case "generation":
		return k.gen
	}
	return ""
}

// DetectInconsistencies compares two record stores by person id. People
// without an id cannot be matched and are only reflected in the counts.
func DetectInconsistencies(a, b model.FamilyData, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	d := SourceDiff{SourceA: sourceA, SourceB: sourceB, CountA: a.PersonCount(), CountB: b.PersonCount()}
	ma, mb := byID(a), byID(b)

	fields := opts.CompareFields
	if len(fields) == 0 {
		fields = diffFields
	}

	ids := make([]string, 0, len(ma))
	for id := range ma {
		if _, ok := mb[id]; !ok {
			d.MissingInB = append(d.MissingInB, id)
			continue
		}
		ids = append(ids, id)
	}
	for id := range mb {
		if _, ok := ma[id]; !ok {
			d.MissingInA = append(d.MissingInA, id)
		}
	}
	sort.Strings(d.MissingInA)
	sort.Strings(d.MissingInB)
	sort.Strings(ids)

	for _, id := range ids {
		for _, f := range fields {
			va, vb := fieldValue(ma[id], f), fieldValue(mb[id], f)
			if va == vb {
				continue
			}
			if opts.MaxDifferences > 0 && len(d.Changed) >= opts.MaxDifferences {
				return d
			}
			d.Changed = append(d.Changed, FieldDifference{ID: id, Field: f, A: va, B: vb})
		}
	}
	return d
}

// CompareSources loads both sources and diffs them.
func CompareSources(ctx context.Context, sourceA, sourceB DataSource, opts DiffOptions, load LoadOptions) (*SourceDiff, error) {
	var a, b model.FamilyData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = LoadFromSource(ctx, sourceA, load)
		return err
	})
	g.Go(func() (err error) {
		b, err = LoadFromSource(ctx, sourceB, load)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d := DetectInconsistencies(a, b, sourceA.Path, sourceB.Path, opts)
	return &d, nil
}

// InconsistencyReport provides a report of all source inconsistencies
type InconsistencyReport struct {
	// Sources is the list of all sources checked
	Sources []DataSource `json:"sources"`
	// Diffs contains all detected differences
	Diffs []SourceDiff `json:"diffs"`
	// TotalInconsistencies is the total number of inconsistencies found
	TotalInconsistencies int `json:"total_inconsistencies"`
}

// GenerateInconsistencyReport loads every valid source once, in parallel, and
// diffs each pair.
func GenerateInconsistencyReport(ctx context.Context, sources []DataSource, opts DiffOptions) (*InconsistencyReport, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}

	loaded := make([]model.FamilyData, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultValidateConcurrency)
	for i := range valid {
		g.Go(func() error {
			data, err := LoadFromSource(gctx, valid[i], LoadOptions{Loader: loader.Options{WarningHandler: func(string) {}}})
			if err != nil {
				return fmt.Errorf("%s: %w", valid[i].Path, err)
			}
			loaded[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &InconsistencyReport{Sources: sources, Diffs: []SourceDiff{}}
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			d := DetectInconsistencies(loaded[i], loaded[j], valid[i].Path, valid[j].Path, opts)
			if d.HasInconsistencies() {
				report.Diffs = append(report.Diffs, d)
				report.TotalInconsistencies += len(d.MissingInA) + len(d.MissingInB) + len(d.Changed)
			}
		}
	}
	return report, nil
}
