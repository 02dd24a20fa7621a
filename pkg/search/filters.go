package search

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// YearRange bounds a birth/death year search. A nil bound is unconstrained.
type YearRange struct {
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

// Active reports whether at least one bound is set.
func (r YearRange) Active() bool {
	return r.Start != nil || r.End != nil
}

// Contains reports whether year lies within [Start, End]. An absent year is
// never in range.
func (r YearRange) Contains(year *int) bool {
	if year == nil {
		return false
	}
	if r.Start != nil && *year < *r.Start {
		return false
	}
	if r.End != nil && *year > *r.End {
		return false
	}
	return true
}

// String renders the range as "start-end" with open ends left blank.
func (r YearRange) String() string {
	var s, e string
	if r.Start != nil {
		s = strconv.Itoa(*r.Start)
	}
	if r.End != nil {
		e = strconv.Itoa(*r.End)
	}
	return s + "-" + e
}

// ParseYearRange parses optional start/end strings. Blank strings leave the
// corresponding bound unset.
func ParseYearRange(start, end string) (YearRange, error) {
	var r YearRange
	if s := strings.TrimSpace(start); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return YearRange{}, fmt.Errorf("invalid start year %q: %w", start, err)
		}
		r.Start = &v
	}
	if s := strings.TrimSpace(end); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return YearRange{}, fmt.Errorf("invalid end year %q: %w", end, err)
		}
		r.End = &v
	}
	return r, nil
}

// Filters are the structured search criteria that accompany the free-text term.
type Filters struct {
	SearchInInfo        bool      `json:"searchInInfo"`
	SelectedGenerations []string  `json:"selectedGenerations"`
	YearRange           YearRange `json:"yearRange"`
}

// DefaultFilters returns the filters a fresh search starts with: info search
// on, no generation gate, no year range.
func DefaultFilters() Filters {
	return Filters{SearchInInfo: true, SelectedGenerations: []string{}}
}

// ToggleGeneration adds title to the selection, or removes it if present.
func (f Filters) ToggleGeneration(title string) Filters {
	if i := slices.Index(f.SelectedGenerations, title); i >= 0 {
		f.SelectedGenerations = slices.Delete(slices.Clone(f.SelectedGenerations), i, i+1)
		return f
	}
	f.SelectedGenerations = append(slices.Clone(f.SelectedGenerations), title)
	return f
}

// IsSelected reports whether title is in the generation selection.
func (f Filters) IsSelected(title string) bool {
	return slices.Contains(f.SelectedGenerations, title)
}

// Active reports whether term and filters describe a query at all. An inactive
// query shows the unfiltered record store; Search itself would match everyone.
func Active(term string, f Filters) bool {
	return strings.TrimSpace(term) != "" || f.YearRange.Active() || len(f.SelectedGenerations) > 0
}
