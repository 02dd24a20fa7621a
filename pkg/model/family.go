// Package model defines the family record shapes shared by every ftv package.
//
// A FamilyData document is an ordered list of generations, each holding an
// ordered list of people. The document is read-only once loaded: derived
// structures (the tree, search results) are always built from copies.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// TreeTitle is the title of the single generation produced by the tree builder.
const TreeTitle = "家族树"

// SearchResultsTitle is the title of the single generation produced by tree pruning.
const SearchResultsTitle = "搜索结果"

// Person is one family member.
//
// ID and FatherID use "" for "absent". Children is derived: it is populated
// only by the tree builder and is never part of the stored record.
type Person struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Info      string    `json:"info,omitempty"`
	BirthYear *int      `json:"birthYear,omitempty"`
	DeathYear *int      `json:"deathYear,omitempty"`
	FatherID  string    `json:"fatherId,omitempty"`
	Children  []*Person `json:"children,omitempty"`
}

// Generation is a titled, ordered group of people.
type Generation struct {
	Title  string    `json:"title"`
	People []*Person `json:"people"`
}

// FamilyData is the root document.
type FamilyData struct {
	Generations []Generation `json:"generations"`
}

// ErrMissingName is returned by Validate for a person without a display name.
var ErrMissingName = errors.New("person has no name")

// Validate reports whether the person is well formed. Loaders use it to warn
// about suspicious records; it never causes a record to be dropped.
func (p *Person) Validate() error {
	if p == nil {
		return errors.New("nil person")
	}
	if strings.TrimSpace(p.Name) == "" {
		if p.ID != "" {
			return fmt.Errorf("%w (id %q)", ErrMissingName, p.ID)
		}
		return ErrMissingName
	}
	if p.BirthYear != nil && p.DeathYear != nil && *p.DeathYear < *p.BirthYear {
		return fmt.Errorf("person %q died (%d) before birth (%d)", p.Name, *p.DeathYear, *p.BirthYear)
	}
	return nil
}

// HasID reports whether the person carries a stable identity.
func (p *Person) HasID() bool { return p != nil && p.ID != "" }

// Lifespan renders "birth-death" with absent years left blank.
func (p *Person) Lifespan() string {
	var b, d string
	if p.BirthYear != nil {
		b = fmt.Sprint(*p.BirthYear)
	}
	if p.DeathYear != nil {
		d = fmt.Sprint(*p.DeathYear)
	}
	return b + "-" + d
}

// Empty returns a document with no generations. Loaders fall back to it.
func Empty() FamilyData {
	return FamilyData{Generations: []Generation{}}
}

// EmptyTree returns the tree builder's empty-state output.
func EmptyTree() FamilyData {
	return FamilyData{
		Generations: []Generation{
			{Title: TreeTitle, People: []*Person{}},
		},
	}
}

// PersonCount returns the number of person entries across all generations.
func (d FamilyData) PersonCount() int {
	n := 0
	for _, g := range d.Generations {
		n += len(g.People)
	}
	return n
}

// GenerationTitles returns generation titles in document order.
func (d FamilyData) GenerationTitles() []string {
	titles := make([]string, 0, len(d.Generations))
	for _, g := range d.Generations {
		titles = append(titles, g.Title)
	}
	return titles
}

// GenerationOf returns an id -> generation title index. Duplicate ids keep the
// last occurrence, matching the lookup semantics of the tree builder.
func (d FamilyData) GenerationOf() map[string]string {
	idx := make(map[string]string, d.PersonCount())
	for _, g := range d.Generations {
		for _, p := range g.People {
			if p.HasID() {
				idx[p.ID] = g.Title
			}
		}
	}
	return idx
}

// IntPtr is a small helper for building optional years in code and tests.
func IntPtr(v int) *int { return &v }
