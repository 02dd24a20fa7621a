// Package search matches people in a family record store against a free-text
// term and structured filters, and projects the matches back into flat and
// tree-shaped views.
package search

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MatchKind names the field that produced a match.
type MatchKind string

const (
	KindName MatchKind = "name"
	KindID   MatchKind = "id"
	KindYear MatchKind = "year"
	KindInfo MatchKind = "info"
)

// Priority orders kinds for ranking; lower sorts first.
func (k MatchKind) Priority() int {
	switch k {
	case KindName:
		return 1
	case KindID:
		return 2
	case KindYear:
		return 3
	case KindInfo:
		return 4
	default:
		return 5
	}
}

// Match is one person that satisfied a query.
type Match struct {
	Person     *model.Person `json:"person"`
	Generation string        `json:"generation"`
	Kind       MatchKind     `json:"matchType"`
	Text       string        `json:"matchText,omitempty"`
}

// infoContext is the number of runes kept on each side of an info hit.
const infoContext = 20

// collate.Collator keeps scratch buffers and is not safe for concurrent use.
var collators = sync.Pool{
	New: func() any { return collate.New(language.SimplifiedChinese) },
}

// Search returns the people in data matching term and filters, ranked by
// match kind and then by name in Chinese collation order.
//
// An empty term with no year range matches everyone; callers that want "no
// query, no results" should check Active first.
func Search(data model.FamilyData, term string, filters Filters) []Match {
	defer metrics.Timer(metrics.Search)()

	gate := generationGate(filters.SelectedGenerations)
	var matches []Match
	for _, g := range data.Generations {
		if gate != nil && !gate[g.Title] {
			continue
		}
		for _, p := range g.People {
			if p == nil {
				continue
			}
			if kind, text, ok := matchPerson(p, term, filters); ok {
				matches = append(matches, Match{Person: p, Generation: g.Title, Kind: kind, Text: text})
			}
		}
	}
	rank(matches)
	return matches
}

func generationGate(selected []string) map[string]bool {
	if len(selected) == 0 {
		return nil
	}
	gate := make(map[string]bool, len(selected))
	for _, t := range selected {
		gate[t] = true
	}
	return gate
}

// matchPerson applies the per-person policy, first rule wins. The generation
// gate is the caller's job.
func matchPerson(p *model.Person, term string, filters Filters) (MatchKind, string, bool) {
	yr := filters.YearRange
	if yr.Active() {
		if !yr.Contains(p.BirthYear) && !yr.Contains(p.DeathYear) {
			return "", "", false
		}
		if term == "" {
			return KindYear, p.Lifespan(), true
		}
	}
	if term == "" {
		return KindName, "", true
	}

	if fuzzyMatch(p.Name, term) {
		return KindName, p.Name, true
	}
	if p.ID != "" && strings.Contains(strings.ToLower(p.ID), strings.ToLower(term)) {
		return KindID, p.ID, true
	}
	if filters.SearchInInfo && p.Info != "" && fuzzyMatch(p.Info, term) {
		return KindInfo, infoWindow(p.Info, term), true
	}
	if p.BirthYear != nil {
		if y := strconv.Itoa(*p.BirthYear); strings.Contains(term, y) {
			return KindYear, y, true
		}
	}
	if p.DeathYear != nil {
		if y := strconv.Itoa(*p.DeathYear); strings.Contains(term, y) {
			return KindYear, y, true
		}
	}
	return "", "", false
}

// fuzzyMatch is a case-insensitive substring test. If the whole term is not a
// substring, every whitespace-separated word of it must be.
func fuzzyMatch(text, term string) bool {
	if text == "" || term == "" {
		return false
	}
	text = strings.ToLower(text)
	term = strings.ToLower(term)
	if strings.Contains(text, term) {
		return true
	}
	for _, w := range strings.Fields(term) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// infoWindow cuts info down to the first occurrence of term plus infoContext
// runes either side, with "..." marking truncated edges. When the term only
// matched word by word the whole text is returned.
func infoWindow(info, term string) string {
	lower := strings.ToLower(info)
	at := strings.Index(lower, strings.ToLower(term))
	if at < 0 {
		return info
	}
	runes := []rune(info)
	idx := utf8.RuneCountInString(lower[:at])
	start := max(0, idx-infoContext)
	end := min(len(runes), idx+utf8.RuneCountInString(term)+infoContext)
	start = min(start, end)

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

// rank sorts by kind priority, then name. The sort is stable so equal names
// keep document order.
func rank(matches []Match) {
	if len(matches) < 2 {
		return
	}
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := matches[i].Kind.Priority(), matches[j].Kind.Priority()
		if pi != pj {
			return pi < pj
		}
		return c.CompareString(matches[i].Person.Name, matches[j].Person.Name) < 0
	})
}

// CompareNames orders two names the way Search ranks ties.
func CompareNames(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}
