package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// KindPossibleDuplicate flags two records that look like the same person
// entered twice under different ids.
const KindPossibleDuplicate Kind = "possible_duplicate"

// DuplicateConfig configures duplicate detection.
type DuplicateConfig struct {
	// RequireSameGeneration only compares people in the same generation.
	// Default: false
	RequireSameGeneration bool

	// MaxSuggestions limits the number of findings. Default: 20
	MaxSuggestions int
}

// DefaultDuplicateConfig returns sensible defaults.
func DefaultDuplicateConfig() DuplicateConfig {
	return DuplicateConfig{MaxSuggestions: 20}
}

type dupKey struct {
	name  string
	birth int
}

// DetectPossibleDuplicates groups people with the same normalized name and
// the same birth year. People without a birth year are never grouped.
func DetectPossibleDuplicates(data model.FamilyData, cfg DuplicateConfig) []Finding {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultDuplicateConfig().MaxSuggestions
	}

	groups := make(map[dupKey][]located)
	var order []dupKey
	for gi, g := range data.Generations {
		for _, p := range g.People {
			if p == nil || p.ID == "" || p.BirthYear == nil {
				continue
			}
			name := normalizeName(p.Name)
			if name == "" {
				continue
			}
			k := dupKey{name: name, birth: *p.BirthYear}
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], located{person: p, gen: gi, title: g.Title})
		}
	}

	var out []Finding
	for _, k := range order {
		for _, set := range splitGroup(groups[k], cfg.RequireSameGeneration) {
			ids := distinctIDs(set)
			if len(ids) < 2 {
				continue
			}
			out = append(out, Finding{
				Kind:       KindPossibleDuplicate,
				Severity:   SeverityInfo,
				IDs:        ids,
				Generation: set[0].title,
				Message:    fmt.Sprintf("%q born %d appears under %d ids", set[0].person.Name, k.birth, len(ids)),
			})
			if len(out) >= cfg.MaxSuggestions {
				return out
			}
		}
	}
	return out
}

func splitGroup(locs []located, byGeneration bool) [][]located {
	if !byGeneration {
		return [][]located{locs}
	}
	byGen := make(map[int][]located)
	var gens []int
	for _, l := range locs {
		if _, ok := byGen[l.gen]; !ok {
			gens = append(gens, l.gen)
		}
		byGen[l.gen] = append(byGen[l.gen], l)
	}
	sort.Ints(gens)
	out := make([][]located, 0, len(gens))
	for _, g := range gens {
		out = append(out, byGen[g])
	}
	return out
}

func distinctIDs(locs []located) []string {
	seen := make(map[string]bool, len(locs))
	var ids []string
	for _, l := range locs {
		if !seen[l.person.ID] {
			seen[l.person.ID] = true
			ids = append(ids, l.person.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// normalizeName folds case and collapses whitespace.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
