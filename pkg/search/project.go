package search

import (
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// FilterFlat groups matches by generation and re-emits the generations in
// record-store order, dropping those with no matches. People are the
// original records, not copies. Zero matches yields no generations.
//
// A title shared by several generations is emitted once, at its first
// position, with all of its matches.
func FilterFlat(data model.FamilyData, matches []Match) model.FamilyData {
	if len(matches) == 0 {
		return model.Empty()
	}
	buckets := make(map[string][]*model.Person)
	for _, m := range matches {
		buckets[m.Generation] = append(buckets[m.Generation], m.Person)
	}
	out := model.FamilyData{Generations: make([]model.Generation, 0, len(buckets))}
	for _, g := range data.Generations {
		people, ok := buckets[g.Title]
		if !ok {
			continue
		}
		out.Generations = append(out.Generations, model.Generation{Title: g.Title, People: people})
		delete(buckets, g.Title)
	}
	return out
}

// PruneTree filters a built tree down to the nodes that match term and
// filters, plus every ancestor of such a node. Retained nodes are shallow
// copies; tree itself is not modified.
//
// The generation gate is resolved through data by id. A node without an id
// cannot be placed in a generation, so it never matches on its own while the
// gate is active.
func PruneTree(data, tree model.FamilyData, term string, filters Filters) model.FamilyData {
	defer metrics.Timer(metrics.TreePrune)()

	gate := generationGate(filters.SelectedGenerations)
	var genOf map[string]string
	if gate != nil {
		genOf = data.GenerationOf()
	}
	selfMatch := func(p *model.Person) bool {
		if gate != nil {
			title, ok := genOf[p.ID]
			if p.ID == "" || !ok || !gate[title] {
				return false
			}
		}
		_, _, ok := matchPerson(p, term, filters)
		return ok
	}

	onPath := make(map[*model.Person]bool)
	var prune func(p *model.Person) (*model.Person, bool)
	prune = func(p *model.Person) (*model.Person, bool) {
		if p == nil || onPath[p] {
			return nil, false
		}
		onPath[p] = true
		defer delete(onPath, p)

		kept := make([]*model.Person, 0, len(p.Children))
		for _, c := range p.Children {
			if k, ok := prune(c); ok {
				kept = append(kept, k)
			}
		}
		if len(kept) == 0 && !selfMatch(p) {
			return nil, false
		}
		cp := *p
		cp.Children = kept
		return &cp, true
	}

	roots := make([]*model.Person, 0)
	for _, g := range tree.Generations {
		for _, p := range g.People {
			if k, ok := prune(p); ok {
				roots = append(roots, k)
			}
		}
	}
	return model.FamilyData{Generations: []model.Generation{
		{Title: model.SearchResultsTitle, People: roots},
	}}
}

// Result bundles everything a view needs for one query.
type Result struct {
	Active  bool
	Matches []Match
	Flat    model.FamilyData
	Tree    model.FamilyData
}

// Run evaluates a query against the record store and its built tree. An
// inactive query returns data and tree unchanged with no matches.
func Run(data, tree model.FamilyData, term string, filters Filters) Result {
	if !Active(term, filters) {
		return Result{Flat: data, Tree: tree}
	}
	matches := Search(data, term, filters)
	return Result{
		Active:  true,
		Matches: matches,
		Flat:    FilterFlat(data, matches),
		Tree:    PruneTree(data, tree, term, filters),
	}
}
