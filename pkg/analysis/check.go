// Package analysis checks a family record store for the structural problems
// the tree builder tolerates silently: fatherId cycles, duplicate ids,
// dangling fathers, and people the tree can never show.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// Kind classifies a finding.
type Kind string

const (
	KindCycle          Kind = "cycle"
	KindSelfFather     Kind = "self_father"
	KindDuplicateID    Kind = "duplicate_id"
	KindDanglingFather Kind = "dangling_father"
	KindMissingID      Kind = "missing_id"
	KindInvalid        Kind = "invalid"
	KindUnreachable    Kind = "unreachable"
	KindGenerationSkew Kind = "generation_skew"
)

// Severity says whether a finding breaks the tree or just looks odd.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one problem in the record store.
type Finding struct {
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	IDs        []string `json:"ids,omitempty"`
	Generation string   `json:"generation,omitempty"`
	Message    string   `json:"message"`
}

// Report summarises a check.
type Report struct {
	People      int        `json:"people"`
	Generations int        `json:"generations"`
	Roots       int        `json:"roots"`
	TreeNodes   int        `json:"tree_nodes"`
	TreeDepth   int        `json:"tree_depth"`
	Cycles      [][]string `json:"cycles,omitempty"`
	Findings    []Finding  `json:"findings"`
}

// OK reports whether no finding has error severity.
func (r Report) OK() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Count returns how many findings have the given kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Config limits what Check reports.
type Config struct {
	// MaxCycles caps the number of cycles reported. Default: 20
	MaxCycles int
	// IncludeInfo keeps info-severity findings.
	IncludeInfo bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxCycles: 20, IncludeInfo: true}
}

type located struct {
	person *model.Person
	gen    int
	title  string
}

// Check runs every structural check over data.
func Check(data model.FamilyData, cfg Config) Report {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultConfig().MaxCycles
	}

	r := Report{
		People:      data.PersonCount(),
		Generations: len(data.Generations),
		Findings:    []Finding{},
	}

	byID := make(map[string][]located)
	var all []located
	for gi, g := range data.Generations {
		for _, p := range g.People {
			if p == nil {
				continue
			}
			loc := located{person: p, gen: gi, title: g.Title}
			all = append(all, loc)
			if p.ID != "" {
				byID[p.ID] = append(byID[p.ID], loc)
			}
		}
	}

	add := func(f Finding) {
		if f.Severity == SeverityInfo && !cfg.IncludeInfo {
			return
		}
		r.Findings = append(r.Findings, f)
	}

	for _, id := range sortedKeys(byID) {
		if locs := byID[id]; len(locs) > 1 {
			titles := make([]string, len(locs))
			for i, l := range locs {
				titles[i] = l.title
			}
			add(Finding{
				Kind:     KindDuplicateID,
				Severity: SeverityError,
				IDs:      []string{id},
				Message:  fmt.Sprintf("id %q is used %d times (%s); the last entry wins", id, len(locs), strings.Join(titles, ", ")),
			})
		}
	}

	for _, l := range all {
		p := l.person
		if err := p.Validate(); err != nil {
			add(Finding{Kind: KindInvalid, Severity: SeverityWarning, IDs: idList(p), Generation: l.title, Message: err.Error()})
		}
		if p.ID == "" {
			msg := fmt.Sprintf("%q has no id and cannot be linked or located", p.Name)
			add(Finding{Kind: KindMissingID, Severity: SeverityWarning, Generation: l.title, Message: msg})
		}
		if p.FatherID == "" {
			continue
		}
		if p.FatherID == p.ID {
			add(Finding{Kind: KindSelfFather, Severity: SeverityError, IDs: []string{p.ID}, Generation: l.title,
				Message: fmt.Sprintf("%q lists itself as its father", p.Name)})
			continue
		}
		fathers, ok := byID[p.FatherID]
		if !ok {
			add(Finding{Kind: KindDanglingFather, Severity: SeverityWarning, IDs: idList(p), Generation: l.title,
				Message: fmt.Sprintf("%q has fatherId %q which matches nobody", p.Name, p.FatherID)})
			continue
		}
		if father := fathers[len(fathers)-1]; father.gen >= l.gen {
			add(Finding{Kind: KindGenerationSkew, Severity: SeverityInfo, IDs: []string{p.FatherID, p.ID}, Generation: l.title,
				Message: fmt.Sprintf("%q is in %q but its father is in %q", p.Name, l.title, father.title)})
		}
	}

	r.Cycles = fatherCycles(all, byID, cfg.MaxCycles)
	for _, c := range r.Cycles {
		add(Finding{Kind: KindCycle, Severity: SeverityError, IDs: c,
			Message: fmt.Sprintf("fatherId cycle: %s -> %s", strings.Join(c, " -> "), c[0])})
	}

	tree := familytree.Build(data)
	roots := familytree.Roots(tree)
	r.Roots = len(roots)
	r.TreeNodes = familytree.NodeCount(roots)
	r.TreeDepth = familytree.Depth(roots)

	shown := make(map[string]bool)
	familytree.Walk(roots, func(p *model.Person, _ int) bool {
		shown[p.ID] = true
		return true
	})
	for _, l := range all {
		p := l.person
		if p.ID == "" || shown[p.ID] {
			continue
		}
		add(Finding{Kind: KindUnreachable, Severity: SeverityInfo, IDs: []string{p.ID}, Generation: l.title,
			Message: fmt.Sprintf("%q does not descend from anyone in the first generation and is not shown in the tree", p.Name)})
	}

	for _, f := range DetectPossibleDuplicates(data, DefaultDuplicateConfig()) {
		add(f)
	}

	return r
}

// fatherCycles returns the strongly connected components of the father graph
// that contain more than one person. Each cycle is rotated to start at its
// smallest id, and cycles are sorted by that id.
func fatherCycles(all []located, byID map[string][]located, limit int) [][]string {
	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(byID))
	nodeToID := make(map[int64]string, len(byID))
	for _, id := range sortedKeys(byID) {
		n := g.NewNode()
		g.AddNode(n)
		idToNode[id] = n.ID()
		nodeToID[n.ID()] = id
	}
	for _, l := range all {
		p := l.person
		if p.ID == "" || p.FatherID == "" || p.FatherID == p.ID {
			continue
		}
		f, ok := idToNode[p.FatherID]
		if !ok {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(f), g.Node(idToNode[p.ID])))
	}

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		cycles = append(cycles, orderCycle(g, scc, nodeToID))
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	if len(cycles) > limit {
		cycles = cycles[:limit]
	}
	return cycles
}

// orderCycle lists the component's ids following father edges from the
// smallest id, falling back to sorted order when the component is not a
// simple ring.
func orderCycle(g *simple.DirectedGraph, scc []graph.Node, nodeToID map[int64]string) []string {
	in := make(map[int64]bool, len(scc))
	ids := make([]string, 0, len(scc))
	for _, n := range scc {
		in[n.ID()] = true
		ids = append(ids, nodeToID[n.ID()])
	}
	sort.Strings(ids)

	var start int64
	for id, s := range nodeToID {
		if s == ids[0] {
			start = id
		}
	}
	path := []string{ids[0]}
	seen := map[int64]bool{start: true}
	cur := start
	for len(path) < len(ids) {
		next := int64(-1)
		succ := graph.NodesOf(g.From(cur))
		sort.Slice(succ, func(i, j int) bool { return nodeToID[succ[i].ID()] < nodeToID[succ[j].ID()] })
		for _, n := range succ {
			if in[n.ID()] && !seen[n.ID()] {
				next = n.ID()
				break
			}
		}
		if next < 0 {
			return ids
		}
		seen[next] = true
		path = append(path, nodeToID[next])
		cur = next
	}
	return path
}

func idList(p *model.Person) []string {
	if p.ID == "" {
		return nil
	}
	return []string{p.ID}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
