// Package familytree rebuilds the parent/child forest from a flat FamilyData
// document.
//
// The builder is a single linear pass over the record store, so it always
// terminates, even on cyclic or duplicated fatherId chains. Such inputs are
// not rejected: a node may end up under more than one parent, or reachable
// from itself. Consumers that recurse into the result must use Walk, which
// refuses to revisit a node already on the current path.
package familytree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/familytree/pkg/debug"
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
)

var errNilPerson = errors.New("nil person entry")

// Build converts the flat record store into a single generation titled
// model.TreeTitle whose people are the roots found in generation 0, each
// carrying a fully linked Children tree.
//
// Any failure degrades to model.EmptyTree(); the cause is only logged.
func Build(data model.FamilyData) (out model.FamilyData) {
	defer metrics.Timer(metrics.TreeBuild)()

	if len(data.Generations) == 0 {
		return model.EmptyTree()
	}

	defer func() {
		if r := recover(); r != nil {
			debug.Log("familytree: build panicked: %v", r)
			out = model.EmptyTree()
		}
	}()

	roots, err := buildRoots(data)
	if err != nil {
		debug.Log("familytree: build failed: %v", err)
		return model.EmptyTree()
	}

	return model.FamilyData{
		Generations: []model.Generation{
			{Title: model.TreeTitle, People: roots},
		},
	}
}

func buildRoots(data model.FamilyData) ([]*model.Person, error) {
	// Step 1: id -> shallow copy with a fresh children slice. Later
	// duplicates overwrite earlier ones.
	nodes := make(map[string]*model.Person, data.PersonCount())
	for gi, g := range data.Generations {
		for pi, p := range g.People {
			if p == nil {
				return nil, fmt.Errorf("generation %d (%q) person %d: %w", gi, g.Title, pi, errNilPerson)
			}
			if !p.HasID() {
				continue
			}
			node := *p
			node.Children = []*model.Person{}
			nodes[p.ID] = &node
		}
	}

	// Step 2: link children to fathers in document order. Children order is
	// therefore generation order, then in-generation order.
	for _, g := range data.Generations {
		for _, p := range g.People {
			if p.FatherID == "" {
				continue
			}
			father, ok := nodes[p.FatherID]
			if !ok {
				continue
			}
			child, ok := nodes[p.ID]
			if !ok {
				continue
			}
			father.Children = append(father.Children, child)
		}
	}

	// Step 3: roots come only from generation 0. People whose father does not
	// resolve are roots. Any other generation-0 person is a root unless it
	// already hangs below a root; a later such root absorbs an earlier one it
	// reaches, so each node is listed once.
	first := data.Generations[0].People
	covered := make(map[*model.Person]bool, len(nodes))
	keep := make(map[*model.Person]bool, len(first))
	absorbable := make(map[*model.Person]bool)
	for _, free := range []bool{true, false} {
		for _, p := range first {
			if !p.HasID() {
				continue
			}
			node, ok := nodes[p.ID]
			if !ok || covered[node] {
				continue
			}
			if _, resolves := nodes[p.FatherID]; free && resolves && p.FatherID != "" {
				continue
			}
			for _, below := range cover(node, covered) {
				if below != node && absorbable[below] {
					delete(keep, below)
					delete(absorbable, below)
				}
			}
			keep[node] = true
			absorbable[node] = !free
		}
	}

	roots := make([]*model.Person, 0, len(keep))
	for _, p := range first {
		if !p.HasID() {
			continue
		}
		if node := nodes[p.ID]; keep[node] {
			roots = append(roots, node)
			delete(keep, node)
		}
	}

	debug.Log("familytree: %d nodes indexed, %d roots", len(nodes), len(roots))
	return roots, nil
}

// cover marks node and everything linked below it, returning every node it
// reached, including ones that were already covered.
func cover(node *model.Person, covered map[*model.Person]bool) []*model.Person {
	var reached []*model.Person
	seen := make(map[*model.Person]bool)
	stack := []*model.Person{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		covered[n] = true
		reached = append(reached, n)
		stack = append(stack, n.Children...)
	}
	return reached
}

// Roots returns the root people of a built tree, or nil for an empty result.
func Roots(tree model.FamilyData) []*model.Person {
	if len(tree.Generations) == 0 {
		return nil
	}
	return tree.Generations[0].People
}
