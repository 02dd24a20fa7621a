package familytree

import "github.com/vanderheijden86/familytree/pkg/model"

// WalkFunc is called for every visited node. depth is 0 for roots.
// Returning false skips the node's children.
type WalkFunc func(p *model.Person, depth int) bool

// Walk visits people depth-first in children order. A node that is already on
// the current root-to-node path is skipped, so cyclic trees terminate. A node
// reachable through two different parents is visited once per path.
func Walk(people []*model.Person, fn WalkFunc) {
	onPath := make(map[*model.Person]bool)
	var visit func(p *model.Person, depth int)
	visit = func(p *model.Person, depth int) {
		if p == nil || onPath[p] {
			return
		}
		if !fn(p, depth) {
			return
		}
		onPath[p] = true
		for _, c := range p.Children {
			visit(c, depth+1)
		}
		delete(onPath, p)
	}
	for _, p := range people {
		visit(p, 0)
	}
}

// NodeCount returns the number of node visits Walk makes over people.
func NodeCount(people []*model.Person) int {
	n := 0
	Walk(people, func(*model.Person, int) bool {
		n++
		return true
	})
	return n
}

// Depth returns the number of levels in the tree (0 for an empty forest).
func Depth(people []*model.Person) int {
	max := 0
	Walk(people, func(_ *model.Person, depth int) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}
