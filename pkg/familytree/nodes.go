package familytree

import "github.com/vanderheijden86/familytree/pkg/model"

// Node is an acyclic, encodable view of a built tree. A person already on the
// path from the root is emitted once more without children and with Cycle set.
type Node struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	BirthYear *int    `json:"birthYear,omitempty"`
	DeathYear *int    `json:"deathYear,omitempty"`
	Info      string  `json:"info,omitempty"`
	Cycle     bool    `json:"cycle,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Nodes converts tree people into Nodes, cutting every back edge.
func Nodes(people []*model.Person) []*Node {
	onPath := make(map[*model.Person]bool)
	var convert func(p *model.Person) *Node
	convert = func(p *model.Person) *Node {
		n := &Node{ID: p.ID, Name: p.Name, BirthYear: p.BirthYear, DeathYear: p.DeathYear, Info: p.Info}
		if onPath[p] {
			n.Cycle = true
			return n
		}
		onPath[p] = true
		defer delete(onPath, p)
		for _, c := range p.Children {
			if c != nil {
				n.Children = append(n.Children, convert(c))
			}
		}
		return n
	}
	out := make([]*Node, 0, len(people))
	for _, p := range people {
		if p != nil {
			out = append(out, convert(p))
		}
	}
	return out
}

// TreeGeneration is the encodable form of the single generation Build
// returns.
type TreeGeneration struct {
	Title  string  `json:"title"`
	People []*Node `json:"people"`
}

// Encodable is the encodable form of a built tree, shaped like FamilyData.
type Encodable struct {
	Generations []TreeGeneration `json:"generations"`
}

// ToEncodable converts the result of Build for JSON encoding.
func ToEncodable(tree model.FamilyData) Encodable {
	out := Encodable{Generations: make([]TreeGeneration, 0, len(tree.Generations))}
	for _, g := range tree.Generations {
		out.Generations = append(out.Generations, TreeGeneration{Title: g.Title, People: Nodes(g.People)})
	}
	return out
}
