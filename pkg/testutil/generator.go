// Package testutil provides deterministic family fixtures for tests and
// benchmarks. All generators produce the same output for the same seed.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// GeneratorConfig controls family generation.
type GeneratorConfig struct {
	Seed        int64   // Random seed (0 = 42)
	Generations int     // Number of generations (default 4)
	Roots       int     // People in generation 0 (default 2)
	MaxChildren int     // Max children per person (default 3)
	IDPrefix    string  // Prefix for person ids (default "P")
	StartYear   int     // Birth year of generation 0 (default 1850)
	InfoRate    float64 // Fraction of people with info text
	DeathRate   float64 // Fraction of people with a death year
	MissingID   float64 // Fraction of non-root people without an id
	Dangling    float64 // Fraction of non-root people with an unresolvable fatherId
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		Generations: 4,
		Roots:       2,
		MaxChildren: 3,
		IDPrefix:    "P",
		StartYear:   1850,
		InfoRate:    0.5,
		DeathRate:   0.7,
	}
}

// Generator creates FamilyData fixtures.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator, filling zero-valued fields from DefaultConfig.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.Generations <= 0 {
		cfg.Generations = def.Generations
	}
	if cfg.Roots <= 0 {
		cfg.Roots = def.Roots
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = def.MaxChildren
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = def.IDPrefix
	}
	if cfg.StartYear == 0 {
		cfg.StartYear = def.StartYear
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var (
	surnames   = []string{"王", "李", "张", "刘", "陈"}
	givenNames = []string{"德", "明", "文", "华", "国", "建", "志", "永", "春", "秋", "安", "平"}
	infoLines  = []string{
		"曾任县学教谕，著有诗集",
		"迁居江南，经营布庄",
		"moved to Shanghai in search of work",
		"served as a village teacher for thirty years",
		"长于书法，乐善好施",
	}
)

// Family generates a family whose fathers always live in the previous
// generation, so the fatherId graph is acyclic.
func (g *Generator) Family() model.FamilyData {
	data := model.FamilyData{Generations: make([]model.Generation, 0, g.cfg.Generations)}
	surname := surnames[g.rng.Intn(len(surnames))]

	var prev []*model.Person
	for gen := 0; gen < g.cfg.Generations; gen++ {
		title := fmt.Sprintf("第%d世", gen+1)
		var people []*model.Person
		if gen == 0 {
			for i := 0; i < g.cfg.Roots; i++ {
				people = append(people, g.person(surname, gen, ""))
			}
		} else {
			for _, father := range prev {
				if !father.HasID() {
					continue
				}
				n := g.rng.Intn(g.cfg.MaxChildren + 1)
				for i := 0; i < n; i++ {
					people = append(people, g.child(surname, gen, father.ID))
				}
			}
		}
		if people == nil {
			people = []*model.Person{}
		}
		data.Generations = append(data.Generations, model.Generation{Title: title, People: people})
		prev = people
	}
	return data
}

func (g *Generator) child(surname string, gen int, fatherID string) *model.Person {
	p := g.person(surname, gen, fatherID)
	if g.rng.Float64() < g.cfg.Dangling {
		p.FatherID = g.cfg.IDPrefix + "-missing"
	}
	if g.rng.Float64() < g.cfg.MissingID {
		p.ID = ""
	}
	return p
}

func (g *Generator) person(surname string, gen int, fatherID string) *model.Person {
	g.next++
	p := &model.Person{
		ID:       fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next),
		Name:     surname + givenNames[g.rng.Intn(len(givenNames))] + givenNames[g.rng.Intn(len(givenNames))],
		FatherID: fatherID,
	}
	birth := g.cfg.StartYear + gen*25 + g.rng.Intn(10)
	p.BirthYear = model.IntPtr(birth)
	if g.rng.Float64() < g.cfg.DeathRate {
		p.DeathYear = model.IntPtr(birth + 40 + g.rng.Intn(45))
	}
	if g.rng.Float64() < g.cfg.InfoRate {
		p.Info = infoLines[g.rng.Intn(len(infoLines))]
	}
	return p
}

// SmallFamily returns the two-person example used throughout the tests:
// Alice (id 1) and her son Bob (id 2) in a single generation.
func SmallFamily() model.FamilyData {
	return model.FamilyData{Generations: []model.Generation{
		{Title: "G1", People: []*model.Person{
			{ID: "1", Name: "Alice", BirthYear: model.IntPtr(1920), DeathYear: model.IntPtr(1990)},
			{ID: "2", Name: "Bob", FatherID: "1", BirthYear: model.IntPtr(1955), Info: "carpenter in Leiden"},
		}},
	}}
}
