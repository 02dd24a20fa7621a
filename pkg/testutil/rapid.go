package testutil

import (
	"fmt"

	"github.com/vanderheijden86/familytree/pkg/model"
	"pgregory.net/rapid"
)

// FamilyGen draws acyclic FamilyData documents for property tests. Fathers
// are always drawn from earlier generations; some people lack ids and some
// fatherIds dangle.
func FamilyGen() *rapid.Generator[model.FamilyData] {
	return rapid.Custom(func(t *rapid.T) model.FamilyData {
		nGen := rapid.IntRange(0, 4).Draw(t, "generations")
		data := model.FamilyData{Generations: make([]model.Generation, 0, nGen)}
		var known []string
		next := 0
		for gi := 0; gi < nGen; gi++ {
			n := rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("people%d", gi))
			g := model.Generation{Title: fmt.Sprintf("G%d", gi+1), People: make([]*model.Person, 0, n)}
			var added []string
			for i := 0; i < n; i++ {
				next++
				p := &model.Person{
					Name: rapid.SampledFrom([]string{"Alice", "Bob", "王德明", "李文", "Ann Lee", "zoë"}).Draw(t, "name") + fmt.Sprint(next),
				}
				if rapid.IntRange(0, 9).Draw(t, "hasID") > 0 {
					p.ID = fmt.Sprintf("p%d", next)
					added = append(added, p.ID)
				}
				if gi > 0 && len(known) > 0 && rapid.Bool().Draw(t, "hasFather") {
					p.FatherID = rapid.SampledFrom(known).Draw(t, "father")
				} else if rapid.IntRange(0, 9).Draw(t, "dangling") == 0 {
					p.FatherID = "nowhere"
				}
				if rapid.Bool().Draw(t, "hasBirth") {
					p.BirthYear = model.IntPtr(rapid.IntRange(1800, 2020).Draw(t, "birth"))
				}
				if rapid.Bool().Draw(t, "hasDeath") {
					p.DeathYear = model.IntPtr(rapid.IntRange(1800, 2020).Draw(t, "death"))
				}
				if rapid.Bool().Draw(t, "hasInfo") {
					p.Info = rapid.SampledFrom([]string{"farmer", "teacher in town", "曾任教谕", "born 1901 (a.k.a. [x])"}).Draw(t, "info")
				}
				g.People = append(g.People, p)
			}
			known = append(known, added...)
			data.Generations = append(data.Generations, g)
		}
		return data
	})
}

// TermGen draws search terms, including regex metacharacters and
// multi-word terms.
func TermGen() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		"", "a", "Ali", "bob", "王", "p1", "19", "teacher town", "a.k.a", "[x]", "(", "*", "ann lee", " ",
	})
}
