package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// AssertPersonCount verifies the number of person entries in data.
func AssertPersonCount(t *testing.T, data model.FamilyData, expected int) {
	t.Helper()
	if got := data.PersonCount(); got != expected {
		t.Errorf("expected %d people, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies all non-empty person ids are unique.
func AssertNoDuplicateIDs(t *testing.T, data model.FamilyData) {
	t.Helper()
	seen := make(map[string]bool)
	for _, g := range data.Generations {
		for _, p := range g.People {
			if p.ID == "" {
				continue
			}
			if seen[p.ID] {
				t.Errorf("duplicate person id: %s", p.ID)
			}
			seen[p.ID] = true
		}
	}
}

// AssertIDs verifies the ids of people, in order.
func AssertIDs(t *testing.T, people []*model.Person, expected ...string) {
	t.Helper()
	got := IDs(people)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("expected ids [%s], got [%s]", strings.Join(expected, ","), strings.Join(got, ","))
	}
}

// IDs returns the ids of people in order.
func IDs(people []*model.Person) []string {
	ids := make([]string, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.ID)
	}
	return ids
}

// Names returns the names of people in order.
func Names(people []*model.Person) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		names = append(names, p.Name)
	}
	return names
}
