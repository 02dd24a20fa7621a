package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPersonValidate(t *testing.T) {
	tests := []struct {
		name    string
		person  *Person
		wantErr bool
	}{
		{"ok", &Person{ID: "1", Name: "Alice"}, false},
		{"missing name", &Person{ID: "1"}, true},
		{"blank name", &Person{Name: "  "}, true},
		{"nil", nil, true},
		{"death before birth", &Person{Name: "X", BirthYear: IntPtr(1950), DeathYear: IntPtr(1940)}, true},
		{"same year", &Person{Name: "X", BirthYear: IntPtr(1950), DeathYear: IntPtr(1950)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.person.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := (&Person{ID: "p9"}).Validate(); !errors.Is(err, ErrMissingName) {
		t.Errorf("expected ErrMissingName, got %v", err)
	}
}

func TestLifespan(t *testing.T) {
	p := &Person{Name: "A", BirthYear: IntPtr(1901)}
	if got := p.Lifespan(); got != "1901-" {
		t.Errorf("Lifespan() = %q, want %q", got, "1901-")
	}
	p.DeathYear = IntPtr(1980)
	if got := p.Lifespan(); got != "1901-1980" {
		t.Errorf("Lifespan() = %q, want %q", got, "1901-1980")
	}
	if got := (&Person{Name: "B"}).Lifespan(); got != "-" {
		t.Errorf("Lifespan() = %q, want %q", got, "-")
	}
}

func TestEmptyShapes(t *testing.T) {
	data, _ := json.Marshal(Empty())
	if string(data) != `{"generations":[]}` {
		t.Errorf("Empty() marshaled to %s", data)
	}

	data, _ = json.Marshal(EmptyTree())
	if string(data) != `{"generations":[{"title":"家族树","people":[]}]}` {
		t.Errorf("EmptyTree() marshaled to %s", data)
	}
}

func TestChildrenOmittedWhenEmpty(t *testing.T) {
	data, _ := json.Marshal(&Person{ID: "1", Name: "Alice"})
	if strings.Contains(string(data), "children") {
		t.Errorf("expected no children key, got %s", data)
	}
}

func TestGenerationOf(t *testing.T) {
	d := FamilyData{Generations: []Generation{
		{Title: "G1", People: []*Person{{ID: "1", Name: "A"}, {Name: "no id"}}},
		{Title: "G2", People: []*Person{{ID: "2", Name: "B"}, {ID: "1", Name: "dup"}}},
	}}

	idx := d.GenerationOf()
	if idx["2"] != "G2" {
		t.Errorf("expected id 2 in G2, got %q", idx["2"])
	}
	if idx["1"] != "G2" {
		t.Errorf("expected duplicate id 1 to resolve to last occurrence G2, got %q", idx["1"])
	}
	if len(idx) != 2 {
		t.Errorf("expected 2 indexed ids, got %d", len(idx))
	}
	if d.PersonCount() != 4 {
		t.Errorf("PersonCount() = %d, want 4", d.PersonCount())
	}
	if got := strings.Join(d.GenerationTitles(), ","); got != "G1,G2" {
		t.Errorf("GenerationTitles() = %q", got)
	}
}
