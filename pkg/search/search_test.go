package search

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/testutil"
	"pgregory.net/rapid"
)

func kinds(matches []Match) []MatchKind {
	out := make([]MatchKind, len(matches))
	for i, m := range matches {
		out[i] = m.Kind
	}
	return out
}

func names(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Person.Name
	}
	return out
}

func TestSearchNamePrefix(t *testing.T) {
	got := Search(testutil.SmallFamily(), "Ali", DefaultFilters())
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d: %v", len(got), names(got))
	}
	if got[0].Person.Name != "Alice" || got[0].Kind != KindName || got[0].Text != "Alice" {
		t.Errorf("unexpected match %+v", got[0])
	}
	if got[0].Generation != "G1" {
		t.Errorf("expected generation G1, got %q", got[0].Generation)
	}
}

func TestSearchYearRangeOnly(t *testing.T) {
	f := DefaultFilters()
	f.YearRange = YearRange{Start: model.IntPtr(1950), End: model.IntPtr(1960)}

	got := Search(testutil.SmallFamily(), "", f)
	if len(got) != 1 || got[0].Person.Name != "Bob" {
		t.Fatalf("expected only Bob, got %v", names(got))
	}
	if got[0].Kind != KindYear || got[0].Text != "1955-" {
		t.Errorf("expected year match with text 1955-, got %+v", got[0])
	}
}

func TestSearchOpenEndedYearRange(t *testing.T) {
	f := DefaultFilters()
	f.YearRange = YearRange{End: model.IntPtr(1925)}
	got := Search(testutil.SmallFamily(), "", f)
	if !reflect.DeepEqual(names(got), []string{"Alice"}) {
		t.Errorf("expected Alice by birth year, got %v", names(got))
	}

	f.YearRange = YearRange{Start: model.IntPtr(1985)}
	got = Search(testutil.SmallFamily(), "", f)
	if !reflect.DeepEqual(names(got), []string{"Alice"}) {
		t.Errorf("expected Alice by death year, got %v", names(got))
	}
}

func TestSearchYearRangeWithTerm(t *testing.T) {
	f := DefaultFilters()
	f.YearRange = YearRange{Start: model.IntPtr(1950), End: model.IntPtr(1960)}

	if got := Search(testutil.SmallFamily(), "Alice", f); len(got) != 0 {
		t.Errorf("year range must exclude Alice even though her name matches, got %v", names(got))
	}
	got := Search(testutil.SmallFamily(), "bob", f)
	if len(got) != 1 || got[0].Kind != KindName {
		t.Errorf("expected Bob as a name match inside the range, got %+v", got)
	}
	if got := Search(testutil.SmallFamily(), "nobody", f); len(got) != 0 {
		t.Errorf("range pass alone is not enough when a term is given, got %v", names(got))
	}
}

func TestSearchEmptyQueryMatchesEveryone(t *testing.T) {
	got := Search(testutil.SmallFamily(), "", DefaultFilters())
	if !reflect.DeepEqual(names(got), []string{"Alice", "Bob"}) {
		t.Fatalf("expected everyone, got %v", names(got))
	}
	for _, m := range got {
		if m.Kind != KindName || m.Text != "" {
			t.Errorf("expected bare name match, got %+v", m)
		}
	}
	if Active("", DefaultFilters()) {
		t.Error("empty term with default filters must be inactive")
	}
}

func TestSearchIDMatch(t *testing.T) {
	got := Search(testutil.SmallFamily(), "2", DefaultFilters())
	if len(got) != 1 || got[0].Person.Name != "Bob" || got[0].Kind != KindID || got[0].Text != "2" {
		t.Errorf("expected Bob as id match, got %+v", got)
	}
}

func TestSearchInfo(t *testing.T) {
	got := Search(testutil.SmallFamily(), "LEIDEN", DefaultFilters())
	if len(got) != 1 || got[0].Kind != KindInfo || got[0].Text != "carpenter in Leiden" {
		t.Fatalf("expected Bob as info match, got %+v", got)
	}

	f := DefaultFilters()
	f.SearchInInfo = false
	if got := Search(testutil.SmallFamily(), "leiden", f); len(got) != 0 {
		t.Errorf("info search disabled, got %v", names(got))
	}
}

func TestSearchInfoWordsMatchOutOfOrder(t *testing.T) {
	got := Search(testutil.SmallFamily(), "leiden  carpenter", DefaultFilters())
	if len(got) != 1 || got[0].Kind != KindInfo {
		t.Fatalf("expected conjunctive word match, got %+v", got)
	}
	if got[0].Text != "carpenter in Leiden" {
		t.Errorf("expected whole info text for a word-wise hit, got %q", got[0].Text)
	}
	if got := Search(testutil.SmallFamily(), "carpenter amsterdam", DefaultFilters()); len(got) != 0 {
		t.Errorf("every word must appear, got %v", names(got))
	}
}

func TestSearchLiteralYearInTerm(t *testing.T) {
	got := Search(testutil.SmallFamily(), "born 1920", DefaultFilters())
	if len(got) != 1 || got[0].Person.Name != "Alice" || got[0].Kind != KindYear || got[0].Text != "1920" {
		t.Errorf("expected Alice via birth year, got %+v", got)
	}
	got = Search(testutil.SmallFamily(), "d.1990", DefaultFilters())
	if len(got) != 1 || got[0].Text != "1990" {
		t.Errorf("expected Alice via death year, got %+v", got)
	}
}

func TestSearchRankingByKindThenName(t *testing.T) {
	data := model.FamilyData{Generations: []model.Generation{{Title: "G1", People: []*model.Person{
		{ID: "s", Name: "S", Info: "see x1900"},
		{ID: "r", Name: "R", BirthYear: model.IntPtr(1900)},
		{ID: "ax1900b", Name: "Q"},
		{ID: "p2", Name: "x1900 Senior"},
		{ID: "p1", Name: "x1900 Junior"},
	}}}}

	got := Search(data, "x1900", DefaultFilters())
	wantKinds := []MatchKind{KindName, KindName, KindID, KindYear, KindInfo}
	if !reflect.DeepEqual(kinds(got), wantKinds) {
		t.Fatalf("kinds = %v, want %v", kinds(got), wantKinds)
	}
	wantNames := []string{"x1900 Junior", "x1900 Senior", "Q", "R", "S"}
	if !reflect.DeepEqual(names(got), wantNames) {
		t.Errorf("names = %v, want %v", names(got), wantNames)
	}
}

func TestSearchGenerationGate(t *testing.T) {
	data := model.FamilyData{Generations: []model.Generation{
		{Title: "G1", People: []*model.Person{{ID: "a", Name: "Ann"}}},
		{Title: "G2", People: []*model.Person{{ID: "b", Name: "Anna"}}},
	}}
	f := DefaultFilters().ToggleGeneration("G2")
	got := Search(data, "ann", f)
	if len(got) != 1 || got[0].Generation != "G2" {
		t.Errorf("expected only G2 match, got %+v", got)
	}
	if !Active("", f) {
		t.Error("a generation selection alone makes the query active")
	}
	if f.ToggleGeneration("G2").IsSelected("G2") {
		t.Error("toggling twice must deselect")
	}
}

func TestSearchToleratesMalformedRecords(t *testing.T) {
	data := model.FamilyData{Generations: []model.Generation{
		{Title: "G1", People: []*model.Person{nil, {Name: ""}, {Name: "a.k.a [x]"}}},
	}}
	for _, term := range []string{"[x]", "(", "*", "a.k.a", "\\"} {
		_ = Search(data, term, DefaultFilters())
	}
	got := Search(data, "[x]", DefaultFilters())
	if len(got) != 1 || got[0].Person.Name != "a.k.a [x]" {
		t.Errorf("expected literal match, got %+v", got)
	}
}

func TestInfoWindow(t *testing.T) {
	info := strings.Repeat("a", 30) + "TARGET" + strings.Repeat("b", 30)
	want := "..." + strings.Repeat("a", 20) + "TARGET" + strings.Repeat("b", 20) + "..."
	if got := infoWindow(info, "target"); got != want {
		t.Errorf("infoWindow() = %q, want %q", got, want)
	}

	zh := strings.Repeat("前", 25) + "教谕" + "后"
	want = "..." + strings.Repeat("前", 20) + "教谕" + "后"
	if got := infoWindow(zh, "教谕"); got != want {
		t.Errorf("infoWindow() = %q, want %q", got, want)
	}

	if got := infoWindow("short note", "note"); got != "short note" {
		t.Errorf("expected untruncated text, got %q", got)
	}
}

func TestParseYearRange(t *testing.T) {
	r, err := ParseYearRange(" 1950 ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Start == nil || *r.Start != 1950 || r.End != nil {
		t.Errorf("unexpected range %+v", r)
	}
	if r.String() != "1950-" {
		t.Errorf("String() = %q", r.String())
	}
	if _, err := ParseYearRange("", "soon"); err == nil {
		t.Error("expected error for non-numeric year")
	}
	r, _ = ParseYearRange("", "")
	if r.Active() {
		t.Error("blank bounds must leave the range inactive")
	}
}

func TestSearchProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := testutil.FamilyGen().Draw(t, "data")
		term := testutil.TermGen().Draw(t, "term")
		f := DefaultFilters()
		f.SearchInInfo = rapid.Bool().Draw(t, "info")
		if rapid.Bool().Draw(t, "gate") {
			f.SelectedGenerations = []string{"G2"}
		}
		if rapid.Bool().Draw(t, "range") {
			lo := rapid.IntRange(1800, 2020).Draw(t, "lo")
			hi := rapid.IntRange(lo, 2020).Draw(t, "hi")
			f.YearRange = YearRange{Start: &lo, End: &hi}
		}

		first := Search(data, term, f)
		if !reflect.DeepEqual(first, Search(data, term, f)) {
			t.Fatalf("search is not deterministic")
		}

		for i, m := range first {
			if len(f.SelectedGenerations) > 0 && m.Generation != "G2" {
				t.Fatalf("match %d from generation %q escaped the gate", i, m.Generation)
			}
			if f.YearRange.Active() && !f.YearRange.Contains(m.Person.BirthYear) && !f.YearRange.Contains(m.Person.DeathYear) {
				t.Fatalf("match %d (%s) outside year range %s", i, m.Person.Name, f.YearRange)
			}
			if i == 0 {
				continue
			}
			prev := first[i-1]
			if pp, pm := prev.Kind.Priority(), m.Kind.Priority(); pp > pm {
				t.Fatalf("kind %s ranked before %s", prev.Kind, m.Kind)
			} else if pp == pm && CompareNames(prev.Person.Name, m.Person.Name) > 0 {
				t.Fatalf("%q ranked before %q", prev.Person.Name, m.Person.Name)
			}
		}
	})
}
