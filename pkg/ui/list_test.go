package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
	"github.com/vanderheijden86/familytree/pkg/testutil"
)

func newTestList(data model.FamilyData) ListModel {
	l := NewListModel(newTestTheme())
	l.SetSize(100, 20)
	l.SetData(data)
	return l
}

func TestListEmpty(t *testing.T) {
	l := newTestList(model.Empty())
	if l.SelectedPerson() != nil {
		t.Error("expected no selection")
	}
	if got := stripANSI(l.View()); !strings.Contains(got, "暂无家族数据") {
		t.Errorf("expected empty state, got %q", got)
	}
}

func TestListGroupsByGeneration(t *testing.T) {
	l := newTestList(threeGenerations())
	if l.PersonCount() != 5 {
		t.Fatalf("expected 5 person rows, got %d", l.PersonCount())
	}
	view := stripANSI(l.View())
	for _, want := range []string{"第一世  2 人", "第二世  1 人", "第三世  2 人", "王四"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q:\n%s", want, view)
		}
	}
	if strings.Index(view, "第一世") > strings.Index(view, "第二世") {
		t.Error("generations out of document order")
	}
}

func TestListNavigationSkipsHeaders(t *testing.T) {
	l := newTestList(threeGenerations())

	var order []string
	for i := 0; i < 6; i++ {
		order = append(order, l.SelectedPerson().ID)
		if l.SelectedGeneration() == "" {
			t.Errorf("row %d has no generation", i)
		}
		l.MoveDown()
	}
	if got := strings.Join(order, ","); got != "a,z,b,c,d,d" {
		t.Errorf("unexpected navigation order %s", got)
	}

	l.JumpToTop()
	if l.SelectedPerson().ID != "a" {
		t.Errorf("JumpToTop: got %s", l.SelectedPerson().ID)
	}
	l.MoveUp()
	if l.SelectedPerson().ID != "a" {
		t.Errorf("MoveUp at top: got %s", l.SelectedPerson().ID)
	}
	l.JumpToBottom()
	if l.SelectedPerson().ID != "d" || l.SelectedGeneration() != "第三世" {
		t.Errorf("JumpToBottom: got %s in %s", l.SelectedPerson().ID, l.SelectedGeneration())
	}
	l.PageUp()
	l.PageUp()
	if l.SelectedPerson().ID != "a" {
		t.Errorf("PageUp should reach the top, got %s", l.SelectedPerson().ID)
	}
	l.PageDown()
	if l.SelectedPerson().ID != "d" {
		t.Errorf("PageDown should reach the bottom, got %s", l.SelectedPerson().ID)
	}
}

func TestListSetDataKeepsSelection(t *testing.T) {
	data := threeGenerations()
	l := newTestList(data)
	l.JumpToBottom()
	l.SetData(data)
	if l.SelectedPerson().ID != "d" {
		t.Errorf("expected d to stay selected, got %s", l.SelectedPerson().ID)
	}
}

func TestListMatches(t *testing.T) {
	data := testutil.SmallFamily()
	l := newTestList(data)

	matches := search.Search(data, "leiden", search.DefaultFilters())
	l.SetHighlight("leiden", true)
	l.SetMatches(matches, 50)

	active, shown, total := l.Counts()
	if !active || shown != 1 || total != 1 {
		t.Fatalf("Counts() = %v %d %d", active, shown, total)
	}
	view := stripANSI(l.View())
	for _, want := range []string{model.SearchResultsTitle, "共 1 条结果", "Bob", "信息", "Leiden"} {
		if !strings.Contains(view, want) {
			t.Errorf("results view missing %q:\n%s", want, view)
		}
	}
}

func TestListMatchesCapped(t *testing.T) {
	data := testutil.SmallFamily()
	l := newTestList(data)
	matches := search.Search(data, "1920 1955", search.DefaultFilters())
	if len(matches) != 2 {
		t.Fatalf("expected both people to match by year, got %d", len(matches))
	}

	l.SetMatches(matches, 1)
	if l.PersonCount() != 1 {
		t.Errorf("expected 1 row, got %d", l.PersonCount())
	}
	if view := stripANSI(l.View()); !strings.Contains(view, "显示前 1 条，共 2 条结果") {
		t.Errorf("expected capped note:\n%s", view)
	}
}

func TestListNoMatches(t *testing.T) {
	l := newTestList(testutil.SmallFamily())
	l.SetMatches(nil, 50)
	if got := stripANSI(l.View()); !strings.Contains(got, "未找到匹配的家族成员") {
		t.Errorf("expected no-results state, got %q", got)
	}
	if l.SelectedPerson() != nil {
		t.Error("expected no selection without results")
	}
}
