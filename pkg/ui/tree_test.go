package ui

import (
	"io"
	"os"
	"regexp"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/testutil"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string { return ansiRe.ReplaceAllString(s, "") }

func newTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(io.Discard))
}

// threeGenerations: Wang Da -> Wang Er -> (Wang San, Wang Si), plus an
// unrelated root.
func threeGenerations() model.FamilyData {
	return model.FamilyData{Generations: []model.Generation{
		{Title: "第一世", People: []*model.Person{
			{ID: "a", Name: "王大", BirthYear: model.IntPtr(1900)},
			{ID: "z", Name: "李四"},
		}},
		{Title: "第二世", People: []*model.Person{
			{ID: "b", Name: "王二", FatherID: "a", BirthYear: model.IntPtr(1930), DeathYear: model.IntPtr(2001)},
		}},
		{Title: "第三世", People: []*model.Person{
			{ID: "c", Name: "王三", FatherID: "b"},
			{ID: "d", Name: "王四", FatherID: "b", DeathYear: model.IntPtr(2020)},
		}},
	}}
}

func newBuiltTree(t *testing.T, data model.FamilyData) TreeModel {
	t.Helper()
	tree := NewTreeModel(newTestTheme())
	tree.SetSize(80, 20)
	tree.Build(familytree.Build(data))
	return tree
}

func TestTreeBuildEmpty(t *testing.T) {
	tree := NewTreeModel(newTestTheme())
	tree.Build(model.EmptyTree())

	if tree.NodeCount() != 0 {
		t.Errorf("expected 0 nodes, got %d", tree.NodeCount())
	}
	if tree.SelectedPerson() != nil {
		t.Error("expected no selection in an empty tree")
	}
	if !strings.Contains(stripANSI(tree.View()), "没有可显示的家族成员") {
		t.Errorf("expected empty state, got %q", tree.View())
	}
}

func TestTreeStartsExpanded(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())
	if tree.NodeCount() != 5 {
		t.Fatalf("expected all 5 people visible, got %d", tree.NodeCount())
	}
	if got := tree.SelectedPerson(); got == nil || got.ID != "a" {
		t.Fatalf("expected cursor on first root, got %+v", got)
	}
}

func TestTreeView(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())
	view := stripANSI(tree.View())

	for _, want := range []string{model.TreeTitle, "5 人", "王大", "1930 - 2001", " - 2020", "├──", "└──", "▾"} {
		if !strings.Contains(view, want) {
			t.Errorf("tree view missing %q:\n%s", want, view)
		}
	}
}

func TestTreeToggleExpand(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())

	tree.ToggleExpand()
	if tree.NodeCount() != 2 {
		t.Fatalf("expected 2 visible after collapsing the first root, got %d", tree.NodeCount())
	}
	if !strings.Contains(stripANSI(tree.View()), "▸") {
		t.Error("expected collapsed indicator")
	}

	tree.ToggleExpand()
	if tree.NodeCount() != 5 {
		t.Fatalf("expected 5 visible after expanding, got %d", tree.NodeCount())
	}
}

func TestTreeToggleLeafIsNoop(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())
	tree.JumpToBottom()
	if got := tree.SelectedPerson(); got.ID != "z" {
		t.Fatalf("expected last node z, got %s", got.ID)
	}
	tree.ToggleExpand()
	if tree.NodeCount() != 5 {
		t.Errorf("toggling a leaf changed the tree: %d nodes", tree.NodeCount())
	}
}

func TestTreeNavigation(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())

	tree.ExpandOrMoveToChild()
	if got := tree.SelectedPerson(); got.ID != "b" {
		t.Fatalf("expected to move to child b, got %s", got.ID)
	}
	tree.MoveDown()
	if got := tree.SelectedPerson(); got.ID != "c" {
		t.Fatalf("expected c, got %s", got.ID)
	}
	tree.JumpToParent()
	if got := tree.SelectedPerson(); got.ID != "b" {
		t.Fatalf("expected parent b, got %s", got.ID)
	}

	// Collapse b, then a second press jumps to a.
	tree.CollapseOrJumpToParent()
	if tree.NodeCount() != 3 {
		t.Fatalf("expected b collapsed, got %d nodes", tree.NodeCount())
	}
	tree.CollapseOrJumpToParent()
	if got := tree.SelectedPerson(); got.ID != "a" {
		t.Fatalf("expected a, got %s", got.ID)
	}

	tree.MoveUp()
	if got := tree.SelectedPerson(); got.ID != "a" {
		t.Errorf("MoveUp at the top should stay, got %s", got.ID)
	}
	tree.JumpToBottom()
	tree.MoveDown()
	if got := tree.SelectedPerson(); got.ID != "z" {
		t.Errorf("MoveDown at the bottom should stay, got %s", got.ID)
	}
}

func TestTreeExpandCollapseAll(t *testing.T) {
	tree := newBuiltTree(t, threeGenerations())

	tree.ToggleExpandCollapseAll()
	if tree.NodeCount() != 2 {
		t.Fatalf("expected only roots after collapse all, got %d", tree.NodeCount())
	}
	tree.ToggleExpandCollapseAll()
	if tree.NodeCount() != 5 {
		t.Fatalf("expected everything after expand all, got %d", tree.NodeCount())
	}

	tree.SelectByID("d")
	tree.CollapseAll()
	if got := tree.SelectedPerson(); got.ID != "a" {
		t.Errorf("hidden selection should reset to the top, got %s", got.ID)
	}
	tree.ExpandAll()
	if tree.NodeCount() != 5 {
		t.Errorf("expected 5 after ExpandAll, got %d", tree.NodeCount())
	}
}

func TestTreeBuildKeepsSelection(t *testing.T) {
	data := threeGenerations()
	tree := newBuiltTree(t, data)
	if !tree.SelectByID("d") {
		t.Fatal("SelectByID(d) failed")
	}
	tree.Build(familytree.Build(data))
	if got := tree.SelectedPerson(); got == nil || got.ID != "d" {
		t.Errorf("expected selection to survive rebuild, got %+v", got)
	}
	if tree.SelectByID("missing") {
		t.Error("SelectByID should fail for unknown ids")
	}
}

func TestTreeStatePersistence(t *testing.T) {
	dir := t.TempDir()
	data := familytree.Build(threeGenerations())

	tree := NewTreeModel(newTestTheme())
	tree.SetStateDir(dir)
	tree.Build(data)
	tree.ToggleExpand()

	raw, err := os.ReadFile(TreeStatePath(dir))
	if err != nil {
		t.Fatalf("expected tree state file: %v", err)
	}
	var state TreeState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("invalid state file: %v", err)
	}
	if state.Version != TreeStateVersion || !state.Collapsed["a"] {
		t.Errorf("unexpected state %+v", state)
	}

	again := NewTreeModel(newTestTheme())
	again.SetStateDir(dir)
	again.Build(data)
	if again.NodeCount() != 2 {
		t.Errorf("expected collapse to be restored, got %d nodes", again.NodeCount())
	}
}

func TestTreeStateCorruptFileStartsExpanded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(TreeStatePath(dir), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree := NewTreeModel(newTestTheme())
	tree.SetStateDir(dir)
	tree.Build(familytree.Build(threeGenerations()))
	if tree.NodeCount() != 5 {
		t.Errorf("expected defaults with a corrupt state file, got %d nodes", tree.NodeCount())
	}
}

func TestTreeScrollIndicator(t *testing.T) {
	tree := NewTreeModel(newTestTheme())
	tree.SetSize(80, 4)
	tree.Build(familytree.Build(testutil.NewDefault().Family()))
	if tree.NodeCount() <= 4 {
		t.Skip("generated family too small")
	}
	tree.JumpToBottom()
	view := stripANSI(tree.View())
	if !strings.Contains(view, "/ ") {
		t.Errorf("expected position indicator, got:\n%s", view)
	}
	if got := tree.SelectedNode(); got == nil {
		t.Fatal("expected a selected node")
	}
}

func TestTreeHighlightIsPlainTextSafe(t *testing.T) {
	tree := newBuiltTree(t, testutil.SmallFamily())
	tree.SetHighlight("lei", true)
	view := stripANSI(tree.View())
	if !strings.Contains(view, "carpenter in Leiden") {
		t.Errorf("highlighting altered the text:\n%s", view)
	}
}
