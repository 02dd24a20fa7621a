package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
	"github.com/vanderheijden86/familytree/pkg/testutil"
)

func threeLevels() model.FamilyData {
	return model.FamilyData{Generations: []model.Generation{
		{Title: "一世", People: []*model.Person{{ID: "a", Name: "陈大"}}},
		{Title: "二世", People: []*model.Person{
			{ID: "b", Name: "陈二", FatherID: "a", BirthYear: model.IntPtr(1900)},
			{ID: "c", Name: "Tom & Jerry", FatherID: "a"},
		}},
		{Title: "三世", People: []*model.Person{{ID: "d", Name: "陈三", FatherID: "b"}}},
	}}
}

func TestRenderTreeSVG(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTreeSVG(&buf, TreeSnapshotOptions{Title: "陈氏族谱", Data: threeLevels()})
	if err != nil {
		t.Fatalf("RenderTreeSVG failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "陈氏族谱", "陈大", "陈二", "陈三", "1900-", "Tom &amp; Jerry", "</svg>"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Count(out, "<polyline") != 3 {
		t.Errorf("expected 3 edges, got %d", strings.Count(out, "<polyline"))
	}
	if strings.Contains(out, css(colorMatch)) {
		t.Error("no search, so nothing should be highlighted")
	}
}

func TestRenderTreeSVG_HighlightAndPrune(t *testing.T) {
	var full, pruned bytes.Buffer
	opts := TreeSnapshotOptions{Data: threeLevels(), Term: "陈三", Filters: search.DefaultFilters()}
	if err := RenderTreeSVG(&full, opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(full.String(), css(colorMatch)) {
		t.Error("expected the match to be highlighted")
	}
	if !strings.Contains(full.String(), "Tom &amp; Jerry") {
		t.Error("unpruned snapshot should keep non-matching branches")
	}

	opts.Prune = true
	if err := RenderTreeSVG(&pruned, opts); err != nil {
		t.Fatal(err)
	}
	out := pruned.String()
	if strings.Contains(out, "Tom &amp; Jerry") {
		t.Error("pruned snapshot should drop non-matching branches")
	}
	for _, want := range []string{"陈大", "陈二", "陈三", "1 matches"} {
		if !strings.Contains(out, want) {
			t.Errorf("pruned SVG missing %q", want)
		}
	}
}

func TestRenderTreeSVG_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTreeSVG(&buf, TreeSnapshotOptions{Data: model.Empty()}); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestRenderTreeSVG_CycleTerminates(t *testing.T) {
	data := model.FamilyData{Generations: []model.Generation{
		{Title: "G1", People: []*model.Person{{ID: "a", Name: "A"}}},
		{Title: "G2", People: []*model.Person{
			{ID: "b", Name: "B", FatherID: "a"},
			{ID: "a", Name: "A", FatherID: "b"},
		}},
	}}
	var buf bytes.Buffer
	if err := RenderTreeSVG(&buf, TreeSnapshotOptions{Data: data}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), ">B<") {
		t.Errorf("expected B in the drawing:\n%s", buf.String())
	}
}

func TestLayoutParentsCentredOverChildren(t *testing.T) {
	l := buildTreeLayout(TreeSnapshotOptions{Data: threeLevels()})
	if len(l.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(l.Nodes))
	}
	for i, n := range l.Nodes {
		if n.X < marginX {
			t.Errorf("node %d (%s) starts left of the margin: %v", i, n.Name, n.X)
		}
		if n.ParentIx >= 0 && n.Y <= l.Nodes[n.ParentIx].Y {
			t.Errorf("child %s must be below its parent", n.Name)
		}
	}
	root := l.Nodes[0]
	b, c := l.Nodes[1], l.Nodes[3]
	centre := (b.X + c.X + c.W) / 2
	if got := root.X + root.W/2; got != centre {
		t.Errorf("root centre = %v, want %v", got, centre)
	}
}

func TestSaveTreeSnapshot(t *testing.T) {
	dir := t.TempDir()
	if err := SaveTreeSnapshot(TreeSnapshotOptions{Path: filepath.Join(dir, "nested", "tree"), Data: testutil.SmallFamily()}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "tree.svg")); err != nil {
		t.Errorf("expected .svg to be appended: %v", err)
	}
	if err := SaveTreeSnapshot(TreeSnapshotOptions{Path: filepath.Join(dir, "tree.png"), Data: testutil.SmallFamily()}); err == nil {
		t.Error("expected error for .png")
	}
	if err := SaveTreeSnapshot(TreeSnapshotOptions{Data: testutil.SmallFamily()}); err == nil {
		t.Error("expected error for empty path")
	}
}
