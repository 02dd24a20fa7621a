package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/testutil"
)

func TestSanitizeMermaidID(t *testing.T) {
	tests := map[string]string{
		"abc-1_2": "abc-1_2",
		"a b/c":   "abc",
		"陈1":      "陈1",
		"!!!":     "node",
		"":        "node",
	}
	for in, want := range tests {
		if got := sanitizeMermaidID(in); got != want {
			t.Errorf("sanitizeMermaidID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeMermaidText(t *testing.T) {
	if got := sanitizeMermaidText(`a "b" [c]`); got != "a 'b' (c)" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("族", 50)
	if got := sanitizeMermaidText(long); len([]rune(got)) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation to 40 runes, got %q", got)
	}
}

func TestGenerateMarkdown(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	md := GenerateMarkdown(threeLevels(), "陈氏族谱", when)

	for _, want := range []string{
		"# 陈氏族谱",
		"4 people in 3 generations.",
		"```mermaid\ngraph TD\n",
		"p_a --> p_b",
		"p_b --> p_d",
		"p_a --> p_c",
		"## 一世",
		"- **陈二** (1900-)",
		"## 三世",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Count(md, `p_a["陈大"]`) != 1 {
		t.Error("each node should be declared once")
	}
}

func TestGenerateMarkdown_EmptyAndDefaults(t *testing.T) {
	md := GenerateMarkdown(model.FamilyData{Generations: []model.Generation{{Title: "G1"}}}, "", time.Now())
	if !strings.HasPrefix(md, "# "+model.TreeTitle) {
		t.Errorf("expected default title, got %q", md)
	}
	if strings.Contains(md, "mermaid") {
		t.Error("no diagram without people")
	}
	if !strings.Contains(md, "*(empty)*") {
		t.Error("empty generation should be marked")
	}
}

func TestPersonMarkdown(t *testing.T) {
	tree := familytree.Build(testutil.SmallFamily())
	alice := familytree.Roots(tree)[0]
	bob := alice.Children[0]

	md := PersonMarkdown(bob, "G1", alice)
	for _, want := range []string{"# Bob", "| 世代 | G1 |", "| 生卒 | 1955- |", "| ID | `2` |", "| 父 | Alice |", "carpenter in Leiden"} {
		if !strings.Contains(md, want) {
			t.Errorf("person markdown missing %q\n%s", want, md)
		}
	}

	md = PersonMarkdown(alice, "G1", nil)
	if !strings.Contains(md, "| 子 | Bob |") {
		t.Errorf("expected children row\n%s", md)
	}
	if strings.Contains(md, "| 父 |") {
		t.Error("root has no father row")
	}

	orphan := &model.Person{Name: "*Lost*", FatherID: "99"}
	md = PersonMarkdown(orphan, "", nil)
	if !strings.Contains(md, `# \*Lost\*`) || !strings.Contains(md, "`99` (未找到)") {
		t.Errorf("unexpected orphan markdown\n%s", md)
	}
	if PersonMarkdown(nil, "", nil) != "" {
		t.Error("nil person renders nothing")
	}
}

func TestSaveMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.md")
	if err := SaveMarkdown(path, testutil.SmallFamily(), "Test"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "# Test") {
		t.Errorf("unexpected file content: %q", string(b)[:20])
	}
}
