package export

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// MaxMermaidNodes bounds the diagram in GenerateMarkdown; larger trees are
// listed without one.
const MaxMermaidNodes = 300

// sanitizeMermaidID ensures an ID is valid for Mermaid diagrams.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, replacer.Replace(text))
	result = strings.TrimSpace(result)

	if runes := []rune(result); len(runes) > 40 {
		result = string(runes[:37]) + "..."
	}
	return result
}

// escapeMarkdown neutralises characters that would turn a name into markup.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(
		`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`, "|", `\|`,
	).Replace(s)
}

// PersonMarkdown renders one person for a detail view. father may be nil.
func PersonMarkdown(p *model.Person, generation string, father *model.Person) string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(p.Name))

	sb.WriteString("| | |\n|---|---|\n")
	if generation != "" {
		fmt.Fprintf(&sb, "| 世代 | %s |\n", escapeMarkdown(generation))
	}
	if p.BirthYear != nil || p.DeathYear != nil {
		fmt.Fprintf(&sb, "| 生卒 | %s |\n", p.Lifespan())
	}
	if p.ID != "" {
		fmt.Fprintf(&sb, "| ID | `%s` |\n", p.ID)
	}
	switch {
	case father != nil:
		fmt.Fprintf(&sb, "| 父 | %s |\n", escapeMarkdown(father.Name))
	case p.FatherID != "":
		fmt.Fprintf(&sb, "| 父 | `%s` (未找到) |\n", p.FatherID)
	}
	if n := len(p.Children); n > 0 {
		names := make([]string, 0, n)
		for _, c := range p.Children {
			if c != nil {
				names = append(names, escapeMarkdown(c.Name))
			}
		}
		fmt.Fprintf(&sb, "| 子 | %s |\n", strings.Join(names, "、"))
	}

	if info := strings.TrimSpace(p.Info); info != "" {
		sb.WriteString("\n")
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// GenerateMarkdown renders the whole family: a Mermaid diagram of the tree
// followed by every generation in document order.
func GenerateMarkdown(data model.FamilyData, title string, generated time.Time) string {
	var sb strings.Builder
	if title == "" {
		title = model.TreeTitle
	}
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	fmt.Fprintf(&sb, "*Generated: %s*\n\n", generated.Format(time.RFC1123))
	fmt.Fprintf(&sb, "%d people in %d generations.\n\n", data.PersonCount(), len(data.Generations))

	roots := familytree.Roots(familytree.Build(data))
	if n := familytree.NodeCount(roots); n > 0 && n <= MaxMermaidNodes {
		sb.WriteString("```mermaid\ngraph TD\n")
		writeMermaid(&sb, roots)
		sb.WriteString("```\n\n")
	}

	for _, g := range data.Generations {
		fmt.Fprintf(&sb, "## %s\n\n", escapeMarkdown(g.Title))
		if len(g.People) == 0 {
			sb.WriteString("*(empty)*\n\n")
			continue
		}
		for _, p := range g.People {
			if p == nil {
				continue
			}
			fmt.Fprintf(&sb, "- **%s**", escapeMarkdown(p.Name))
			if p.BirthYear != nil || p.DeathYear != nil {
				fmt.Fprintf(&sb, " (%s)", p.Lifespan())
			}
			if info := strings.TrimSpace(p.Info); info != "" {
				fmt.Fprintf(&sb, ": %s", strings.Join(strings.Fields(info), " "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeMermaid(sb *strings.Builder, roots []*model.Person) {
	declared := map[*model.Person]string{}
	taken := map[string]int{}
	nodeID := func(p *model.Person) string {
		if id, ok := declared[p]; ok {
			return id
		}
		base := "p_" + sanitizeMermaidID(p.ID)
		taken[base]++
		id := base
		if n := taken[base]; n > 1 {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		declared[p] = id
		fmt.Fprintf(sb, "    %s[\"%s\"]\n", id, sanitizeMermaidText(p.Name))
		return id
	}

	expanded := map[*model.Person]bool{}
	familytree.Walk(roots, func(p *model.Person, _ int) bool {
		if expanded[p] {
			return false
		}
		expanded[p] = true
		id := nodeID(p)
		for _, c := range p.Children {
			if c != nil {
				fmt.Fprintf(sb, "    %s --> %s\n", id, nodeID(c))
			}
		}
		return true
	})
}

// SaveMarkdown writes GenerateMarkdown output to path.
func SaveMarkdown(path string, data model.FamilyData, title string) error {
	md := GenerateMarkdown(data, title, time.Now())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}
