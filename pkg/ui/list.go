package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
)

// listRow is either a generation header (person == nil) or a person.
type listRow struct {
	header     string
	count      int
	person     *model.Person
	generation string
	kind       search.MatchKind
	text       string
}

// ListModel is the generation-grouped list view. Without a query it shows
// every generation in document order; with one it shows ranked matches.
type ListModel struct {
	rows   []listRow
	cursor int // index into rows, always on a person row when one exists
	offset int
	width  int
	height int
	theme  Theme

	term         string
	searchInInfo bool

	// Set by SetMatches
	active bool
	total  int
	shown  int
}

// NewListModel creates an empty list.
func NewListModel(theme Theme) ListModel {
	return ListModel{theme: theme}
}

// SetSize sets the available width and height.
func (l *ListModel) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.ensureCursorVisible()
}

// SetHighlight sets the term marked in names, and in info when searchInInfo.
func (l *ListModel) SetHighlight(term string, searchInInfo bool) {
	l.term = term
	l.searchInInfo = searchInInfo
}

// SetData shows every generation of data.
func (l *ListModel) SetData(data model.FamilyData) {
	selected := l.SelectedPerson()
	l.active, l.total, l.shown = false, 0, 0
	l.rows = l.rows[:0]
	for _, g := range data.Generations {
		l.rows = append(l.rows, listRow{header: g.Title, count: len(g.People)})
		for _, p := range g.People {
			if p != nil {
				l.rows = append(l.rows, listRow{person: p, generation: g.Title})
			}
		}
	}
	l.reselect(selected)
}

// SetMatches shows up to limit ranked matches, grouped under their generation
// as they appear. A limit of 0 shows all.
func (l *ListModel) SetMatches(matches []search.Match, limit int) {
	selected := l.SelectedPerson()
	l.active = true
	l.total = len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	l.shown = len(matches)

	l.rows = l.rows[:0]
	for _, m := range matches {
		l.rows = append(l.rows, listRow{person: m.Person, generation: m.Generation, kind: m.Kind, text: m.Text})
	}
	l.reselect(selected)
}

// Counts reports whether a query is shown, and how many of its matches are.
func (l *ListModel) Counts() (active bool, shown, total int) {
	return l.active, l.shown, l.total
}

func (l *ListModel) reselect(p *model.Person) {
	l.cursor = -1
	if p != nil {
		for i, r := range l.rows {
			if r.person == p || (p.ID != "" && r.person != nil && r.person.ID == p.ID) {
				l.cursor = i
				break
			}
		}
	}
	if l.cursor < 0 {
		l.cursor = l.nextPerson(0, 1)
	}
	l.offset = 0
	l.ensureCursorVisible()
}

// nextPerson returns the first person row at or after from moving by step,
// or -1.
func (l *ListModel) nextPerson(from, step int) int {
	for i := from; i >= 0 && i < len(l.rows); i += step {
		if l.rows[i].person != nil {
			return i
		}
	}
	return -1
}

// SelectedPerson returns the person under the cursor, or nil.
func (l *ListModel) SelectedPerson() *model.Person {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return nil
	}
	return l.rows[l.cursor].person
}

// SelectedGeneration returns the generation title of the selected row.
func (l *ListModel) SelectedGeneration() string {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return ""
	}
	return l.rows[l.cursor].generation
}

// PersonCount returns the number of person rows.
func (l *ListModel) PersonCount() int {
	n := 0
	for _, r := range l.rows {
		if r.person != nil {
			n++
		}
	}
	return n
}

// MoveDown moves to the next person.
func (l *ListModel) MoveDown() {
	if i := l.nextPerson(l.cursor+1, 1); i >= 0 {
		l.cursor = i
		l.ensureCursorVisible()
	}
}

// MoveUp moves to the previous person.
func (l *ListModel) MoveUp() {
	if l.cursor <= 0 {
		return
	}
	if i := l.nextPerson(l.cursor-1, -1); i >= 0 {
		l.cursor = i
	}
	// Keep the generation header in view above the first person.
	if l.cursor > 0 && l.rows[l.cursor-1].person == nil && l.offset == l.cursor {
		l.offset--
	}
	l.ensureCursorVisible()
}

// JumpToTop moves to the first person.
func (l *ListModel) JumpToTop() {
	l.cursor = l.nextPerson(0, 1)
	l.offset = 0
	l.ensureCursorVisible()
}

// JumpToBottom moves to the last person.
func (l *ListModel) JumpToBottom() {
	l.cursor = l.nextPerson(len(l.rows)-1, -1)
	l.ensureCursorVisible()
}

// PageDown moves down by half a viewport.
func (l *ListModel) PageDown() {
	for range max(1, l.height/2) {
		l.MoveDown()
	}
}

// PageUp moves up by half a viewport.
func (l *ListModel) PageUp() {
	for range max(1, l.height/2) {
		l.MoveUp()
	}
}

func (l *ListModel) visibleCount() int {
	if l.height <= 0 {
		return len(l.rows)
	}
	return max(1, l.height-1)
}

func (l *ListModel) ensureCursorVisible() {
	if l.cursor < 0 {
		return
	}
	n := l.visibleCount()
	if l.cursor < l.offset {
		l.offset = l.cursor
	} else if l.cursor >= l.offset+n {
		l.offset = l.cursor - n + 1
	}
	l.offset = max(0, min(l.offset, max(0, len(l.rows)-n)))
}

// View renders the visible window of rows.
func (l *ListModel) View() string {
	if l.active && l.total == 0 {
		return l.theme.MutedText.Render("未找到匹配的家族成员")
	}
	if len(l.rows) == 0 {
		return l.theme.MutedText.Render("暂无家族数据")
	}

	var sb strings.Builder
	if l.active {
		sb.WriteString(l.theme.PrimaryBold.Render(model.SearchResultsTitle))
		note := fmt.Sprintf("  共 %d 条结果", l.total)
		if l.shown < l.total {
			note = fmt.Sprintf("  显示前 %d 条，共 %d 条结果", l.shown, l.total)
		}
		sb.WriteString(l.theme.MutedText.Render(note))
		sb.WriteString("\n")
	}

	n := l.visibleCount()
	if l.active {
		n = max(1, n-1)
	}
	end := min(len(l.rows), l.offset+n)
	for i := l.offset; i < end; i++ {
		sb.WriteString(l.renderRow(l.rows[i], i == l.cursor))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (l *ListModel) renderRow(r listRow, selected bool) string {
	width := l.width
	if width <= 0 {
		width = 80
	}
	if r.person == nil {
		return l.theme.PrimaryBold.Render(r.header) +
			l.theme.MutedText.Render(fmt.Sprintf("  %d 人", r.count))
	}

	p := r.person
	var sb strings.Builder
	used := SpaceSM

	nameWidth := max(8, min(24, width/4))
	name := truncate(oneLine(p.Name), nameWidth)
	sb.WriteString(l.theme.NameText.Render(mark(p.Name, l.term, nameWidth, l.theme.MarkText.Render)))
	sb.WriteString(strings.Repeat(" ", max(1, nameWidth-runewidth.StringWidth(name)+1)))
	used += nameWidth + 1

	span := padRight(lifespanText(p), 12)
	sb.WriteString(l.theme.MutedText.Render(span))
	used += runewidth.StringWidth(span)

	if l.active {
		sb.WriteString(" ")
		sb.WriteString(RenderGenerationBadge(r.generation))
		sb.WriteString(" ")
		sb.WriteString(RenderMatchKindBadge(r.kind))
		used += runewidth.StringWidth(r.generation) + 4 + runewidth.StringWidth(kindLabels[r.kind]) + 3
	}

	info := p.Info
	if r.kind == search.KindInfo && r.text != "" {
		info = r.text
	}
	if room := width - used - SpaceMD; info != "" && room > 6 {
		term := ""
		if l.searchInInfo {
			term = l.term
		}
		sb.WriteString("  ")
		sb.WriteString(l.theme.InfoText.Render(mark(info, term, room, l.theme.MarkText.Render)))
	}

	line := sb.String()
	if selected {
		return l.theme.Selected.Render(line)
	}
	return "  " + line
}
