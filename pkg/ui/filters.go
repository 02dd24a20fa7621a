package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/familytree/pkg/search"
)

// FilterPanel edits the structured filters: the info toggle, the generation
// selection and the year range. Rows are navigated with up/down; the first
// row is the info toggle, then one row per generation, then the two years.
type FilterPanel struct {
	theme       Theme
	filters     search.Filters
	generations []string
	cursor      int
	start       textinput.Model
	end         textinput.Model
	err         string
}

// NewFilterPanel returns a panel holding search.DefaultFilters.
func NewFilterPanel(theme Theme) FilterPanel {
	newYear := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 6
		ti.Width = 6
		ti.Prompt = ""
		return ti
	}
	return FilterPanel{
		theme:   theme,
		filters: search.DefaultFilters(),
		start:   newYear("起始年"),
		end:     newYear("结束年"),
	}
}

// SetGenerations sets the selectable generation titles.
func (f *FilterPanel) SetGenerations(titles []string) {
	f.generations = titles
	f.cursor = min(f.cursor, f.rowCount()-1)
	f.syncFocus()
}

// SetSearchInInfo sets the info toggle without marking a change.
func (f *FilterPanel) SetSearchInInfo(on bool) {
	f.filters.SearchInInfo = on
}

// Filters returns the current filters.
func (f FilterPanel) Filters() search.Filters {
	return f.filters
}

// Err returns the last year parse error, if any.
func (f FilterPanel) Err() string {
	return f.err
}

// Reset restores the default filters and clears the year inputs.
func (f *FilterPanel) Reset(searchInInfo bool) {
	f.filters = search.DefaultFilters()
	f.filters.SearchInInfo = searchInInfo
	f.start.SetValue("")
	f.end.SetValue("")
	f.err = ""
}

// Focus puts the keyboard on the panel.
func (f *FilterPanel) Focus() {
	f.syncFocus()
}

// Blur releases the year inputs.
func (f *FilterPanel) Blur() {
	f.start.Blur()
	f.end.Blur()
}

func (f FilterPanel) rowCount() int {
	return len(f.generations) + 3
}

func (f FilterPanel) startRow() int { return len(f.generations) + 1 }
func (f FilterPanel) endRow() int   { return len(f.generations) + 2 }

func (f *FilterPanel) syncFocus() {
	f.start.Blur()
	f.end.Blur()
	switch f.cursor {
	case f.startRow():
		f.start.Focus()
	case f.endRow():
		f.end.Focus()
	}
}

// Update handles a key. changed reports whether the filters changed.
func (f FilterPanel) Update(msg tea.KeyMsg) (FilterPanel, bool, tea.Cmd) {
	onYear := f.cursor == f.startRow() || f.cursor == f.endRow()

	switch msg.String() {
	case "up", "shift+tab":
		f.cursor = (f.cursor - 1 + f.rowCount()) % f.rowCount()
		f.syncFocus()
		return f, false, nil
	case "down", "tab":
		f.cursor = (f.cursor + 1) % f.rowCount()
		f.syncFocus()
		return f, false, nil
	case "k":
		if !onYear {
			f.cursor = (f.cursor - 1 + f.rowCount()) % f.rowCount()
			f.syncFocus()
			return f, false, nil
		}
	case "j":
		if !onYear {
			f.cursor = (f.cursor + 1) % f.rowCount()
			f.syncFocus()
			return f, false, nil
		}
	case " ", "enter", "x":
		if onYear {
			return f, false, nil
		}
		if f.cursor == 0 {
			f.filters.SearchInInfo = !f.filters.SearchInInfo
		} else {
			f.filters = f.filters.ToggleGeneration(f.generations[f.cursor-1])
		}
		return f, true, nil
	}

	if !onYear {
		return f, false, nil
	}

	if msg.Type == tea.KeyRunes && strings.Trim(string(msg.Runes), "-0123456789") != "" {
		return f, false, nil
	}

	var cmd tea.Cmd
	before := f.start.Value() + "|" + f.end.Value()
	if f.cursor == f.startRow() {
		f.start, cmd = f.start.Update(msg)
	} else {
		f.end, cmd = f.end.Update(msg)
	}
	if f.start.Value()+"|"+f.end.Value() == before {
		return f, false, cmd
	}
	yr, err := search.ParseYearRange(f.start.Value(), f.end.Value())
	if err != nil {
		f.err = err.Error()
		return f, false, cmd
	}
	f.err = ""
	f.filters.YearRange = yr
	return f, true, cmd
}

// View renders the panel in width cells.
func (f FilterPanel) View(width int, focused bool) string {
	t := f.theme
	label := t.SecondaryText.Width(10)
	item := func(row int, s string) string {
		if focused && row == f.cursor {
			return t.PrimaryBold.Underline(true).Render(s)
		}
		return s
	}
	check := func(on bool) string {
		if on {
			return "[x]"
		}
		return "[ ]"
	}

	var lines []string
	lines = append(lines, label.Render("搜索选项")+item(0, check(f.filters.SearchInInfo)+" 包含个人信息搜索"))

	gens := make([]string, 0, len(f.generations))
	for i, g := range f.generations {
		gens = append(gens, item(i+1, check(f.filters.IsSelected(g))+" "+g))
	}
	if len(gens) == 0 {
		gens = append(gens, t.MutedText.Render("(无)"))
	}
	genText := lipgloss.NewStyle().Width(max(20, width-12)).Render(strings.Join(gens, "  "))
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label.Render("世代筛选"), genText))

	years := item(f.startRow(), "["+f.start.View()+"]") + " - " + item(f.endRow(), "["+f.end.View()+"]")
	if f.err != "" {
		years += "  " + t.ErrorText.Render(f.err)
	}
	lines = append(lines, label.Render("年份范围")+years)

	style := PanelStyle
	if focused {
		style = FocusedPanelStyle
	}
	return style.Width(max(20, width-2)).Render(strings.Join(lines, "\n"))
}
