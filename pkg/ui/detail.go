package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/familytree/pkg/export"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// DetailModel shows one person as rendered markdown in a scrollable pane.
type DetailModel struct {
	viewport   viewport.Model
	mdRenderer *glamour.TermRenderer
	wrap       int
	person     *model.Person
	markdown   string
}

// NewDetailModel creates a detail pane of the given size.
func NewDetailModel(width, height int) DetailModel {
	d := DetailModel{viewport: viewport.New(width, height)}
	d.SetSize(width, height)
	return d
}

// SetSize resizes the pane, rebuilding the markdown renderer when the wrap
// width changes.
func (d *DetailModel) SetSize(width, height int) {
	d.viewport.Width = width
	d.viewport.Height = height
	wrap := max(20, width-4)
	if wrap == d.wrap && d.mdRenderer != nil {
		return
	}
	d.wrap = wrap
	d.mdRenderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	d.render()
}

// SetPerson shows p. father may be nil; p.Children is listed when populated.
func (d *DetailModel) SetPerson(p *model.Person, generation string, father *model.Person) {
	d.person = p
	d.markdown = export.PersonMarkdown(p, generation, father)
	d.viewport.GotoTop()
	d.render()
}

// Person returns the person shown, or nil.
func (d *DetailModel) Person() *model.Person {
	return d.person
}

// Markdown returns the unrendered source of the pane.
func (d *DetailModel) Markdown() string {
	return d.markdown
}

func (d *DetailModel) render() {
	if d.person == nil {
		d.viewport.SetContent("未选择家族成员")
		return
	}
	if d.mdRenderer == nil {
		d.viewport.SetContent(d.markdown)
		return
	}
	out, err := d.mdRenderer.Render(d.markdown)
	if err != nil {
		d.viewport.SetContent(fmt.Sprintf("Error rendering markdown: %v\n\n%s", err, d.markdown))
		return
	}
	d.viewport.SetContent(out)
}

// ScrollDown scrolls by n lines.
func (d *DetailModel) ScrollDown(n int) { d.viewport.LineDown(n) }

// ScrollUp scrolls by n lines.
func (d *DetailModel) ScrollUp(n int) { d.viewport.LineUp(n) }

// View renders the pane.
func (d DetailModel) View() string {
	return d.viewport.View()
}
