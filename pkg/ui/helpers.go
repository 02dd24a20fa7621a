package ui

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/familytree/pkg/highlight"
	"github.com/vanderheijden86/familytree/pkg/model"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth so CJK names count as two cells.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces on the right to the given cell width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncate truncates s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// oneLine collapses newlines so multi-line info fits a row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lifespanText renders birth and death years as "1920 - 1990", "1920" or
// " - 1990". It is empty when neither year is known.
func lifespanText(p *model.Person) string {
	switch {
	case p.BirthYear != nil && p.DeathYear != nil:
		return strconv.Itoa(*p.BirthYear) + " - " + strconv.Itoa(*p.DeathYear)
	case p.BirthYear != nil:
		return strconv.Itoa(*p.BirthYear)
	case p.DeathYear != nil:
		return " - " + strconv.Itoa(*p.DeathYear)
	}
	return ""
}

// mark truncates text to maxWidth and then highlights term in it. Truncating
// first keeps escape sequences out of the width calculation.
func mark(text, term string, maxWidth int, style func(...string) string) string {
	text = truncate(oneLine(text), maxWidth)
	if term == "" {
		return text
	}
	return highlight.Apply(text, strings.TrimSpace(term), func(s string) string { return style(s) })
}
