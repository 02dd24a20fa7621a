package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/familytree/pkg/search"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing, colors, and visual language
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#8BE9FD"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Match kind badge backgrounds
	ColorKindName = lipgloss.AdaptiveColor{Light: "#D4EDDA", Dark: "#1A3D2A"}
	ColorKindID   = lipgloss.AdaptiveColor{Light: "#CCE5FF", Dark: "#1A2A44"}
	ColorKindYear = lipgloss.AdaptiveColor{Light: "#FFE8CC", Dark: "#3D2A1A"}
	ColorKindInfo = lipgloss.AdaptiveColor{Light: "#E8DDFF", Dark: "#2A1A44"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// kindLabels are the badge captions per match kind.
var kindLabels = map[search.MatchKind]string{
	search.KindName: "姓名",
	search.KindID:   "ID",
	search.KindYear: "年份",
	search.KindInfo: "信息",
}

// RenderMatchKindBadge returns a small badge naming why a person matched.
func RenderMatchKindBadge(kind search.MatchKind) string {
	bg := ColorKindName
	switch kind {
	case search.KindID:
		bg = ColorKindID
	case search.KindYear:
		bg = ColorKindYear
	case search.KindInfo:
		bg = ColorKindInfo
	}
	label, ok := kindLabels[kind]
	if !ok {
		label = string(kind)
	}
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(ColorText).
		Padding(0, SpaceXS).
		Render(label)
}

// RenderGenerationBadge returns a muted bracketed generation title.
func RenderGenerationBadge(title string) string {
	return lipgloss.NewStyle().Foreground(ColorSubtext).Render("[" + title + "]")
}
