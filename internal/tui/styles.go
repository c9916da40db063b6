// Package tui is the terminal dock: a status line, template selector, run
// counter and lock list over one session.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Dock palette.
var (
	DockBackground = lipgloss.Color("#0f1115")
	DockPanel      = lipgloss.Color("#141821")
	DockText       = lipgloss.Color("#e6e6e6")
	DockAccent     = lipgloss.Color("#00d1ff")
	DockMuted      = lipgloss.Color("#6b7280")
	DockBorder     = lipgloss.Color("#2a3140")

	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
)

// Theme holds the dock color scheme.
type Theme struct {
	Background lipgloss.Color
	Panel      lipgloss.Color
	Foreground lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Plain      bool
}

// DefaultTheme returns the dock theme.
func DefaultTheme() Theme {
	return Theme{
		Background: DockBackground,
		Panel:      DockPanel,
		Foreground: DockText,
		Accent:     DockAccent,
		Muted:      DockMuted,
		Border:     DockBorder,
	}
}

// DetectTheme returns the dock theme, without backgrounds when NO_COLOR is set.
func DetectTheme() Theme {
	t := DefaultTheme()
	if os.Getenv("NO_COLOR") != "" {
		t.Plain = true
	}
	return t
}

// Styles holds the styled components of the dock.
type Styles struct {
	Theme Theme

	App       lipgloss.Style
	Header    lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Panel     lipgloss.Style
	Footer    lipgloss.Style
	Muted     lipgloss.Style
	Counter   lipgloss.Style
	Help      lipgloss.Style

	Ready   lipgloss.Style
	Pending lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// NewStyles creates the styles for theme.
func NewStyles(theme Theme) Styles {
	s := Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		ActiveTab: lipgloss.NewStyle().
			Foreground(theme.Background).
			Background(theme.Accent).
			Bold(true).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Counter: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Ready: lipgloss.NewStyle().
			Foreground(Success),

		Pending: lipgloss.NewStyle().
			Foreground(Warning),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),
	}
	if !theme.Plain {
		s.App = s.App.Background(theme.Background)
		s.Panel = s.Panel.Background(theme.Panel)
	}
	return s
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
