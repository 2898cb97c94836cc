package tui

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

// ColorPrimary is the main accent color used for titles and highlights.
var ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}

// ColorAccent is a green-teal accent for running and active states.
var ColorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}

// ColorSuccess represents successful operations (green).
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorWarning represents cautionary states (amber).
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorError represents failures (red).
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorInfo represents informational messages (blue).
var ColorInfo = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// ColorMuted is a subdued foreground color for secondary text.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// ColorSubtle provides low-contrast borders and empty progress cells.
var ColorSubtle = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}

// ColorBorder is the standard panel border color.
var ColorBorder = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds the lipgloss styles of the forge terminal UI. Width and Height
// are never set here; views apply them at render time.
type Theme struct {
	// Step header
	Title       lipgloss.Style
	StepCounter lipgloss.Style
	Text        lipgloss.Style

	// Console
	ConsoleContainer lipgloss.Style
	ConsoleLine      lipgloss.Style
	StatusLine       lipgloss.Style

	// Progress bars
	ProgressFilled  lipgloss.Style
	ProgressEmpty   lipgloss.Style
	ProgressPercent lipgloss.Style

	// Status indicators
	StatusRunning   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style

	// Notices
	NoticeInfo  lipgloss.Style
	NoticeWarn  lipgloss.Style
	NoticeError lipgloss.Style

	// General
	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
	ErrorText lipgloss.Style
}

// DefaultTheme returns the default theme with adaptive colors.
func DefaultTheme() Theme {
	return Theme{
		// --- Step header ---
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		StepCounter: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Text: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}),

		// --- Console ---
		ConsoleContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1),

		ConsoleLine: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}),

		StatusLine: lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorMuted),

		// --- Progress bars ---
		ProgressFilled: lipgloss.NewStyle().
			Foreground(ColorAccent),

		ProgressEmpty: lipgloss.NewStyle().
			Foreground(ColorSubtle),

		ProgressPercent: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		// --- Status indicators ---
		StatusRunning: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		StatusCompleted: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		StatusFailed: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		// --- Notices ---
		NoticeInfo: lipgloss.NewStyle().
			Foreground(ColorInfo),

		NoticeWarn: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWarning),

		NoticeError: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		// --- General ---
		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		HelpDesc: lipgloss.NewStyle().
			Foreground(ColorMuted),

		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),
	}
}

// FormTheme returns the huh theme used for step forms.
func (t Theme) FormTheme() *huh.Theme {
	return huh.ThemeCharm()
}

// NoticeStyle returns the style for a notification of the given level.
func (t Theme) NoticeStyle(level log.Level) lipgloss.Style {
	switch {
	case level >= log.ErrorLevel:
		return t.NoticeError
	case level >= log.WarnLevel:
		return t.NoticeWarn
	default:
		return t.NoticeInfo
	}
}

// StatusIndicator returns a styled symbol for an action's state:
//   - running     → "●"
//   - failed      → "!"
//   - finished OK → "✓"
func (t Theme) StatusIndicator(running bool, failed bool) string {
	switch {
	case running:
		return t.StatusRunning.Render("●")
	case failed:
		return t.StatusFailed.Render("!")
	default:
		return t.StatusCompleted.Render("✓")
	}
}

// ProgressBar renders a text progress bar of the given total width. filled
// is clamped to [0.0, 1.0]; width <= 0 returns an empty string. Filled cells
// use U+2588 (FULL BLOCK) and empty cells U+2591 (LIGHT SHADE).
func (t Theme) ProgressBar(filled float64, width int) string {
	if width <= 0 {
		return ""
	}

	if filled < 0.0 {
		filled = 0.0
	}
	if filled > 1.0 {
		filled = 1.0
	}

	filledCount := int(filled * float64(width))
	emptyCount := width - filledCount

	var sb strings.Builder
	if filledCount > 0 {
		sb.WriteString(t.ProgressFilled.Render(strings.Repeat("█", filledCount)))
	}
	if emptyCount > 0 {
		sb.WriteString(t.ProgressEmpty.Render(strings.Repeat("░", emptyCount)))
	}
	return sb.String()
}
