// Package tui implements the terminal user interface using Bubbletea.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// Color palette
var (
	ColorCyan    = lipgloss.Color("86")
	ColorGreen   = lipgloss.Color("78")
	ColorYellow  = lipgloss.Color("221")
	ColorRed     = lipgloss.Color("196")
	ColorMagenta = lipgloss.Color("213")
	ColorBlue    = lipgloss.Color("111")
	ColorOrange  = lipgloss.Color("208")
	ColorGray    = lipgloss.Color("245")
	ColorDimGray = lipgloss.Color("239")
)

// Source colors
var SourceColors = map[tasksource.SourceType]lipgloss.Color{
	tasksource.SourceTypeObsidian: ColorMagenta,
	tasksource.SourceTypeGitHub:   ColorBlue,
	tasksource.SourceTypeLinear:   ColorCyan,
	tasksource.SourceTypeBeads:    ColorYellow,
	tasksource.SourceTypeLocal:    ColorGreen,
}

// Due styles
var (
	DueOverdueStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	DueTodayStyle   = lipgloss.NewStyle().Foreground(ColorYellow)
	DueFutureStyle  = lipgloss.NewStyle().Foreground(ColorGray)
)

// Common styles
var (
	// Title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	// Subtitle/dim text
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// Selected item style
	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	// Dim text style
	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	// Bold text
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// Completed task title
	CompletedStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Strikethrough(true)

	// In-progress task title
	InProgressStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	// Help key style
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	// Error style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	// Status message style
	StatusMsgStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	// Warning style
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)
)

// State indicators
const (
	IndicatorOpen       = "○"
	IndicatorInProgress = "◐"
	IndicatorCompleted  = "✓"
	IndicatorUnknown    = "?"
	IndicatorSelected   = "❯"
)

// Priority indicators, highest first.
var priorityIndicators = map[types.Priority]string{
	types.PriorityHighest: "▲▲",
	types.PriorityHigh:    "▲ ",
	types.PriorityMedium:  "△ ",
	types.PriorityLow:     "▽ ",
	types.PriorityLowest:  "▼ ",
}

// StateIndicator renders the checkbox column of a task row.
func StateIndicator(s types.State) string {
	switch s.Category() {
	case types.FilterCompleted:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render(IndicatorCompleted)
	case types.FilterInProgress:
		return lipgloss.NewStyle().Foreground(ColorYellow).Render(IndicatorInProgress)
	case types.FilterUncompleted:
		return DimStyle.Render(IndicatorOpen)
	default:
		return WarningStyle.Render(IndicatorUnknown)
	}
}

// PriorityIndicator renders the priority column; normal priority is blank.
func PriorityIndicator(p types.Priority) string {
	ind, ok := priorityIndicators[p]
	if !ok {
		return "  "
	}
	switch {
	case p >= types.PriorityHigh:
		return lipgloss.NewStyle().Foreground(ColorRed).Render(ind)
	case p == types.PriorityMedium:
		return lipgloss.NewStyle().Foreground(ColorOrange).Render(ind)
	default:
		return DimStyle.Render(ind)
	}
}

// GetSourceStyle returns the style for a source type.
func GetSourceStyle(t tasksource.SourceType) lipgloss.Style {
	color, ok := SourceColors[t]
	if !ok {
		color = ColorGray
	}
	return lipgloss.NewStyle().Foreground(color)
}
