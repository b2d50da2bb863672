package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("39")  // Water blue
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("117") // Light blue
	colorSuccess   = lipgloss.Color("78")  // Green
	colorError     = lipgloss.Color("196") // Red
	colorWarn      = lipgloss.Color("214") // Orange
)

// TitleStyle for the view heading.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary).
	MarginBottom(1)

// SubtleStyle for secondary lines such as the file name.
var SubtleStyle = lipgloss.NewStyle().
	Foreground(colorSecondary)

// Panel wraps the main content of each view.
var Panel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// Step row styles, one per derived step state.
var (
	StepPendingStyle = lipgloss.NewStyle().Foreground(colorMuted)
	StepActiveStyle  = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	StepDoneStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	StepFailedStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

// StepDescription for the dimmed text after a step label.
var StepDescription = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ActiveMessage for the server message under the active step.
var ActiveMessage = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Italic(true).
	PaddingLeft(4)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// WarnStyle for the malformed-frame counter.
var WarnStyle = lipgloss.NewStyle().
	Foreground(colorWarn)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true)

// NoticeStyle for non-fatal results in the completed view.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorSuccess)

// DebugPanel frames the diagnostics overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(1, 2)

// DebugHeaderStyle for section headers in the diagnostics overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
