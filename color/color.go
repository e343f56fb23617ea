// Package color names the terminal colors used by the CLI and the monitor.
package color

import "github.com/charmbracelet/lipgloss"

func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI colors, so output follows the user's terminal theme.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")

	HiRed    = New("9")
	HiBlue   = New("12")
	HiPurple = New("13")
)

var (
	Orange = New("#ffb703")
	Gray   = New("#808080")
)

// Playback state colors.
var (
	Playing = Green
	Paused  = Yellow
	Loading = Cyan
	Stopped = Gray
	Failed  = Red
	Stalled = Orange
)
