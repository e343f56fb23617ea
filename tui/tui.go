// Package tui is the terminal status monitor shown while media plays.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/stream"
)

// Controller is the part of the engine the monitor drives.
type Controller interface {
	Status() engine.Status
	Subscribe() (<-chan engine.Status, func())
	TogglePause() error
	SeekRelative(offset float64) error
	SetVolume(v int)
	SetMuted(muted bool)
	CycleTrack(t stream.Type) error
	TakeSnapshot(ctx context.Context, kind engine.SnapshotKind) (string, error)
	Stop() error
}

// Options tune the monitor.
type Options struct {
	// ExitOnEnd quits once playback stops after having started.
	ExitOnEnd bool
	// SeekStep is the offset in seconds of a short seek; long seeks are six times as far.
	SeekStep float64
}

// Run shows the monitor until the user quits or, with ExitOnEnd, playback ends.
func Run(ctl Controller, options *Options) error {
	_, err := tea.NewProgram(newBubble(ctl, options), tea.WithAltScreen()).Run()
	return err
}
