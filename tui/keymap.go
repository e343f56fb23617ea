package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/style"
)

type keymap struct {
	quit, forceQuit,
	playPause,
	seekBack, seekForward, seekBackLong, seekForwardLong,
	volumeUp, volumeDown, mute,
	cycleVideo, cycleAudio, cycleSubtitle,
	snapshot, stop,
	showHelp key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		seekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back"),
		),
		seekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward"),
		),
		seekBackLong: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "back more"),
		),
		seekForwardLong: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "forward more"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "volume down"),
		),
		mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		cycleVideo: key.NewBinding(
			key.WithKeys("_"),
			key.WithHelp("_", "next video"),
		),
		cycleAudio: key.NewBinding(
			key.WithKeys("#", "a"),
			key.WithHelp("a", "next audio"),
		),
		cycleSubtitle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "next subtitle"),
		),
		snapshot: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "snapshot"),
		),
		stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.seekForward, k.cycleSubtitle, k.quit, k.showHelp}
}

func (k *keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.stop, k.quit},
		{k.seekBack, k.seekForward, k.seekBackLong, k.seekForwardLong},
		{k.volumeUp, k.volumeDown, k.mute},
		{k.cycleVideo, k.cycleAudio, k.cycleSubtitle, k.snapshot},
	}
}
