package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/internal/ui"
	"github.com/playengine/playengine/stream"
)

const volumeStep = 5

type statusMsg engine.Status

type closedMsg struct{}

type errMsg struct{ err error }

func (b *bubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForStatus())
}

func (b *bubble) waitForStatus() tea.Cmd {
	updates := b.updates
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return statusMsg(status)
	}
}

func (b *bubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil
	case tea.KeyMsg:
		return b.handleKey(msg)
	case statusMsg:
		return b.handleStatus(engine.Status(msg))
	case closedMsg:
		return b, b.quit()
	case errMsg:
		return b, ui.Notify(msg.err.Error())
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case progress.FrameMsg:
		model, cmd := b.progressC.Update(msg)
		b.progressC = model.(progress.Model)
		return b, cmd
	}

	return b, b.notifier.Update(msg)
}

func (b *bubble) handleStatus(status engine.Status) (tea.Model, tea.Cmd) {
	b.status = status
	if status.State.Loaded() {
		b.started = true
	}

	cmds := []tea.Cmd{b.waitForStatus(), b.progressC.SetPercent(status.Progress())}
	if b.options.ExitOnEnd && b.started && (status.State == engine.Stopped || status.State == engine.Error) {
		cmds = append(cmds, b.quit())
	}
	return b, tea.Batch(cmds...)
}

func (b *bubble) quit() tea.Cmd {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	return tea.Quit
}

// run performs a controller call off the update loop and reports failures as notices.
func run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (b *bubble) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := b.keymap
	step := b.options.SeekStep

	switch {
	case key.Matches(msg, k.quit, k.forceQuit):
		return b, b.quit()
	case key.Matches(msg, k.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
		return b, nil
	case key.Matches(msg, k.playPause):
		return b, run(b.ctl.TogglePause)
	case key.Matches(msg, k.stop):
		return b, run(b.ctl.Stop)
	case key.Matches(msg, k.seekBack):
		return b, b.seek(-step)
	case key.Matches(msg, k.seekForward):
		return b, b.seek(step)
	case key.Matches(msg, k.seekBackLong):
		return b, b.seek(-6 * step)
	case key.Matches(msg, k.seekForwardLong):
		return b, b.seek(6 * step)
	case key.Matches(msg, k.volumeUp):
		b.ctl.SetVolume(b.status.Volume + volumeStep)
		return b, nil
	case key.Matches(msg, k.volumeDown):
		b.ctl.SetVolume(b.status.Volume - volumeStep)
		return b, nil
	case key.Matches(msg, k.mute):
		b.ctl.SetMuted(!b.status.Muted)
		return b, nil
	case key.Matches(msg, k.cycleVideo):
		return b, b.cycle(stream.Video)
	case key.Matches(msg, k.cycleAudio):
		return b, b.cycle(stream.Audio)
	case key.Matches(msg, k.cycleSubtitle):
		return b, b.cycle(stream.Subtitle)
	case key.Matches(msg, k.snapshot):
		return b, b.snapshot()
	}

	return b, nil
}

func (b *bubble) seek(offset float64) tea.Cmd {
	return run(func() error { return b.ctl.SeekRelative(offset) })
}

func (b *bubble) cycle(t stream.Type) tea.Cmd {
	return run(func() error { return b.ctl.CycleTrack(t) })
}

func (b *bubble) snapshot() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		path, err := b.ctl.TakeSnapshot(ctx, engine.SnapshotScreen)
		if err != nil {
			return errMsg{err}
		}
		return ui.NoticeMsg(fmt.Sprintf("Saved %s", path))
	}
}
