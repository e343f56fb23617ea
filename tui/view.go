package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/style"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

var streamIcons = map[stream.Type]icon.Icon{
	stream.Video:    icon.Video,
	stream.Audio:    icon.Audio,
	stream.Subtitle: icon.Subtitle,
}

func (b *bubble) View() string {
	s := b.status

	title := s.Name()
	if title == "" {
		title = "Nothing loaded"
	}

	lines := []string{
		style.Title(title),
		"",
		b.viewState(),
		b.viewProgress(),
		"",
		b.viewVolume(),
	}

	for _, t := range []stream.Type{stream.Video, stream.Audio, stream.Subtitle} {
		lines = append(lines, viewTrack(t, s.Tracks[t]))
	}

	lines = append(lines, "", b.viewTelemetry())

	if s.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(color.Failed).Bold(true)
		lines = append(lines, "", wrap.String(errorStyle.Render(s.Err.Error()), b.width))
	}

	return b.notifier.View(b.renderLines(lines))
}

func (b *bubble) renderLines(lines []string) string {
	width := max(1, b.width-paddingStyle.GetHorizontalPadding())
	for i, line := range lines {
		if !strings.Contains(line, "\n") {
			lines[i] = truncate.StringWithTail(line, uint(width), "…")
		}
	}

	body := strings.Join(lines, "\n")
	if gap := b.height - len(lines) - 4; gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	body += "\n" + b.helpC.View(b.keymap)

	return paddingStyle.Render(body)
}

func (b *bubble) viewState() string {
	s := b.status

	var (
		stateIcon  icon.Icon
		stateColor = color.Stopped
	)
	switch s.State {
	case engine.Playing:
		stateIcon, stateColor = icon.Play, color.Playing
	case engine.Paused:
		stateIcon, stateColor = icon.Pause, color.Paused
	case engine.Error:
		stateIcon, stateColor = icon.Fail, color.Failed
	case engine.Loading:
		stateIcon, stateColor = icon.Progress, color.Loading
	default:
		stateIcon = icon.Stop
	}

	line := icon.Get(stateIcon) + " " + style.New().Bold(true).Foreground(stateColor).Render(s.State.String())
	if s.Waiting.Stalled() {
		line += "  " + b.spinnerC.View() + " " + style.Fg(color.Stalled)(s.Waiting.String())
	}
	return line
}

func (b *bubble) viewProgress() string {
	s := b.status
	times := fmt.Sprintf(" %s / %s", formatTime(s.Position), formatTime(s.Duration))
	return b.progressC.View() + style.Faint(times)
}

func (b *bubble) viewVolume() string {
	s := b.status
	line := fmt.Sprintf("%s volume %d%%", icon.Get(icon.Audio), s.Volume)
	if s.Amplifier != 100 {
		line += fmt.Sprintf(" × %d%%", s.Amplifier)
	}
	if s.Muted {
		line += " " + style.Fg(color.Red)("muted")
	}
	return line
}

func viewTrack(t stream.Type, list stream.TrackList) string {
	label := style.Faint("off")
	if track, ok := list.Selected().Get(); ok {
		label = track.Label()
		if track.External {
			label += style.Faint(" external")
		}
	}
	return fmt.Sprintf("%s %-8s %s %s", icon.Get(streamIcons[t]), t.String(), label, style.Faint(fmt.Sprintf("(%d)", list.Len())))
}

func (b *bubble) viewTelemetry() string {
	s := b.status

	fps := "-"
	if v, ok := s.Frames.FPS.Get(); ok {
		fps = fmt.Sprintf("%.2f", v)
	}

	parts := []string{
		"fps " + fps,
		fmt.Sprintf("drawn %d", s.Frames.Drawn),
		fmt.Sprintf("dropped %d", s.Frames.Dropped),
		fmt.Sprintf("delayed %d", s.Frames.Delayed),
		fmt.Sprintf("cache %.1fs", s.Cache.Buffered),
		fmt.Sprintf("a/v %+.3f", s.AVSync),
		"hwdec " + s.Hwdec.String(),
	}
	return style.Faint(strings.Join(parts, " · "))
}

func formatTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--:--"
	}

	total := int(seconds)
	h, m, sec := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
