package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/internal/ui"
	"github.com/playengine/playengine/util"
)

const defaultSeekStep = 5

type bubble struct {
	ctl     Controller
	options *Options

	status  engine.Status
	updates <-chan engine.Status
	cancel  func()
	// started is set once playback began, for ExitOnEnd.
	started bool

	keymap    *keymap
	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  ui.Model

	width, height int
}

func newBubble(ctl Controller, options *Options) *bubble {
	if options == nil {
		options = &Options{}
	}
	if options.SeekStep <= 0 {
		options.SeekStep = defaultSeekStep
	}

	b := &bubble{
		ctl:     ctl,
		options: options,
		status:  ctl.Status(),
		keymap:  newKeymap(),
	}
	b.updates, b.cancel = ctl.Subscribe()

	b.helpC = help.New()

	b.spinnerC = spinner.New()
	b.spinnerC.Spinner = spinner.Dot
	b.spinnerC.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	b.progressC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	b.width, b.height = 80, 24
	if w, h, err := util.TerminalSize(); err == nil {
		b.resize(w, h)
	}

	return b
}

func (b *bubble) resize(width, height int) {
	b.width, b.height = width, height
	b.helpC.Width = width
	b.progressC.Width = max(10, width-paddingStyle.GetHorizontalPadding()-24)
}
