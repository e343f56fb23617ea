package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/internal/ui"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeController struct {
	mu        sync.Mutex
	status    engine.Status
	updates   chan engine.Status
	cancelled bool
	calls     []string
	volume    int
	muted     bool
	seeks     []float64
	cycled    []stream.Type
	failWith  error
}

func newFakeController() *fakeController {
	return &fakeController{updates: make(chan engine.Status, 8), volume: -1}
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failWith
}

func (f *fakeController) Status() engine.Status { return f.status }

func (f *fakeController) Subscribe() (<-chan engine.Status, func()) {
	return f.updates, func() { f.cancelled = true }
}

func (f *fakeController) TogglePause() error { return f.record("toggle") }

func (f *fakeController) SeekRelative(offset float64) error {
	f.seeks = append(f.seeks, offset)
	return f.record("seek")
}

func (f *fakeController) SetVolume(v int) { f.volume = v }

func (f *fakeController) SetMuted(muted bool) { f.muted = muted }

func (f *fakeController) CycleTrack(t stream.Type) error {
	f.cycled = append(f.cycled, t)
	return f.record("cycle")
}

func (f *fakeController) TakeSnapshot(context.Context, engine.SnapshotKind) (string, error) {
	return "/tmp/snap.png", f.record("snapshot")
}

func (f *fakeController) Stop() error { return f.record("stop") }

func press(b *bubble, keys string) tea.Msg {
	var msg tea.KeyMsg
	switch keys {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}

	_, cmd := b.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestKeys(t *testing.T) {
	Convey("Given a monitor over a playing engine", t, func() {
		ctl := newFakeController()
		ctl.status = engine.Status{State: engine.Playing, Volume: 50}
		b := newBubble(ctl, &Options{SeekStep: 10})

		Convey("Space toggles pause", func() {
			press(b, " ")
			So(ctl.calls, ShouldResemble, []string{"toggle"})
		})

		Convey("Arrows seek by short and long steps", func() {
			press(b, "left")
			press(b, "up")
			So(ctl.seeks, ShouldResemble, []float64{-10, 60})
		})

		Convey("Volume keys step from the reported volume", func() {
			press(b, "+")
			So(ctl.volume, ShouldEqual, 55)
			press(b, "-")
			So(ctl.volume, ShouldEqual, 45)
		})

		Convey("Mute flips the reported state", func() {
			press(b, "m")
			So(ctl.muted, ShouldBeTrue)
		})

		Convey("Track keys cycle their stream type", func() {
			press(b, "a")
			press(b, "s")
			So(ctl.cycled, ShouldResemble, []stream.Type{stream.Audio, stream.Subtitle})
		})

		Convey("A snapshot reports where it was saved", func() {
			msg := press(b, "S")
			So(msg, ShouldEqual, ui.NoticeMsg("Saved /tmp/snap.png"))
		})

		Convey("Failures become notices", func() {
			ctl.failWith = errors.New("media not loaded")
			msg := press(b, "x")
			So(msg, ShouldResemble, errMsg{ctl.failWith})

			b.Update(msg)
			So(b.View(), ShouldNotBeEmpty)
		})

		Convey("Quitting cancels the subscription", func() {
			press(b, "q")
			So(ctl.cancelled, ShouldBeTrue)
		})
	})
}

func TestStatusUpdates(t *testing.T) {
	Convey("Given a monitor that exits on end", t, func() {
		ctl := newFakeController()
		b := newBubble(ctl, &Options{ExitOnEnd: true})

		Convey("Stopping before playback started keeps it running", func() {
			b.Update(statusMsg(engine.Status{State: engine.Loading}))
			b.Update(statusMsg(engine.Status{State: engine.Stopped}))
			So(ctl.cancelled, ShouldBeFalse)
		})

		Convey("Stopping after playback quits", func() {
			b.Update(statusMsg(engine.Status{State: engine.Playing}))
			So(ctl.cancelled, ShouldBeFalse)
			b.Update(statusMsg(engine.Status{State: engine.Stopped}))
			So(ctl.cancelled, ShouldBeTrue)
		})

		Convey("A closed subscription quits", func() {
			close(ctl.updates)
			msg := b.waitForStatus()()
			So(msg, ShouldResemble, closedMsg{})
			b.Update(msg)
			So(ctl.cancelled, ShouldBeTrue)
		})
	})

	Convey("The view reflects the status", t, func() {
		ctl := newFakeController()
		b := newBubble(ctl, nil)

		var subs stream.TrackList
		subs.Replace([]stream.Track{{ID: 1, Lang: "en", Title: "Full", External: true, File: "/m/movie.en.srt"}})
		_ = subs.Select(subs.Tracks[0].Key())

		b.Update(statusMsg(engine.Status{
			State:    engine.Paused,
			Waiting:  engine.WaitBuffering,
			Locator:  mrl.MustParse("/m/movie.mkv"),
			Position: 65,
			Duration: 3600,
			Volume:   80,
			Muted:    true,
			Tracks:   [stream.Count]stream.TrackList{stream.Subtitle: subs},
			Err:      errors.New("demuxer failed"),
		}))
		b.status.Frames.FPS = mo.Some(23.976)

		view := b.View()
		So(view, ShouldContainSubstring, "movie.mkv")
		So(view, ShouldContainSubstring, "paused")
		So(view, ShouldContainSubstring, "buffering")
		So(view, ShouldContainSubstring, "01:05")
		So(view, ShouldContainSubstring, "1:00:00")
		So(view, ShouldContainSubstring, "Full")
		So(view, ShouldContainSubstring, "muted")
		So(view, ShouldContainSubstring, "23.98")
		So(view, ShouldContainSubstring, "demuxer failed")
	})
}

func TestFormatTime(t *testing.T) {
	Convey("Times are shown as clock values", t, func() {
		So(formatTime(0), ShouldEqual, "--:--")
		So(formatTime(59.9), ShouldEqual, "00:59")
		So(formatTime(61), ShouldEqual, "01:01")
		So(formatTime(3725), ShouldEqual, "1:02:05")
	})
}
