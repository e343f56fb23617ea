package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/mrlstate"
	"github.com/playengine/playengine/stream"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func at(gen uint64) tag { return tag{gen} }

func testOptions() Options {
	registry := stream.Descriptors()
	var loaders [stream.Count]*autoload.Autoloader
	loaders[stream.Subtitle] = autoload.New(registry.Get(stream.Subtitle), autoload.Options{
		Enabled:    true,
		Mode:       autoload.ModePrefix,
		Select:     true,
		AllowNone:  true,
		Encoding:   "windows-1252",
		Autodetect: true,
	})
	return Options{
		Registry:        registry,
		Loaders:         loaders,
		RememberTracks:  true,
		Resume:          true,
		SpeedMinSamples: 5,
		SpeedWindow:     20,
		SnapshotDir:     "/snapshots",
		CommandTimeout:  time.Second,
	}
}

// waitFor reads statuses until cond holds or the timeout passes.
func waitFor(statuses <-chan Status, cond func(Status) bool) (Status, bool) {
	timeout := time.After(3 * time.Second)
	for {
		select {
		case s, ok := <-statuses:
			if !ok {
				return Status{}, false
			}
			if cond(s) {
				return s, true
			}
		case <-timeout:
			return Status{}, false
		}
	}
}

func TestNew(t *testing.T) {
	Convey("Given options without a registry", t, func() {
		e := New(newFakeBackend(), Options{})

		Convey("The default descriptors are used", func() {
			So(e.opts.Registry.Get(stream.Audio).Property, ShouldEqual, "aid")
			So(e.opts.Registry.Get(stream.Subtitle).Property, ShouldEqual, "sid")
		})

		Convey("A given registry is kept with its priorities", func() {
			registry := stream.Descriptors().WithPriority(stream.Subtitle, []string{"ja"})
			e := New(newFakeBackend(), Options{Registry: registry})
			So(e.opts.Registry.Get(stream.Subtitle).Priority, ShouldResemble, []string{"ja"})
		})
	})
}

func TestWaitingFlags(t *testing.T) {
	Convey("Given an engine receiving waiting changes", t, func() {
		e := New(newFakeBackend(), testOptions())
		flags := []Waiting{WaitLoading, WaitBuffering, WaitSearching, WaitSeeking, WaitSubtitleLoad, WaitResolving}

		Convey("The bitset follows every set and clear in order", func() {
			rng := rand.New(rand.NewSource(42))
			var expected Waiting
			for i := 0; i < 500; i++ {
				flag := flags[rng.Intn(len(flags))]
				set := rng.Intn(2) == 0
				if set {
					expected |= flag
				} else {
					expected &^= flag
				}
				e.handle(WaitingChange{tag: at(0), Flag: flag, Set: set})
				So(e.Status().Waiting, ShouldEqual, expected)
			}
		})

		Convey("Clearing an unset flag is a no-op", func() {
			e.handle(WaitingChange{tag: at(0), Flag: WaitBuffering, Set: true})
			e.handle(WaitingChange{tag: at(0), Flag: WaitSeeking, Set: false})
			So(e.Status().Waiting, ShouldEqual, WaitBuffering)
			So(e.Status().Waiting.Stalled(), ShouldBeTrue)
			So(e.Status().Waiting.String(), ShouldEqual, "buffering")
		})
	})
}

func TestStateMachine(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := New(newFakeBackend(), testOptions())

		Convey("Posting the current state changes nothing", func() {
			e.handle(StateChange{tag: at(0), To: Playing})
			e.handle(WaitingChange{tag: at(0), Flag: WaitBuffering, Set: true})
			before := e.Status()

			e.handle(StateChange{tag: at(0), To: Playing})
			after := e.Status()
			So(after.State, ShouldEqual, Playing)
			So(after.Waiting, ShouldEqual, before.Waiting)
		})

		Convey("Events of a superseded load are dropped", func() {
			e.generation.Store(2)
			e.handle(StateChange{tag: at(1), To: Playing})
			e.handle(WaitingChange{tag: at(1), Flag: WaitSeeking, Set: true})

			s := e.Status()
			So(s.State, ShouldEqual, Stopped)
			So(s.Waiting, ShouldEqual, Waiting(0))
			So(s.Dropped, ShouldEqual, 2)

			e.handle(StateChange{tag: at(2), To: Playing})
			So(e.Status().State, ShouldEqual, Playing)
		})

		Convey("Seek notifications move the position only", func() {
			e.handle(StateChange{tag: at(0), To: Paused})
			e.handle(NotifySeek{tag: at(0), Position: 42.5})
			So(e.Status().Position, ShouldEqual, 42.5)
			So(e.Status().State, ShouldEqual, Paused)
		})

		Convey("An error keeps its cause and invalidates the local copy", func() {
			e.shared.Snapshot()
			cause := errors.New("decoder exploded")
			e.handle(StateChange{tag: at(0), To: Error, Err: cause})

			s := e.Status()
			So(s.State, ShouldEqual, Error)
			So(s.Err, ShouldEqual, cause)
			So(e.shared.Freshness(), ShouldEqual, mrlstate.Stale)
		})
	})
}

func TestEndOfFile(t *testing.T) {
	Convey("Given a playing engine", t, func() {
		e := New(newFakeBackend(), testOptions())
		d := newDriver(context.Background(), e)
		d.loaded = true

		e.handle(StateChange{tag: at(0), To: Playing})
		for i := 0; i < 10; i++ {
			e.frames.Drawn()
		}
		e.frames.Dropped()
		e.shared.Snapshot()
		So(e.shared.Freshness(), ShouldEqual, mrlstate.Fresh)

		Convey("End of file posts EndPlayback then StateChange(Stopped)", func() {
			events := d.translate(backend.Notification{Kind: backend.Event, Name: backend.EventEndFile, Reason: backend.EndEOF})
			So(len(events), ShouldEqual, 2)
			So(events[0], ShouldHaveSameTypeAs, EndPlayback{})
			So(events[1], ShouldResemble, StateChange{tag: at(0), To: Stopped})

			for _, ev := range events {
				e.handle(ev)
			}

			Convey("Telemetry is reset and the local copy invalidated", func() {
				s := e.Status()
				So(s.State, ShouldEqual, Stopped)
				So(s.Frames.Drawn, ShouldEqual, 0)
				So(s.Frames.Dropped, ShouldEqual, 0)
				So(e.shared.Freshness(), ShouldEqual, mrlstate.Stale)
			})
		})

		Convey("A backend error ends in the error state", func() {
			events := d.translate(backend.Notification{
				Kind: backend.Event, Name: backend.EventEndFile, Reason: backend.EndError, Err: "unrecognized file format",
			})
			for _, ev := range events {
				e.handle(ev)
			}
			s := e.Status()
			So(s.State, ShouldEqual, Error)
			var perr *PlaybackError
			So(errors.As(s.Err, &perr), ShouldBeTrue)
			So(perr.Reason, ShouldEqual, "unrecognized file format")
		})

		Convey("Stops reported by the backend are ignored", func() {
			events := d.translate(backend.Notification{Kind: backend.Event, Name: backend.EventEndFile, Reason: backend.EndStop})
			So(events, ShouldBeEmpty)
		})

		Convey("Seeking does not reset telemetry", func() {
			for _, ev := range d.translate(backend.Notification{Kind: backend.Event, Name: backend.EventSeek}) {
				e.handle(ev)
			}
			So(e.Status().Frames.Drawn, ShouldEqual, 10)
			So(e.Status().Waiting.Has(WaitSeeking), ShouldBeTrue)
		})
	})
}

func TestFrameCounting(t *testing.T) {
	Convey("Estimated frame numbers become drawn frames", t, func() {
		e := New(newFakeBackend(), testOptions())
		d := newDriver(context.Background(), e)

		feed := func(n float64) {
			d.translate(backend.Notification{Kind: backend.Property, Name: backend.PropEstimatedVF, Value: n})
		}
		feed(100)
		feed(110)
		feed(125)
		So(e.frames.Counts().Drawn, ShouldEqual, 25)

		d.translate(backend.Notification{Kind: backend.Event, Name: backend.EventSeek})
		feed(5000)
		feed(5010)
		So(e.frames.Counts().Drawn, ShouldEqual, 35)
	})
}

func TestSync(t *testing.T) {
	Convey("Given two mutations before the driver looks", t, func() {
		fake := newFakeBackend()
		e := New(fake, testOptions())
		d := newDriver(context.Background(), e)

		e.Mutate(func(s *mrlstate.State) { s.SetVolume(50) })
		e.Mutate(func(s *mrlstate.State) { s.Muted = true })
		So(e.queue.Len(), ShouldEqual, 2)

		Convey("The driver applies both from a single clone", func() {
			So(d.apply(), ShouldBeNil)
			So(d.apply(), ShouldBeNil)
			So(e.shared.Clones(), ShouldEqual, 1)
			So(fake.Option("volume"), ShouldEqual, 50.0)
			So(fake.Option("mute"), ShouldEqual, true)
		})

		Convey("Selections left automatic are not pushed", func() {
			So(d.apply(), ShouldBeNil)
			So(fake.Option("sid"), ShouldBeNil)
		})
	})
}

func TestPlayback(t *testing.T) {
	Convey("Given a running engine and a directory with subtitles", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		for _, name := range []string{"movie.mkv", "movie.srt", "movie.en.ass"} {
			So(fs.WriteFile("/media/"+name, []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n"), 0o644), ShouldBeNil)
		}

		fake := newFakeBackend()
		fake.onCommand = playsOnLoad
		hist := newFakeHistory()

		opts := testOptions()
		opts.History = hist
		e := New(fake, opts)

		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = e.Run(ctx) }()
		statuses, unsubscribe := e.Subscribe()

		Reset(func() {
			unsubscribe()
			cancel()
			_ = e.Close()
		})

		loc := mrl.MustParse("/media/movie.mkv")
		So(e.Load(ctx, loc), ShouldBeNil)

		s, ok := waitFor(statuses, func(s Status) bool { return s.State == Playing && s.Tracks[stream.Subtitle].Active.IsPresent() })
		So(ok, ShouldBeTrue)

		Convey("Autoloaded subtitles are added and the exact match selected", func() {
			So(s.Tracks[stream.Subtitle].Active.MustGet(), ShouldEqual, "file:/media/movie.srt")
			So(s.Waiting.Has(WaitLoading), ShouldBeFalse)

			adds := fake.Commands(backend.CmdSubAdd)
			So(len(adds), ShouldEqual, 2)
			So(adds[0].args, ShouldResemble, []any{"/media/movie.srt", "select"})
			So(adds[1].args, ShouldResemble, []any{"/media/movie.en.ass", "auto"})
			So(fake.Option("volume"), ShouldEqual, 100.0)
		})

		Convey("End of file stops and remembers the selection", func() {
			fake.property(backend.PropTimePos, 119.0)
			fake.endFile(backend.EndEOF)

			s, ok := waitFor(statuses, func(s Status) bool { return s.State == Stopped })
			So(ok, ShouldBeTrue)
			So(s.Frames.Drawn, ShouldEqual, 0)
			So(hist.LastSelection(loc, stream.Subtitle).MustGet(), ShouldEqual, "file:/media/movie.srt")
		})

		Convey("Turning subtitles off is remembered as a choice", func() {
			So(e.SelectTrack(stream.Subtitle, ""), ShouldBeNil)
			fake.endFile(backend.EndEOF)

			_, ok := waitFor(statuses, func(s Status) bool { return s.State == Stopped })
			So(ok, ShouldBeTrue)
			So(hist.LastSelection(loc, stream.Subtitle).MustGet(), ShouldEqual, stream.KeyNone)
			So(hist.LastSelection(loc, stream.Audio).MustGet(), ShouldEqual, "#1")
		})

		Convey("Pause follows the backend", func() {
			So(e.Pause(), ShouldBeNil)
			fake.property(backend.PropPause, true)
			_, ok := waitFor(statuses, func(s Status) bool { return s.State == Paused })
			So(ok, ShouldBeTrue)
		})

		Convey("Stop is announced by the engine", func() {
			So(e.Stop(), ShouldBeNil)
			_, ok := waitFor(statuses, func(s Status) bool { return s.State == Stopped })
			So(ok, ShouldBeTrue)
			So(e.Stop(), ShouldBeNil)
			So(e.Seek(10), ShouldEqual, ErrNotLoaded)
		})
	})
}

// eventually polls cond until it holds or the timeout passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// opensWithTwoAudioTracks makes the fake report two audio tracks and a default embedded
// subtitle, selecting the first of each.
func opensWithTwoAudioTracks(f *fakeBackend, name string, _ []any) {
	if name != backend.CmdLoadFile {
		return
	}
	f.event(backend.EventStartFile)
	f.property(backend.PropDuration, 120.0)
	f.property(backend.PropTrackList, []any{
		map[string]any{"id": 1.0, "type": "video", "codec": "h264", "selected": true},
		map[string]any{"id": 1.0, "type": "audio", "codec": "aac", "lang": "ja", "selected": true},
		map[string]any{"id": 2.0, "type": "audio", "codec": "aac", "lang": "en"},
		map[string]any{"id": 1.0, "type": "sub", "codec": "ass", "lang": "en", "default": true, "selected": true},
	})
	f.event(backend.EventFileLoaded)
}

func TestRememberedTracks(t *testing.T) {
	Convey("Given history for a movie with embedded tracks and a sibling subtitle", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		for _, name := range []string{"movie.mkv", "movie.srt"} {
			So(fs.WriteFile("/media/"+name, []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n"), 0o644), ShouldBeNil)
		}

		loc := mrl.MustParse("/media/movie.mkv")
		hist := newFakeHistory()

		fake := newFakeBackend()
		fake.onCommand = opensWithTwoAudioTracks

		var stop func()
		Reset(func() {
			if stop != nil {
				stop()
			}
		})

		start := func(selections [stream.Count]mo.Option[string]) <-chan Status {
			So(hist.Record(loc, "", selections), ShouldBeNil)

			opts := testOptions()
			opts.History = hist
			e := New(fake, opts)

			ctx, cancel := context.WithCancel(context.Background())
			go func() { _ = e.Run(ctx) }()
			statuses, unsubscribe := e.Subscribe()
			stop = func() {
				unsubscribe()
				cancel()
				_ = e.Close()
			}

			So(e.Load(ctx, loc), ShouldBeNil)
			return statuses
		}

		Convey("A remembered embedded audio track replaces the backend's pick", func() {
			var selections [stream.Count]mo.Option[string]
			selections[stream.Audio] = mo.Some("#2")
			statuses := start(selections)

			s, ok := waitFor(statuses, func(s Status) bool {
				return s.State == Playing && s.Tracks[stream.Audio].Active.OrEmpty() == "#2"
			})
			So(ok, ShouldBeTrue)
			So(s.Tracks[stream.Audio].Active.MustGet(), ShouldEqual, "#2")
			So(eventually(func() bool { return fake.Option("aid") == 2 }), ShouldBeTrue)
		})

		Convey("A remembered embedded subtitle is not displaced by the sibling file", func() {
			var selections [stream.Count]mo.Option[string]
			selections[stream.Subtitle] = mo.Some("#1")
			statuses := start(selections)

			s, ok := waitFor(statuses, func(s Status) bool {
				return s.State == Playing && len(s.Tracks[stream.Subtitle].Embedded()) > 0
			})
			So(ok, ShouldBeTrue)
			So(s.Tracks[stream.Subtitle].Active.MustGet(), ShouldEqual, "#1")

			So(eventually(func() bool { return len(fake.Commands(backend.CmdSubAdd)) == 1 }), ShouldBeTrue)
			So(fake.Commands(backend.CmdSubAdd)[0].args, ShouldResemble, []any{"/media/movie.srt", "auto"})
		})

		Convey("Subtitles remembered as off are switched off", func() {
			var selections [stream.Count]mo.Option[string]
			selections[stream.Subtitle] = mo.Some(stream.KeyNone)
			statuses := start(selections)

			s, ok := waitFor(statuses, func(s Status) bool {
				return s.State == Playing && len(s.Tracks[stream.Subtitle].Embedded()) > 0
			})
			So(ok, ShouldBeTrue)
			So(s.Tracks[stream.Subtitle].Active.IsAbsent(), ShouldBeTrue)
			So(eventually(func() bool { return fake.Option("sid") == "no" }), ShouldBeTrue)

			So(eventually(func() bool { return len(fake.Commands(backend.CmdSubAdd)) == 1 }), ShouldBeTrue)
			So(fake.Commands(backend.CmdSubAdd)[0].args, ShouldResemble, []any{"/media/movie.srt", "auto"})
		})

		Convey("Without history the backend's pick stands", func() {
			statuses := start([stream.Count]mo.Option[string]{})

			s, ok := waitFor(statuses, func(s Status) bool {
				return s.State == Playing && s.Tracks[stream.Audio].Active.IsPresent()
			})
			So(ok, ShouldBeTrue)
			So(s.Tracks[stream.Audio].Active.MustGet(), ShouldEqual, "#1")
			So(fake.Option("aid"), ShouldEqual, "auto")
		})
	})
}

func TestResolution(t *testing.T) {
	Convey("Given an engine with a resolver", t, func() {
		filesystem.SetMemMapFs()
		fake := newFakeBackend()
		fake.onCommand = playsOnLoad

		release := make(chan struct{})
		started := make(chan struct{}, 1)
		opts := testOptions()
		opts.Resolver = resolverFunc(func(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
			switch loc.Path() {
			case "/broken":
				return mrl.Locator{}, errors.New("no formats found")
			case "/slow":
				started <- struct{}{}
				<-release
			}
			return mrl.MustParse("https://cdn.example.com/video.mp4").WithName("Resolved"), nil
		})
		e := New(fake, opts)

		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = e.Run(ctx) }()
		statuses, unsubscribe := e.Subscribe()

		Reset(func() {
			unsubscribe()
			cancel()
			_ = e.Close()
		})

		Convey("A resolved stream plays under the resolver's title", func() {
			So(e.Load(ctx, mrl.MustParse("https://example.com/watch")), ShouldBeNil)
			s, ok := waitFor(statuses, func(s Status) bool { return s.State == Playing })
			So(ok, ShouldBeTrue)
			So(s.Name(), ShouldEqual, "Resolved")
			So(fake.Commands(backend.CmdLoadFile)[0].args[0], ShouldEqual, "https://cdn.example.com/video.mp4")
		})

		Convey("A failed resolution is a failed load", func() {
			err := e.Load(ctx, mrl.MustParse("https://example.com/broken"))
			So(err, ShouldNotBeNil)
			s, ok := waitFor(statuses, func(s Status) bool { return s.State == Error })
			So(ok, ShouldBeTrue)
			So(s.Err, ShouldEqual, err)
			So(fake.Commands(backend.CmdLoadFile), ShouldBeEmpty)
		})

		Convey("A load superseded while resolving is discarded", func() {
			done := make(chan error, 1)
			go func() { done <- e.Load(ctx, mrl.MustParse("https://example.com/slow")) }()
			<-started

			So(e.Load(ctx, mrl.MustParse("/media/other.mkv")), ShouldBeNil)
			_, ok := waitFor(statuses, func(s Status) bool { return s.State == Playing })
			So(ok, ShouldBeTrue)

			before := e.Status().Dropped
			close(release)
			So(<-done, ShouldBeNil)

			s, ok := waitFor(statuses, func(s Status) bool { return s.Dropped >= before+2 })
			So(ok, ShouldBeTrue)
			So(s.Locator.Path(), ShouldEqual, "/media/other.mkv")
			So(len(fake.Commands(backend.CmdLoadFile)), ShouldEqual, 1)
		})
	})
}
