// Package engine drives a single playback session.
//
// A controller goroutine (Run) owns the playback state and consumes a FIFO of typed
// events. A driver goroutine owns the backend: it issues commands, reads notifications
// and turns them into events. The session configuration is shared through mrlstate.Shared,
// which the driver reads through its lazily refreshed local copy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/mrlstate"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/telemetry"
	"github.com/playengine/playengine/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// Options configure an Engine.
type Options struct {
	Registry stream.Registry
	// Loaders holds one autoloader per stream type; nil entries never autoload.
	Loaders [stream.Count]*autoload.Autoloader
	// Defaults is the session every load starts from.
	Defaults *mrlstate.State

	RememberTracks bool
	Resume         bool

	SpeedMinSamples int
	SpeedWindow     int
	SnapshotDir     string
	// CommandTimeout bounds synchronous backend commands.
	CommandTimeout time.Duration

	Resolver     Resolver
	History      History
	Presentation Presentation
}

type job struct {
	// gen is the load the job belongs to, 0 for jobs that outlive loads.
	gen  uint64
	fn   func(*driver) error
	done chan error
}

// Engine is the playback controller.
type Engine struct {
	opts    Options
	backend backend.Backend
	queue   *Queue
	shared  *mrlstate.Shared
	frames  *telemetry.Frames
	logger  *logrus.Entry

	generation atomic.Uint64
	jobs       chan job
	done       chan struct{}
	closeOnce  sync.Once
	running    atomic.Bool

	mu     sync.RWMutex
	status Status
	// source is the locator handed to the backend, after resolution.
	source mrl.Locator
	// resolved is set when the resolver supplied the title.
	resolved bool

	// restored marks the stream types whose remembered selection was checked against the
	// backend's tracks in the current load. Controller goroutine only.
	restored [stream.Count]bool

	subMu       sync.Mutex
	subscribers map[int]chan Status
	nextSub     int

	// trace observes every handled event.
	trace func(Event)
}

// New creates an engine around a backend. Run must be called for it to make progress.
func New(b backend.Backend, opts Options) *Engine {
	if opts.Defaults == nil {
		opts.Defaults = mrlstate.New()
	}
	if opts.History == nil {
		opts.History = noHistory{}
	}
	if opts.Presentation == nil {
		opts.Presentation = NewMirror()
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	if opts.Registry[stream.Subtitle].Property == "" {
		opts.Registry = stream.Descriptors()
	}

	return &Engine{
		opts:        opts,
		backend:     b,
		queue:       NewQueue(),
		shared:      mrlstate.NewShared(opts.Defaults.Clone()),
		frames:      telemetry.NewFrames(opts.SpeedMinSamples, opts.SpeedWindow),
		logger:      log.With("engine"),
		jobs:        make(chan job, 64),
		done:        make(chan struct{}),
		subscribers: make(map[int]chan Status),
	}
}

// Run drives the engine until ctx is cancelled or Close is called.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := newDriver(ctx, e)
	if err := d.observe(); err != nil {
		return fmt.Errorf("observe backend properties: %w", err)
	}
	go d.run()

	for {
		ev, err := e.queue.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		e.handle(ev)
	}
}

// Close releases the backend. Pending events are discarded.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		e.queue.Close()
		err = e.backend.Close()

		e.subMu.Lock()
		for id, ch := range e.subscribers {
			close(ch)
			delete(e.subscribers, id)
		}
		e.subMu.Unlock()
	})
	return err
}

func (e *Engine) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Engine) post(ev Event) {
	if !e.queue.Post(ev) {
		e.logger.Debugf("dropping %s: queue closed", ev)
	}
}

// drive hands fn to the driver goroutine without waiting for it.
func (e *Engine) drive(gen uint64, fn func(*driver) error) {
	select {
	case e.jobs <- job{gen: gen, fn: fn}:
	case <-e.done:
	}
}

// do runs fn on the driver goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, fn func(*driver) error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case e.jobs <- j:
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load replaces the current media. Stream references are resolved first, sibling tracks
// are discovered and the initial session is built before the backend is asked to open it.
// Any event of a previous load still in flight is discarded.
func (e *Engine) Load(ctx context.Context, loc mrl.Locator) error {
	if e.closed() {
		return ErrClosed
	}
	if loc.IsZero() {
		return mrl.ErrEmpty
	}

	gen := e.generation.Add(1)
	e.post(StateChange{tag: tag{gen}, To: Loading})
	e.post(WaitingChange{tag: tag{gen}, Flag: WaitLoading, Set: true})

	source := loc
	if !loc.IsDirect() && e.opts.Resolver != nil {
		e.post(WaitingChange{tag: tag{gen}, Flag: WaitResolving, Set: true})
		resolved, err := e.opts.Resolver.Resolve(ctx, loc)
		e.post(WaitingChange{tag: tag{gen}, Flag: WaitResolving, Set: false})

		if err != nil {
			e.post(StateChange{tag: tag{gen}, To: Error, Err: err})
			return err
		}
		source = resolved
	}

	session, files := e.prepare(loc, source)
	e.post(PreparePlayback{tag: tag{gen}, Locator: loc, Source: source, Session: session, Files: files})
	return nil
}

// prepare runs the autoload plan and builds the initial session of a load.
func (e *Engine) prepare(loc, source mrl.Locator) (*mrlstate.State, [stream.Count][]External) {
	for _, l := range e.opts.Loaders {
		if l != nil {
			l.Forget()
		}
	}

	remembered := func(t stream.Type) mo.Option[string] { return e.lastSelection(loc, t) }
	plan := autoload.Plan(e.opts.Loaders, source, [stream.Count][]stream.Track{}, remembered)

	// Embedded tracks are unknown until the backend opens the media. A remembered one must
	// not lose to an autoloaded file; onTracks selects it once reported.
	for _, t := range stream.Types() {
		if key, ok := remembered(t).Get(); ok && key != stream.KeyNone && plan.Lists[t].Find(key).IsAbsent() {
			plan.Lists[t].Deselect()
		}
	}

	session := e.opts.Defaults.Clone()
	session.Title = source.Label()
	for _, t := range stream.Types() {
		session.Tracks[t] = plan.Lists[t].Clone()
	}
	session.SubTracksInclusive = plan.Lists[stream.Subtitle].Clone()

	if e.opts.Resume {
		if pos, ok := e.opts.History.Position(loc).Get(); ok {
			session.Start = pos
		}
	}

	var files [stream.Count][]External
	for _, t := range stream.Types() {
		active, selected := plan.Lists[t].Active.Get()
		files[t] = lo.Map(plan.Files[t], func(c autoload.Candidate, _ int) External {
			return External{
				Path:     c.Path,
				Encoding: c.Encoding,
				Select:   selected && active == c.Track().Key(),
			}
		})
	}

	return session, files
}

// lastSelection is the remembered track key of a type, absent when tracks are not remembered.
func (e *Engine) lastSelection(loc mrl.Locator, t stream.Type) mo.Option[string] {
	if !e.opts.RememberTracks {
		return mo.None[string]()
	}
	return e.opts.History.LastSelection(loc, t)
}

// selectOptions are the selection rules of a type, those of its autoloader when it has one.
func (e *Engine) selectOptions(t stream.Type) autoload.Options {
	if l := e.opts.Loaders[t]; l != nil {
		return l.Options()
	}
	return autoload.Options{AllowNone: t == stream.Subtitle}
}

// Stop ends playback of the current media, keeping its session.
func (e *Engine) Stop() error {
	return e.stop(false)
}

// Unload stops playback and forgets the media and its session.
func (e *Engine) Unload() error {
	return e.stop(true)
}

func (e *Engine) stop(unload bool) error {
	if e.closed() {
		return ErrClosed
	}

	e.mu.RLock()
	state, loc := e.status.State, e.status.Locator
	e.mu.RUnlock()

	if state == Stopped && (!unload || loc.IsZero()) {
		return nil
	}

	gen := e.generation.Add(1)
	e.drive(gen, func(d *driver) error { return d.stop(gen) })
	e.post(EndPlayback{tag: tag{gen}, Reason: backend.EndStop, Unload: unload})
	e.post(StateChange{tag: tag{gen}, To: Stopped})
	return nil
}

func (e *Engine) requireLoaded() error {
	if e.closed() {
		return ErrClosed
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.status.State == Stopped || e.status.State == Error {
		return ErrNotLoaded
	}
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause() error { return e.setPause(true) }

// Resume resumes playback.
func (e *Engine) Resume() error { return e.setPause(false) }

// TogglePause flips between playing and paused.
func (e *Engine) TogglePause() error {
	e.mu.RLock()
	paused := e.status.State == Paused
	e.mu.RUnlock()
	return e.setPause(!paused)
}

func (e *Engine) setPause(pause bool) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	e.drive(0, func(d *driver) error { return d.set(backend.PropPause, pause) })
	return nil
}

// Seek moves playback to an absolute position, in seconds.
func (e *Engine) Seek(position float64) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if position < 0 {
		position = 0
	}

	gen := e.generation.Load()
	e.post(WaitingChange{tag: tag{gen}, Flag: WaitSeeking, Set: true})
	e.drive(gen, func(d *driver) error {
		return d.commandAsync(backend.CmdSeek, position, "absolute")
	})
	return nil
}

// SeekRelative moves playback by offset seconds.
func (e *Engine) SeekRelative(offset float64) error {
	e.mu.RLock()
	pos := e.status.Position
	e.mu.RUnlock()
	return e.Seek(pos + offset)
}

// SelectTrack activates the track with the given key, or deactivates the type for an empty key.
func (e *Engine) SelectTrack(t stream.Type, key string) error {
	if int(t) < 0 || int(t) >= stream.Count {
		return ErrUnknownType
	}
	if err := e.requireLoaded(); err != nil {
		return err
	}

	var (
		track stream.Track
		err   error
	)
	e.shared.Mutate(func(s *mrlstate.State) {
		list := s.TrackList(t)
		if key == "" {
			list.Deselect()
			if t == stream.Subtitle {
				s.Tracks[t].Deselect()
			}
			return
		}
		if err = list.Select(key); err != nil {
			return
		}
		track = list.Find(key).MustGet()
		if t == stream.Subtitle {
			_ = s.Tracks[t].Select(key)
		}
	})
	if err != nil {
		return err
	}

	property := e.opts.Registry.Get(t).Property
	e.drive(e.generation.Load(), func(d *driver) error {
		switch {
		case key == "":
			return d.set(property, "no")
		case track.ID > 0:
			return d.set(property, track.ID)
		case track.External:
			return d.addExternal(t, External{Path: track.File, Encoding: track.Encoding, Select: true})
		default:
			return nil
		}
	})

	e.publish()
	return nil
}

// CycleTrack selects the next track of a type, wrapping to none for subtitles.
func (e *Engine) CycleTrack(t stream.Type) error {
	if int(t) < 0 || int(t) >= stream.Count {
		return ErrUnknownType
	}

	var list stream.TrackList
	e.shared.Read(func(s *mrlstate.State) { list = s.TrackList(t).Clone() })
	if list.Len() == 0 {
		return nil
	}

	keys := list.Keys()
	if t == stream.Subtitle {
		keys = append(keys, "")
	}

	current := list.Active.OrElse("")
	_, i, _ := lo.FindIndexOf(keys, func(k string) bool { return k == current })
	return e.SelectTrack(t, keys[(i+1)%len(keys)])
}

// Mutate commits a batch of session changes and has the driver apply them as a whole.
func (e *Engine) Mutate(fn func(*mrlstate.State)) {
	e.shared.Mutate(fn)
	e.post(SyncMrlState{tag: tag{e.generation.Load()}, Version: e.shared.Version()})
}

// SetVolume sets the volume in percent, clamped to [0, 100].
func (e *Engine) SetVolume(v int) { e.Mutate(func(s *mrlstate.State) { s.SetVolume(v) }) }

// SetAmplifier sets the software gain in percent, 100 being unity.
func (e *Engine) SetAmplifier(v int) { e.Mutate(func(s *mrlstate.State) { s.SetAmplifier(v) }) }

// SetMuted mutes or unmutes audio.
func (e *Engine) SetMuted(muted bool) { e.Mutate(func(s *mrlstate.State) { s.Muted = muted }) }

// SetSubtitleDelay sets the subtitle delay in milliseconds.
func (e *Engine) SetSubtitleDelay(ms int) {
	e.Mutate(func(s *mrlstate.State) { s.Subtitle.Delay = ms })
}

// SetAudioSync sets the audio delay in milliseconds.
func (e *Engine) SetAudioSync(ms int) {
	e.Mutate(func(s *mrlstate.State) { s.AudioSync = ms })
}

// SetVideoColor sets the color adjustments, clamped to [-100, 100].
func (e *Engine) SetVideoColor(c mrlstate.VideoColor) {
	e.Mutate(func(s *mrlstate.State) { s.Video.Color = c.Clamp() })
}

// TakeSnapshot captures the screen or the bare video frame and returns the file written.
func (e *Engine) TakeSnapshot(ctx context.Context, kind SnapshotKind) (string, error) {
	if kind == SnapshotNone {
		return "", nil
	}
	if err := e.requireLoaded(); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.status.Snapshot = kind
	stem := e.status.Locator.Stem()
	e.mu.Unlock()
	e.publish()

	defer func() {
		e.mu.Lock()
		e.status.Snapshot = SnapshotNone
		e.mu.Unlock()
		e.publish()
	}()

	name := fmt.Sprintf("%s-%s.png", util.SanitizeFilename(stem), time.Now().Format("20060102-150405.000"))
	path := filepath.Join(e.opts.SnapshotDir, name)

	mode := "window"
	if kind == SnapshotVideo {
		mode = "video"
	}

	err := e.do(ctx, func(d *driver) error {
		_, err := d.command(backend.CmdScreenshot, path, mode)
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// Status returns a consistent view of the engine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	s := e.status
	e.mu.RUnlock()

	s.Generation = e.generation.Load()
	s.Frames = e.frames.Counts()
	e.shared.Read(func(state *mrlstate.State) {
		s.Volume = state.Volume
		s.Amplifier = state.Amplifier
		s.Muted = state.Muted
		for _, t := range stream.Types() {
			s.Tracks[t] = state.TrackList(t).Clone()
		}
	})
	return s
}

// Session returns a copy of the current session configuration.
func (e *Engine) Session() *mrlstate.State {
	return e.shared.Current()
}

// Subscribe delivers the latest status after every handled event. Slow readers only
// miss intermediate statuses. The channel is closed by cancel or Close.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	e.subMu.Lock()
	if e.closed() {
		e.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subscribers[id]; ok {
			close(c)
			delete(e.subscribers, id)
		}
	}
	return ch, cancel
}

func (e *Engine) publish() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if len(e.subscribers) == 0 {
		return
	}

	status := e.Status()
	for _, ch := range e.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
}
