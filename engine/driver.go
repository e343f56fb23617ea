package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// driver owns the backend. Its methods only run on the driver goroutine.
type driver struct {
	ctx    context.Context
	e      *Engine
	b      backend.Backend
	logger *logrus.Entry

	// gen tags every event posted for the media the backend currently has.
	gen     uint64
	loaded  bool
	pending [stream.Count][]External
	// lastFrame is the last estimated frame number, -1 after a seek or load.
	lastFrame int64
}

func newDriver(ctx context.Context, e *Engine) *driver {
	return &driver{
		ctx:       ctx,
		e:         e,
		b:         e.backend,
		logger:    e.logger.WithField("goroutine", "driver"),
		lastFrame: -1,
	}
}

func (d *driver) observe() error {
	for _, name := range backend.Observed {
		if err := d.b.Observe(name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (d *driver) run() {
	notifications := d.b.Notifications()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.e.done:
			return
		case j := <-d.e.jobs:
			d.runJob(j)
		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				d.post(StateChange{tag: tag{d.gen}, To: Error, Err: ErrBackendGone})
				continue
			}
			d.handle(n)
		}
	}
}

func (d *driver) runJob(j job) {
	var err error
	if j.gen != 0 && j.gen != d.e.generation.Load() {
		err = fmt.Errorf("superseded load %d", j.gen)
	} else {
		err = j.fn(d)
	}

	if j.done != nil {
		j.done <- err
		return
	}
	if err != nil {
		d.logger.WithError(err).Warn("backend job failed")
	}
}

func (d *driver) post(ev Event) { d.e.post(ev) }

func (d *driver) set(name string, value any) error {
	if err := d.b.SetOption(name, value); err != nil {
		return &CommandError{Command: "set " + name, Err: err}
	}
	return nil
}

func (d *driver) command(name string, args ...any) (any, error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.e.opts.CommandTimeout)
	defer cancel()

	result, err := d.b.Command(ctx, name, args...)
	if err != nil {
		return nil, &CommandError{Command: name, Err: err}
	}
	return result, nil
}

func (d *driver) commandAsync(name string, args ...any) error {
	if err := d.b.CommandAsync(name, args...); err != nil {
		return &CommandError{Command: name, Err: err}
	}
	return nil
}

// load opens a media with the session's local copy applied beforehand.
func (d *driver) load(gen uint64, source mrl.Locator, files [stream.Count][]External) error {
	d.gen = gen
	d.loaded = false
	d.pending = files
	d.lastFrame = -1
	d.e.frames.Reset()

	snap := d.e.shared.Snapshot()
	for _, opt := range snap.BackendOptions(d.e.opts.Registry) {
		if err := d.set(opt.Key, opt.Value); err != nil {
			d.logger.WithError(err).Warn("applying session")
		}
	}

	start := "none"
	if snap.Start > 0 {
		start = fmt.Sprintf("%.3f", snap.Start)
	}
	headers := headerFields(source.Headers())
	title := snap.Title

	for _, opt := range []struct {
		name  string
		value any
	}{
		{"start", start},
		{"http-header-fields", headers},
		{"force-media-title", title},
	} {
		if err := d.set(opt.name, opt.value); err != nil {
			d.logger.WithError(err).Warn("preparing load")
		}
	}

	if _, err := d.command(backend.CmdLoadFile, source.String(), "replace"); err != nil {
		d.post(StateChange{tag: tag{gen}, To: Error, Err: err})
		return nil
	}
	return nil
}

func headerFields(headers map[string]string) []string {
	fields := lo.MapToSlice(headers, func(k, v string) string { return k + ": " + v })
	sort.Strings(fields)
	return fields
}

// apply pushes the current local copy to the backend. Selections that are still
// automatic are left to the backend.
func (d *driver) apply() error {
	snap := d.e.shared.Snapshot()

	selection := lo.SliceToMap(stream.Types(), func(t stream.Type) (string, bool) {
		return d.e.opts.Registry.Get(t).Property, true
	})

	for _, opt := range snap.BackendOptions(d.e.opts.Registry) {
		if selection[opt.Key] && (opt.Value == "auto" || !d.loaded) {
			continue
		}
		if err := d.set(opt.Key, opt.Value); err != nil {
			d.logger.WithError(err).Warn("syncing session")
		}
	}
	return nil
}

func (d *driver) stop(gen uint64) error {
	d.gen = gen
	d.loaded = false
	d.pending = [stream.Count][]External{}
	return d.commandAsync(backend.CmdStop)
}

// addExternal submits an autoloaded file as an additional track source.
func (d *driver) addExternal(t stream.Type, ext External) error {
	var cmd string
	switch t {
	case stream.Video:
		cmd = backend.CmdVideoAdd
	case stream.Audio:
		cmd = backend.CmdAudioAdd
	case stream.Subtitle:
		cmd = backend.CmdSubAdd
		if ext.Encoding != "" {
			if err := d.set("sub-codepage", ext.Encoding); err != nil {
				return err
			}
		}
	default:
		return ErrUnknownType
	}

	flag := backend.TrackAuto
	if ext.Select {
		flag = backend.TrackSelect
	}
	_, err := d.command(cmd, ext.Path, string(flag))
	return err
}

func (d *driver) addPending() {
	if len(d.pending[stream.Subtitle]) > 0 {
		d.post(WaitingChange{tag: tag{d.gen}, Flag: WaitSubtitleLoad, Set: true})
		defer d.post(WaitingChange{tag: tag{d.gen}, Flag: WaitSubtitleLoad, Set: false})
	}

	for _, t := range stream.Types() {
		for _, ext := range d.pending[t] {
			if err := d.addExternal(t, ext); err != nil {
				d.logger.WithError(err).Warnf("adding %s", ext.Path)
			}
		}
	}
	d.pending = [stream.Count][]External{}
}

func (d *driver) handle(n backend.Notification) {
	if n.Kind == backend.Event && n.Name == backend.EventFileLoaded {
		d.addPending()
	}

	for _, ev := range d.translate(n) {
		d.post(ev)
	}
}

// translate turns a notification into the events it implies, updating telemetry
// and the driver's view of the backend on the way.
func (d *driver) translate(n backend.Notification) []Event {
	at := tag{d.gen}

	if n.Kind == backend.Event {
		switch n.Name {
		case backend.EventFileLoaded:
			d.loaded = true
			d.lastFrame = -1
			to := Playing
			if paused, err := d.paused(); err == nil && paused {
				to = Paused
			}
			return []Event{
				StartPlayback{tag: at},
				StateChange{tag: at, To: to},
				WaitingChange{tag: at, Flag: WaitLoading, Set: false},
			}
		case backend.EventSeek:
			d.lastFrame = -1
			return []Event{WaitingChange{tag: at, Flag: WaitSeeking, Set: true}}
		case backend.EventPlaybackRestart:
			return []Event{WaitingChange{tag: at, Flag: WaitSeeking, Set: false}}
		case backend.EventEndFile:
			return d.endFile(n)
		case backend.EventShutdown:
			d.loaded = false
			return []Event{StateChange{tag: at, To: Error, Err: ErrBackendGone}}
		}
		return nil
	}

	switch n.Name {
	case backend.PropPause:
		if paused, ok := backend.Bool(n.Value); ok && d.loaded {
			return []Event{StateChange{tag: at, To: lo.Ternary(paused, Paused, Playing)}}
		}
	case backend.PropTimePos:
		if pos, ok := backend.Float(n.Value); ok {
			return []Event{NotifySeek{tag: at, Position: pos}}
		}
	case backend.PropBuffering:
		if v, ok := backend.Bool(n.Value); ok {
			return []Event{WaitingChange{tag: at, Flag: WaitBuffering, Set: v}}
		}
	case backend.PropSeeking:
		if v, ok := backend.Bool(n.Value); ok {
			return []Event{WaitingChange{tag: at, Flag: WaitSeeking, Set: v}}
		}
	case backend.PropTrackList:
		return []Event{TracksChange{
			tag:      at,
			Tracks:   backend.ParseTrackList(n.Value),
			Selected: backend.SelectedIDs(n.Value),
		}}
	case backend.PropEstimatedVF:
		d.countFrames(n.Value)
	case backend.PropDroppedFrames:
		if v, ok := backend.Float(n.Value); ok && v >= 0 {
			d.e.frames.SetDropped(uint64(v))
		}
	case backend.PropDelayedFrames:
		if v, ok := backend.Float(n.Value); ok && v >= 0 {
			d.e.frames.SetDelayed(uint64(v))
		}
	case backend.PropDuration, backend.PropMediaTitle, backend.PropCacheUsed, backend.PropCacheBuffer,
		backend.PropAVSync, backend.PropHwdecCurrent, backend.PropChapterList, backend.PropEditionList:
		return []Event{MediaChange{tag: at, Name: n.Name, Value: n.Value}}
	}
	return nil
}

// endFile maps an end-file event. Stops are announced by whoever requested them, so
// the backend's own report of them is ignored.
func (d *driver) endFile(n backend.Notification) []Event {
	at := tag{d.gen}
	d.loaded = false

	switch n.Reason {
	case backend.EndStop, backend.EndRedirect:
		return nil
	case backend.EndError:
		return []Event{
			EndPlayback{tag: at, Reason: n.Reason},
			StateChange{tag: at, To: Error, Err: &PlaybackError{Reason: n.Err}},
		}
	default:
		return []Event{
			EndPlayback{tag: at, Reason: n.Reason},
			StateChange{tag: at, To: Stopped},
		}
	}
}

// countFrames turns the estimated frame number into drawn frames. The number jumps on
// seeks, so the first value after one only sets the baseline.
func (d *driver) countFrames(v any) {
	f, ok := backend.Float(v)
	if !ok || f < 0 {
		return
	}

	frame := int64(f)
	if d.lastFrame >= 0 && frame > d.lastFrame {
		d.e.frames.AddDrawn(uint64(frame - d.lastFrame))
	}
	d.lastFrame = frame
}

func (d *driver) paused() (bool, error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.e.opts.CommandTimeout)
	defer cancel()

	v, err := d.b.Get(ctx, backend.PropPause)
	if err != nil {
		return false, err
	}
	paused, _ := backend.Bool(v)
	return paused, nil
}
