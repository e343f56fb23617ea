package engine

import (
	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/mrlstate"
	"github.com/playengine/playengine/stream"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// handle applies one event. Only the controller goroutine calls it.
func (e *Engine) handle(ev Event) {
	if gen := e.generation.Load(); ev.Generation() != gen {
		e.mu.Lock()
		e.status.Dropped++
		e.mu.Unlock()
		e.logger.Debugf("dropping %s of generation %d, current is %d", ev, ev.Generation(), gen)
		e.publish()
		return
	}

	e.logger.Tracef("handling %s", ev)

	switch ev := ev.(type) {
	case StateChange:
		e.onStateChange(ev)
	case WaitingChange:
		e.mu.Lock()
		e.status.Waiting = e.status.Waiting.With(ev.Flag, ev.Set)
		e.mu.Unlock()
	case PreparePlayback:
		e.onPrepare(ev)
	case StartPlayback:
		e.mu.Lock()
		e.status.Waiting = e.status.Waiting.With(WaitLoading, false)
		e.mu.Unlock()
	case EndPlayback:
		e.onEnd(ev)
	case NotifySeek:
		e.mu.Lock()
		e.status.Position = ev.Position
		e.mu.Unlock()
	case SyncMrlState:
		e.drive(ev.Gen, func(d *driver) error { return d.apply() })
	case TracksChange:
		e.onTracks(ev)
	case MediaChange:
		e.onMedia(ev)
	default:
		e.logger.Warnf("unhandled event %T", ev)
	}

	if e.trace != nil {
		e.trace(ev)
	}
	e.publish()
}

func (e *Engine) onStateChange(ev StateChange) {
	e.mu.Lock()
	from := e.status.State
	if from == ev.To {
		e.mu.Unlock()
		return
	}

	e.status.State = ev.To
	switch ev.To {
	case Loading:
		e.status.Err = nil
	case Stopped:
		e.status.Waiting = 0
	case Error:
		e.status.Err = ev.Err
		e.status.Waiting = 0
	}
	e.mu.Unlock()

	logger := e.logger.WithField("from", from.String()).WithField("to", ev.To.String())
	if ev.To != Error {
		logger.Info("state change")
		return
	}

	logger.WithError(ev.Err).Error("playback failed")
	e.shared.Invalidate()
	e.frames.Reset()
	e.drive(ev.Gen, func(d *driver) error { return d.stop(ev.Gen) })
}

func (e *Engine) onPrepare(ev PreparePlayback) {
	e.shared.Reset(ev.Session)

	e.mu.Lock()
	e.status.Locator = ev.Locator
	e.status.Title = ev.Source.Label()
	e.status.Position = 0
	e.status.Duration = 0
	e.status.Cache = Cache{}
	e.status.AVSync = 0
	e.status.Hwdec = HwdecUnavailable
	e.status.Chapters = 0
	e.status.Editions = 0
	e.source = ev.Source
	e.resolved = ev.Source.Label() != ""
	e.mu.Unlock()
	e.restored = [stream.Count]bool{}

	e.opts.Presentation.SetComponents(ev.Session.SubTracksInclusive.Tracks)

	e.logger.WithField("locator", ev.Locator.String()).Info("loading")
	e.drive(ev.Gen, func(d *driver) error { return d.load(ev.Gen, ev.Source, ev.Files) })
}

func (e *Engine) onEnd(ev EndPlayback) {
	e.mu.Lock()
	loc := e.status.Locator
	title := e.status.Name()
	position, duration := e.status.Position, e.status.Duration
	e.status.Waiting = 0
	e.mu.Unlock()

	if !loc.IsZero() {
		e.remember(loc, title, ev.Reason, position, duration)
	}

	e.frames.Reset()
	e.shared.Invalidate()

	if ev.Unload {
		e.shared.Reset(e.opts.Defaults)
		e.opts.Presentation.SetComponents(nil)

		e.mu.Lock()
		e.status.Locator = mrl.Locator{}
		e.status.Title = ""
		e.status.Position = 0
		e.status.Duration = 0
		e.source = mrl.Locator{}
		e.mu.Unlock()
	}
}

func (e *Engine) remember(loc mrl.Locator, title string, reason backend.EndReason, position, duration float64) {
	if e.opts.RememberTracks {
		var selections [stream.Count]mo.Option[string]
		e.shared.Read(func(s *mrlstate.State) {
			for _, t := range stream.Types() {
				list := s.TrackList(t)
				selections[t] = list.Active
				if list.Active.IsAbsent() && list.Len() > 0 {
					selections[t] = mo.Some(stream.KeyNone)
				}
			}
		})
		if err := e.opts.History.Record(loc, title, selections); err != nil {
			e.logger.WithError(err).Warn("recording track selections")
		}
	}

	if e.opts.Resume {
		if reason == backend.EndEOF {
			position = duration
		}
		if err := e.opts.History.RecordPosition(loc, position, duration); err != nil {
			e.logger.WithError(err).Warn("recording position")
		}
	}
}

// onTracks merges the backend's tracks with the autoloaded files and the presentation's
// components, keeping the backend's selection unless a remembered one replaces it.
func (e *Engine) onTracks(ev TracksChange) {
	e.mu.RLock()
	source, loc := e.source, e.status.Locator
	e.mu.RUnlock()

	var lists [stream.Count]stream.TrackList
	var inclusive stream.TrackList

	for _, t := range stream.Types() {
		var candidates []autoload.Candidate
		if l := e.opts.Loaders[t]; l != nil && !source.IsZero() {
			var err error
			if candidates, err = l.Candidates(source); err != nil {
				e.logger.WithError(err).Warn("re-listing candidates")
			}
		}

		priority := e.opts.Registry.Get(t).Priority
		lists[t] = stream.TrackList{Tracks: autoload.Merge(ev.Tracks[t], candidates, priority)}

		if t == stream.Subtitle {
			known := lo.SliceToMap(lists[t].Tracks, func(tr stream.Track) (string, bool) { return tr.Key(), true })
			extra := lo.Filter(e.opts.Presentation.ReportedComponents(), func(tr stream.Track, _ int) bool {
				return !known[tr.Key()]
			})
			inclusive = stream.TrackList{
				Tracks: autoload.Merge(append(append([]stream.Track(nil), ev.Tracks[t]...), extra...), candidates, priority),
			}
		}
	}

	selected := e.restoreSelections(ev.Gen, loc, lists, ev)

	e.shared.Mutate(func(s *mrlstate.State) {
		for _, t := range stream.Types() {
			lists[t].Active = activeKey(lists[t], selected[t], s.Tracks[t].Active)
			s.Tracks[t] = lists[t]
		}
		inclusive.Active = activeKey(inclusive, selected[stream.Subtitle], s.SubTracksInclusive.Active)
		s.SubTracksInclusive = inclusive
	})

	e.opts.Presentation.SetComponents(inclusive.Tracks)
}

// restoreSelections runs history-first selection for every type whose embedded tracks the
// backend reports for the first time in this load. When the remembered track differs from the
// backend's pick, the backend is told to switch. It returns the backend ids to treat as selected.
func (e *Engine) restoreSelections(gen uint64, loc mrl.Locator, lists [stream.Count]stream.TrackList, ev TracksChange) [stream.Count]int {
	selected := ev.Selected

	for _, t := range stream.Types() {
		if e.restored[t] || len(lists[t].Embedded()) == 0 {
			continue
		}
		e.restored[t] = true

		remembered, ok := e.lastSelection(loc, t).Get()
		if !ok {
			continue
		}

		id := 0
		if key, ok := autoload.Select(lists[t].Tracks, mo.Some(remembered), e.selectOptions(t)).Get(); ok {
			if key != remembered {
				// The remembered track is gone; the backend's pick stands.
				continue
			}
			// An external file still to be added carries its own selection.
			if id = lists[t].Find(key).MustGet().ID; id == 0 {
				continue
			}
		}
		if id == selected[t] {
			continue
		}

		selected[t] = id
		var value any = "no"
		if id > 0 {
			value = id
		}
		property := e.opts.Registry.Get(t).Property
		e.logger.WithField("property", property).WithField("value", value).Debug("restoring remembered track")
		e.drive(gen, func(d *driver) error { return d.set(property, value) })
	}

	return selected
}

// activeKey is the key of the track the backend selected. While an autoloaded file has
// not been added yet, the previous selection of it stands.
func activeKey(list stream.TrackList, id int, previous mo.Option[string]) mo.Option[string] {
	if id > 0 {
		if t, ok := list.FindID(id).Get(); ok {
			return mo.Some(t.Key())
		}
	}
	if key, ok := previous.Get(); ok {
		if t, ok := list.Find(key).Get(); ok && t.External && t.ID == 0 {
			return previous
		}
	}
	return mo.None[string]()
}

func (e *Engine) onMedia(ev MediaChange) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Name {
	case backend.PropDuration:
		e.status.Duration, _ = backend.Float(ev.Value)
	case backend.PropMediaTitle:
		if title, ok := backend.String(ev.Value); ok && !e.resolved {
			e.status.Title = title
		}
	case backend.PropCacheUsed:
		e.status.Cache.Buffered, _ = backend.Float(ev.Value)
	case backend.PropCacheBuffer:
		fill, _ := backend.Float(ev.Value)
		e.status.Cache.Fill = int(fill)
	case backend.PropAVSync:
		e.status.AVSync, _ = backend.Float(ev.Value)
	case backend.PropHwdecCurrent:
		e.status.Hwdec = hwdecState(ev.Value)
	case backend.PropChapterList:
		e.status.Chapters = backend.Count(ev.Value)
	case backend.PropEditionList:
		e.status.Editions = backend.Count(ev.Value)
	}
}

func hwdecState(v any) Hwdec {
	s, ok := backend.String(v)
	switch {
	case !ok:
		return HwdecUnavailable
	case s == "" || s == "no":
		return HwdecDeactivated
	default:
		return HwdecActivated
	}
}
