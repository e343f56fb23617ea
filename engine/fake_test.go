package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type call struct {
	name string
	args []any
}

// fakeBackend records what the engine asks for and lets tests inject notifications.
type fakeBackend struct {
	mu        sync.Mutex
	options   map[string]any
	commands  []call
	observed  []string
	props     map[string]any
	notes     chan backend.Notification
	onCommand func(f *fakeBackend, name string, args []any)
	closed    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		options: make(map[string]any),
		props:   map[string]any{backend.PropPause: false},
		notes:   make(chan backend.Notification, 256),
	}
}

func (f *fakeBackend) SetOption(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options[name] = value
	return nil
}

func (f *fakeBackend) Option(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[name]
}

func (f *fakeBackend) Command(_ context.Context, name string, args ...any) (any, error) {
	f.record(name, args)
	return nil, nil
}

func (f *fakeBackend) CommandAsync(name string, args ...any) error {
	f.record(name, args)
	return nil
}

func (f *fakeBackend) record(name string, args []any) {
	f.mu.Lock()
	f.commands = append(f.commands, call{name: name, args: args})
	hook := f.onCommand
	f.mu.Unlock()

	if hook != nil {
		hook(f, name, args)
	}
}

func (f *fakeBackend) Commands(name string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.commands, func(c call, _ int) bool { return c.name == name })
}

func (f *fakeBackend) Get(_ context.Context, name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.props[name]
	if !ok {
		return nil, errors.New("property unavailable")
	}
	return v, nil
}

func (f *fakeBackend) Observe(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, name)
	return nil
}

func (f *fakeBackend) Notifications() <-chan backend.Notification { return f.notes }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) event(name string) {
	f.notes <- backend.Notification{Kind: backend.Event, Name: name}
}

func (f *fakeBackend) endFile(reason backend.EndReason) {
	f.notes <- backend.Notification{Kind: backend.Event, Name: backend.EventEndFile, Reason: reason}
}

func (f *fakeBackend) property(name string, value any) {
	f.notes <- backend.Notification{Kind: backend.Property, Name: name, Value: value}
}

// playsOnLoad makes the fake open media the way mpv announces it.
func playsOnLoad(f *fakeBackend, name string, _ []any) {
	if name != backend.CmdLoadFile {
		return
	}
	f.event(backend.EventStartFile)
	f.property(backend.PropDuration, 120.0)
	f.property(backend.PropTrackList, []any{
		map[string]any{"id": 1.0, "type": "video", "codec": "h264", "selected": true},
		map[string]any{"id": 1.0, "type": "audio", "codec": "aac", "lang": "en", "selected": true},
	})
	f.event(backend.EventFileLoaded)
}

type fakeHistory struct {
	mu         sync.Mutex
	selections map[string][stream.Count]mo.Option[string]
	positions  map[string]float64
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		selections: make(map[string][stream.Count]mo.Option[string]),
		positions:  make(map[string]float64),
	}
}

func (h *fakeHistory) LastSelection(loc mrl.Locator, t stream.Type) mo.Option[string] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selections[loc.Key()][t]
}

func (h *fakeHistory) Record(loc mrl.Locator, _ string, selections [stream.Count]mo.Option[string]) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selections[loc.Key()] = selections
	return nil
}

func (h *fakeHistory) Position(loc mrl.Locator) mo.Option[float64] {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.positions[loc.Key()]
	if !ok {
		return mo.None[float64]()
	}
	return mo.Some(p)
}

func (h *fakeHistory) RecordPosition(loc mrl.Locator, position, _ float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.positions[loc.Key()] = position
	return nil
}

type resolverFunc func(ctx context.Context, loc mrl.Locator) (mrl.Locator, error)

func (f resolverFunc) Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
	return f(ctx, loc)
}
