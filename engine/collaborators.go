package engine

import (
	"context"
	"sync"

	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/mo"
)

// Resolver turns a stream reference into a locator the backend can open.
type Resolver interface {
	Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error)
}

// History remembers track selections and positions per locator.
type History interface {
	LastSelection(loc mrl.Locator, t stream.Type) mo.Option[string]
	Record(loc mrl.Locator, title string, selections [stream.Count]mo.Option[string]) error
	Position(loc mrl.Locator) mo.Option[float64]
	RecordPosition(loc mrl.Locator, position, duration float64) error
}

// Presentation is the surface rendering subtitles. It is told which subtitle components
// exist and reports the ones it discovered itself.
type Presentation interface {
	SetComponents(tracks []stream.Track)
	ReportedComponents() []stream.Track
}

// Mirror is a Presentation that discovers nothing and reports what it was last given,
// for backends rendering subtitles themselves.
type Mirror struct {
	mu         sync.Mutex
	components []stream.Track
}

func NewMirror() *Mirror { return &Mirror{} }

func (m *Mirror) SetComponents(tracks []stream.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append([]stream.Track(nil), tracks...)
}

func (m *Mirror) ReportedComponents() []stream.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stream.Track(nil), m.components...)
}

type noHistory struct{}

func (noHistory) LastSelection(mrl.Locator, stream.Type) mo.Option[string] {
	return mo.None[string]()
}

func (noHistory) Record(mrl.Locator, string, [stream.Count]mo.Option[string]) error { return nil }

func (noHistory) Position(mrl.Locator) mo.Option[float64] { return mo.None[float64]() }

func (noHistory) RecordPosition(mrl.Locator, float64, float64) error { return nil }
