package engine

import (
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/telemetry"
)

// Cache is the backend's read-ahead state.
type Cache struct {
	// Buffered is the seconds of media ahead of the play position.
	Buffered float64 `json:"buffered"`
	// Fill is the percentage of the cache needed to resume, 100 when not buffering.
	Fill int `json:"fill"`
}

// Status is a consistent view of the engine for observers.
type Status struct {
	State      State                          `json:"state"`
	Waiting    Waiting                        `json:"waiting"`
	Locator    mrl.Locator                    `json:"-"`
	Title      string                         `json:"title"`
	Position   float64                        `json:"position"`
	Duration   float64                        `json:"duration"`
	Volume     int                            `json:"volume"`
	Amplifier  int                            `json:"amplifier"`
	Muted      bool                           `json:"muted"`
	Tracks     [stream.Count]stream.TrackList `json:"tracks"`
	Frames     telemetry.FrameCounts          `json:"frames"`
	Cache      Cache                          `json:"cache"`
	AVSync     float64                        `json:"avsync"`
	Hwdec      Hwdec                          `json:"hwdec"`
	Chapters   int                            `json:"chapters"`
	Editions   int                            `json:"editions"`
	Snapshot   SnapshotKind                   `json:"snapshot"`
	Generation uint64                         `json:"generation"`
	// Dropped counts events discarded for belonging to a superseded load.
	Dropped uint64 `json:"dropped"`
	Err     error  `json:"-"`
}

// Name is the best known human title. Title holds the resolver's title when there was one,
// otherwise the backend's media title.
func (s Status) Name() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Locator.IsZero() {
		return ""
	}
	return s.Locator.Name()
}

// Progress is the played fraction, 0 when the duration is unknown.
func (s Status) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.Position / s.Duration
}
