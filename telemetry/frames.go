// Package telemetry counts rendered frames and estimates playback speed.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"
)

// FrameCounts is a point-in-time view of the frame counters.
type FrameCounts struct {
	Drawn   uint64 `json:"drawn"`
	Dropped uint64 `json:"dropped"`
	Delayed uint64 `json:"delayed"`
	// FPS is the measured display rate, absent until enough frames were seen.
	FPS mo.Option[float64] `json:"fps"`
}

// Frames counts drawn, dropped and delayed frames. Counters only grow until Reset,
// which happens on reload and never on seek.
type Frames struct {
	drawn   atomic.Uint64
	dropped atomic.Uint64
	delayed atomic.Uint64

	mu      sync.Mutex
	measure *SpeedMeasure[uint64]
	now     func() time.Time
}

// NewFrames creates counters whose speed estimate needs minSamples frames and
// looks at most window frames back.
func NewFrames(minSamples, window int) *Frames {
	return &Frames{
		measure: NewSpeedMeasure[uint64](minSamples, window),
		now:     time.Now,
	}
}

// Drawn records a rendered frame.
func (f *Frames) Drawn() { f.AddDrawn(1) }

// AddDrawn records n rendered frames at once.
func (f *Frames) AddDrawn(n uint64) {
	if n == 0 {
		return
	}
	total := f.drawn.Add(n)

	f.mu.Lock()
	f.measure.Push(total, f.now())
	f.mu.Unlock()
}

// SetDrawn records the backend's absolute drawn count, for backends that report totals.
func (f *Frames) SetDrawn(total uint64) {
	for {
		cur := f.drawn.Load()
		if total <= cur {
			return
		}
		if f.drawn.CompareAndSwap(cur, total) {
			break
		}
	}

	f.mu.Lock()
	f.measure.Push(total, f.now())
	f.mu.Unlock()
}

// Dropped records a frame the backend skipped.
func (f *Frames) Dropped() { f.dropped.Add(1) }

// SetDropped records the backend's absolute dropped count.
func (f *Frames) SetDropped(total uint64) { raise(&f.dropped, total) }

// Delayed records a frame shown late.
func (f *Frames) Delayed() { f.delayed.Add(1) }

// SetDelayed records the backend's absolute delayed count.
func (f *Frames) SetDelayed(total uint64) { raise(&f.delayed, total) }

// Reset zeroes every counter and forgets the speed history.
func (f *Frames) Reset() {
	f.drawn.Store(0)
	f.dropped.Store(0)
	f.delayed.Store(0)

	f.mu.Lock()
	f.measure.Reset()
	f.mu.Unlock()
}

// Counts returns the current counters and speed estimate.
func (f *Frames) Counts() FrameCounts {
	f.mu.Lock()
	fps := f.measure.Get()
	f.mu.Unlock()

	return FrameCounts{
		Drawn:   f.drawn.Load(),
		Dropped: f.dropped.Load(),
		Delayed: f.delayed.Load(),
		FPS:     fps,
	}
}

func raise(counter *atomic.Uint64, total uint64) {
	for {
		cur := counter.Load()
		if total <= cur || counter.CompareAndSwap(cur, total) {
			return
		}
	}
}
