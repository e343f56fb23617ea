package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/mo"
	"golang.org/x/exp/slices"
)

// finishedRatio is how far into the media playback counts as finished.
const finishedRatio = 0.95

// Entry is the saved state of one locator.
type Entry struct {
	Locator string `json:"locator"`
	Title   string `json:"title"`
	// Selections maps a stream type name to the key of its last active track.
	Selections map[string]string `json:"selections"`
	Position   float64           `json:"position"`
	Duration   float64           `json:"duration"`
	Updated    time.Time         `json:"updated"`
}

func newEntry(loc mrl.Locator) *Entry {
	return &Entry{
		Locator:    loc.Key(),
		Title:      loc.Name(),
		Selections: make(map[string]string),
	}
}

// Selection returns the remembered track key of a stream type.
func (e *Entry) Selection(t stream.Type) mo.Option[string] {
	key, ok := e.Selections[t.String()]
	if !ok || key == "" {
		return mo.None[string]()
	}
	return mo.Some(key)
}

// ResumeAt is the position to resume from, absent at the very start or near the end.
func (e *Entry) ResumeAt() mo.Option[float64] {
	if e.Position <= 0 {
		return mo.None[float64]()
	}
	if e.Duration > 0 && e.Position >= e.Duration*finishedRatio {
		return mo.None[float64]()
	}
	return mo.Some(e.Position)
}

// Progress is the watched fraction, 0 when the duration is unknown.
func (e *Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return e.Position / e.Duration
}

func (e *Entry) String() string {
	var tracks []string
	for _, t := range stream.Types() {
		if key, ok := e.Selection(t).Get(); ok {
			tracks = append(tracks, t.String()+"="+key)
		}
	}
	return fmt.Sprintf("%s : %.0f%% [%s]", e.Title, e.Progress()*100, strings.Join(tracks, " "))
}

func sortByRecency(entries []*Entry) {
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := b.Updated.Compare(a.Updated); c != 0 {
			return c
		}
		return strings.Compare(a.Locator, b.Locator)
	})
}

// Store adapts the package functions to the playback engine's history contract.
type Store struct{}

func (Store) LastSelection(loc mrl.Locator, t stream.Type) mo.Option[string] {
	return LastSelection(loc, t)
}

func (Store) Record(loc mrl.Locator, title string, selections [stream.Count]mo.Option[string]) error {
	return Record(loc, title, selections)
}

func (Store) Position(loc mrl.Locator) mo.Option[float64] {
	return Position(loc)
}

func (Store) RecordPosition(loc mrl.Locator, position, duration float64) error {
	return RecordPosition(loc, position, duration)
}
