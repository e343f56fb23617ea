// Package history persists, per locator, the tracks the user picked and where playback stopped.
package history

import (
	"time"

	"github.com/metafates/gache"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// cacher provides an abstracted, disk-backed registry of playback records.
var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: filesystem.Gache,
	},
)

// Get returns every record, keyed by locator identity.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Find returns the record of a locator.
func Find(loc mrl.Locator) (mo.Option[*Entry], error) {
	saved, err := Get()
	if err != nil {
		return mo.None[*Entry](), err
	}
	entry, ok := saved[loc.Key()]
	if !ok {
		return mo.None[*Entry](), nil
	}
	return mo.Some(entry), nil
}

// LastSelection returns the track key last active for a stream type of a locator.
// Unreadable history counts as no history.
func LastSelection(loc mrl.Locator, t stream.Type) mo.Option[string] {
	entry, err := Find(loc)
	if err != nil {
		return mo.None[string]()
	}
	e, ok := entry.Get()
	if !ok {
		return mo.None[string]()
	}
	return e.Selection(t)
}

// Record saves the active selection of every stream type. Types without a selection
// forget what was stored for them.
func Record(loc mrl.Locator, title string, selections [stream.Count]mo.Option[string]) error {
	return update(loc, func(e *Entry) {
		if title != "" {
			e.Title = title
		}
		for _, t := range stream.Types() {
			if key, ok := selections[t].Get(); ok {
				e.Selections[t.String()] = key
			} else {
				delete(e.Selections, t.String())
			}
		}
	})
}

// RecordPosition saves where playback of a locator stopped, in seconds.
func RecordPosition(loc mrl.Locator, position, duration float64) error {
	return update(loc, func(e *Entry) {
		e.Position = position
		if duration > 0 {
			e.Duration = duration
		}
	})
}

// Position returns the resume position of a locator. Finished media resumes from the start.
func Position(loc mrl.Locator) mo.Option[float64] {
	entry, err := Find(loc)
	if err != nil {
		return mo.None[float64]()
	}
	e, ok := entry.Get()
	if !ok {
		return mo.None[float64]()
	}
	return e.ResumeAt()
}

// Remove permanently deletes the record of a locator.
func Remove(loc mrl.Locator) error {
	return RemoveKey(loc.Key())
}

// RemoveKey deletes a record by its stored key.
func RemoveKey(key string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, key)
	return cacher.Set(saved)
}

// Clear deletes every record.
func Clear() error {
	return cacher.Set(make(map[string]*Entry))
}

// Sorted returns records, most recently updated first.
func Sorted() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	sortByRecency(entries)
	return entries, nil
}

func update(loc mrl.Locator, fn func(*Entry)) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	entry, ok := saved[loc.Key()]
	if !ok {
		entry = newEntry(loc)
		saved[loc.Key()] = entry
	}
	if entry.Selections == nil {
		entry.Selections = make(map[string]string)
	}

	fn(entry)
	entry.Updated = now()

	return cacher.Set(saved)
}

var now = time.Now
