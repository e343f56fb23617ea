package autoload

import (
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Select picks the default track key of an inclusive list. A remembered selection still
// present in the list wins; otherwise the highest ranked eligible track; otherwise none.
// A remembered stream.KeyNone keeps the type unselected when AllowNone is set.
//
// With AllowNone, embedded tracks are only eligible when flagged default. External
// tracks are only eligible when the autoloader may select them.
func Select(tracks []stream.Track, remembered mo.Option[string], opts Options) mo.Option[string] {
	if key, ok := remembered.Get(); ok {
		if key == stream.KeyNone && opts.AllowNone {
			return mo.None[string]()
		}
		if lo.ContainsBy(tracks, func(t stream.Track) bool { return t.Key() == key }) {
			return mo.Some(key)
		}
	}

	eligible := func(t stream.Track) bool {
		if t.External {
			return opts.Select
		}
		return !opts.AllowNone || t.Default
	}

	if t, ok := lo.Find(tracks, eligible); ok {
		return mo.Some(t.Key())
	}
	return mo.None[string]()
}

// Result is the outcome of planning a load.
type Result struct {
	// Lists holds the inclusive track list and default selection per stream type.
	Lists [stream.Count]stream.TrackList
	// Files are the external candidates to hand to the backend, per stream type.
	Files [stream.Count][]Candidate
}

// Selected returns the external file chosen for a type, if the selection is one.
func (r Result) Selected(t stream.Type) mo.Option[Candidate] {
	key, ok := r.Lists[t].Active.Get()
	if !ok {
		return mo.None[Candidate]()
	}
	c, ok := lo.Find(r.Files[t], func(c Candidate) bool { return c.Track().Key() == key })
	if !ok {
		return mo.None[Candidate]()
	}
	return mo.Some(c)
}

// Remembered looks up the previous selection of a stream type.
type Remembered func(stream.Type) mo.Option[string]

// Plan runs discovery, merge and selection for every stream type. loaders may hold nil
// entries for types that never autoload. A failed directory listing only empties that
// type's candidates.
func Plan(loaders [stream.Count]*Autoloader, loc mrl.Locator, reported [stream.Count][]stream.Track, remembered Remembered) Result {
	var result Result

	for _, t := range stream.Types() {
		loader := loaders[t]

		var (
			candidates []Candidate
			opts       Options
			priority   []string
		)
		if loader != nil {
			opts = loader.Options()
			priority = loader.Descriptor().Priority

			var err error
			if candidates, err = loader.Candidates(loc); err != nil {
				logFailure(t, loc, err)
			}
		} else {
			opts = Options{AllowNone: t == stream.Subtitle}
		}

		prev := mo.None[string]()
		if remembered != nil {
			prev = remembered(t)
		}

		tracks := Merge(reported[t], candidates, priority)
		result.Lists[t] = stream.TrackList{
			Tracks: tracks,
			Active: Select(tracks, prev, opts),
		}
		result.Files[t] = candidates
	}

	return result
}
