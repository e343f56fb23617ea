package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Track is one selectable stream, either embedded in the media or loaded from a sibling file.
type Track struct {
	ID       int    `json:"id"`
	Codec    string `json:"codec,omitempty"`
	Lang     string `json:"lang,omitempty"`
	Title    string `json:"title,omitempty"`
	External bool   `json:"external"`
	File     string `json:"file,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

// KeyNone records that a stream type was deliberately left without an active track.
const KeyNone = "none"

// Key is the stable identity of a track, valid before the backend assigns an id to external files.
func (t Track) Key() string {
	if t.External && t.File != "" {
		return "file:" + t.File
	}
	return "#" + strconv.Itoa(t.ID)
}

// Label is the human readable name shown in track menus.
func (t Track) Label() string {
	var parts []string
	if t.Title != "" {
		parts = append(parts, t.Title)
	}
	if t.Lang != "" {
		parts = append(parts, "["+t.Lang+"]")
	}
	if t.Codec != "" {
		parts = append(parts, "("+t.Codec+")")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Track %d", t.ID)
	}
	return strings.Join(parts, " ")
}

// TrackList is the ordered track list of one stream type with its active selection.
// At most one track is active.
type TrackList struct {
	Tracks []Track           `json:"tracks"`
	Active mo.Option[string] `json:"active"`
}

// Clone copies the list so the result shares no memory with the receiver.
func (l TrackList) Clone() TrackList {
	return TrackList{
		Tracks: append([]Track(nil), l.Tracks...),
		Active: l.Active,
	}
}

func (l TrackList) Len() int { return len(l.Tracks) }

// Find looks a track up by key.
func (l TrackList) Find(key string) mo.Option[Track] {
	t, ok := lo.Find(l.Tracks, func(t Track) bool { return t.Key() == key })
	if !ok {
		return mo.None[Track]()
	}
	return mo.Some(t)
}

// FindID looks a track up by backend id.
func (l TrackList) FindID(id int) mo.Option[Track] {
	t, ok := lo.Find(l.Tracks, func(t Track) bool { return t.ID == id })
	if !ok {
		return mo.None[Track]()
	}
	return mo.Some(t)
}

// Selected returns the active track, if any.
func (l TrackList) Selected() mo.Option[Track] {
	key, ok := l.Active.Get()
	if !ok {
		return mo.None[Track]()
	}
	return l.Find(key)
}

// Select makes key the active track. Unknown keys are rejected.
func (l *TrackList) Select(key string) error {
	if l.Find(key).IsAbsent() {
		return fmt.Errorf("no track %s", key)
	}
	l.Active = mo.Some(key)
	return nil
}

// Deselect clears the active track.
func (l *TrackList) Deselect() {
	l.Active = mo.None[string]()
}

// Keys returns the track keys in list order.
func (l TrackList) Keys() []string {
	return lo.Map(l.Tracks, func(t Track, _ int) string { return t.Key() })
}

// Embedded returns the tracks reported inside the media itself.
func (l TrackList) Embedded() []Track {
	return lo.Filter(l.Tracks, func(t Track, _ int) bool { return !t.External })
}

// Replace swaps the tracks, keeping the selection only if it is still present.
func (l *TrackList) Replace(tracks []Track) {
	l.Tracks = tracks
	if key, ok := l.Active.Get(); ok && l.Find(key).IsAbsent() {
		l.Deselect()
	}
}
