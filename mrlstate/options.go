package mrlstate

import (
	"strconv"

	"github.com/playengine/playengine/stream"
)

// Option is one backend option derived from the state.
type Option struct {
	Key   string
	Value any
}

// BackendOptions renders the state as the options pushed to the backend on load and on sync.
func (s *State) BackendOptions(registry stream.Registry) []Option {
	opts := []Option{
		{"volume-max", 1000.0},
		{"volume", s.EffectiveVolume()},
		{"mute", s.Muted},
		{"audio-delay", float64(s.AudioSync) / 1000},
		{"speed", s.Speed},
		{"sub-delay", float64(s.Subtitle.Delay) / 1000},
		{"sub-scale", s.Subtitle.Scale},
		{"sub-pos", s.Subtitle.Position},
		{"sub-visibility", s.Subtitle.Visible},
		{"brightness", s.Video.Color.Brightness},
		{"contrast", s.Video.Color.Contrast},
		{"saturation", s.Video.Color.Saturation},
		{"gamma", s.Video.Color.Gamma},
		{"hue", s.Video.Color.Hue},
		{"deinterlace", string(s.Video.Deinterlace)},
		{"hwdec", s.Video.Hwdec},
		{"video-zoom", s.Video.Zoom},
		{"video-aspect-override", aspect(s.Video.Aspect)},
	}

	if s.Subtitle.Encoding != "" {
		opts = append(opts, Option{"sub-codepage", s.Subtitle.Encoding})
	}

	for _, t := range stream.Types() {
		d := registry.Get(t)
		opts = append(opts, Option{d.Property, selectionValue(*s.TrackList(t))})
	}

	return opts
}

func aspect(v float64) string {
	if v <= 0 {
		return "no"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// selectionValue maps a selection onto the backend track property: "auto" while tracks are
// still unknown, "no" for an explicit empty selection.
func selectionValue(list stream.TrackList) any {
	if list.Len() == 0 {
		return "auto"
	}
	track, ok := list.Selected().Get()
	if !ok {
		return "no"
	}
	if track.ID > 0 {
		return track.ID
	}
	return "auto"
}
