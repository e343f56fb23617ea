// Package mrlstate holds the mutable session configuration of a playback session
// and the synchronization that lets the backend goroutine read it.
package mrlstate

import (
	"github.com/playengine/playengine/stream"
	"github.com/samber/lo"
)

// VideoColor holds color adjustments, each in [-100, 100].
type VideoColor struct {
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
	Saturation int `json:"saturation"`
	Gamma      int `json:"gamma"`
	Hue        int `json:"hue"`
}

// Clamp limits every component to [-100, 100].
func (c VideoColor) Clamp() VideoColor {
	clamp := func(v int) int { return lo.Clamp(v, -100, 100) }
	return VideoColor{
		Brightness: clamp(c.Brightness),
		Contrast:   clamp(c.Contrast),
		Saturation: clamp(c.Saturation),
		Gamma:      clamp(c.Gamma),
		Hue:        clamp(c.Hue),
	}
}

// Deinterlace is the deinterlacing policy.
type Deinterlace string

const (
	DeintAuto Deinterlace = "auto"
	DeintOn   Deinterlace = "yes"
	DeintOff  Deinterlace = "no"
)

// Subtitle holds subtitle presentation parameters.
type Subtitle struct {
	Delay    int     `json:"delay_ms"`
	Scale    float64 `json:"scale"`
	Position int     `json:"position"`
	Visible  bool    `json:"visible"`
	Encoding string  `json:"encoding,omitempty"`
}

// Video holds video processing parameters.
type Video struct {
	Color       VideoColor  `json:"color"`
	Deinterlace Deinterlace `json:"deinterlace"`
	Aspect      float64     `json:"aspect"`
	Crop        float64     `json:"crop"`
	Zoom        float64     `json:"zoom"`
	Hwdec       string      `json:"hwdec"`
}

// State is the session configuration of the current locator.
type State struct {
	Title     string  `json:"title"`
	Volume    int     `json:"volume"`
	Amplifier int     `json:"amplifier"`
	Muted     bool    `json:"muted"`
	AudioSync int     `json:"audio_sync_ms"`
	Speed     float64 `json:"speed"`
	// Start is the position, in seconds, playback begins at; negative for the beginning.
	Start float64 `json:"start"`

	Tracks [stream.Count]stream.TrackList `json:"tracks"`
	// SubTracksInclusive merges embedded subtitles with components the presentation reports.
	SubTracksInclusive stream.TrackList `json:"sub_tracks_inclusive"`

	Subtitle Subtitle `json:"subtitle"`
	Video    Video    `json:"video"`
}

// New returns a State with neutral defaults.
func New() *State {
	return &State{
		Volume:    100,
		Amplifier: 100,
		Speed:     1,
		Start:     -1,
		Subtitle:  Subtitle{Scale: 1, Position: 100, Visible: true},
		Video:     Video{Deinterlace: DeintAuto, Zoom: 0, Hwdec: "no"},
	}
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	c := *s
	for i := range s.Tracks {
		c.Tracks[i] = s.Tracks[i].Clone()
	}
	c.SubTracksInclusive = s.SubTracksInclusive.Clone()
	return &c
}

// TrackList returns the list of one stream type. For subtitles that is the inclusive list.
func (s *State) TrackList(t stream.Type) *stream.TrackList {
	if t == stream.Subtitle {
		return &s.SubTracksInclusive
	}
	return &s.Tracks[t]
}

// SetVolume clamps and stores the volume.
func (s *State) SetVolume(v int) { s.Volume = lo.Clamp(v, 0, 100) }

// SetAmplifier clamps and stores the amplifier.
func (s *State) SetAmplifier(v int) { s.Amplifier = lo.Clamp(v, 10, 1000) }

// EffectiveVolume is the backend volume: volume scaled by the amplifier, 100 being unity.
func (s *State) EffectiveVolume() float64 {
	return float64(s.Volume*s.Amplifier) / 100
}
