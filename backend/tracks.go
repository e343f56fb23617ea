package backend

import "github.com/playengine/playengine/stream"

// ParseTrackList decodes a track-list property value into per-type tracks.
// Entries of unknown type are ignored.
func ParseTrackList(value any) [stream.Count][]stream.Track {
	var out [stream.Count][]stream.Track

	items, ok := value.([]any)
	if !ok {
		return out
	}

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		t, ok := trackType(str(m["type"]))
		if !ok {
			continue
		}

		track := stream.Track{
			ID:       num(m["id"]),
			Codec:    str(m["codec"]),
			Lang:     str(m["lang"]),
			Title:    str(m["title"]),
			External: boolean(m["external"]),
			File:     str(m["external-filename"]),
			Default:  boolean(m["default"]),
		}
		out[t] = append(out[t], track)
	}
	return out
}

// SelectedIDs returns the backend id of the selected track per type, 0 for none.
func SelectedIDs(value any) [stream.Count]int {
	var out [stream.Count]int

	items, _ := value.([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok || !boolean(m["selected"]) {
			continue
		}
		if t, ok := trackType(str(m["type"])); ok {
			out[t] = num(m["id"])
		}
	}
	return out
}

func trackType(s string) (stream.Type, bool) {
	switch s {
	case "video":
		return stream.Video, true
	case "audio":
		return stream.Audio, true
	case "sub":
		return stream.Subtitle, true
	}
	return 0, false
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

// num accepts the float64 produced by JSON decoding as well as plain ints.
func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// Float reads a numeric property value.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Bool reads a boolean property value.
func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// String reads a string property value.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Count reads the length of a list property value such as chapter-list.
func Count(v any) int {
	items, _ := v.([]any)
	return len(items)
}
