// Package stream describes the video, audio and subtitle streams of a playback session.
package stream

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Type is one of the stream kinds a session carries.
type Type int

const (
	Video Type = iota
	Audio
	Subtitle
	typeCount
)

// Types lists the stream types in the order they are processed on load.
func Types() []Type {
	return []Type{Audio, Video, Subtitle}
}

// Count is the number of stream types, for fixed-size per-type tables.
const Count = int(typeCount)

func (t Type) String() string {
	switch t {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	for _, t := range Types() {
		if t.String() == strings.ToLower(s) {
			return t, true
		}
	}
	return 0, false
}

// ExtClass groups file extensions by the stream type they carry.
type ExtClass int

const (
	VideoExt ExtClass = iota
	AudioExt
	SubtitleExt
)

var extensions = map[ExtClass][]string{
	VideoExt: {
		"3gp", "asf", "avi", "divx", "f4v", "flv", "m2ts", "m4v", "mkv", "mov", "mp4", "mpeg",
		"mpg", "mts", "ogm", "ogv", "rm", "rmvb", "ts", "vob", "webm", "wmv",
	},
	AudioExt: {
		"aac", "ac3", "aiff", "ape", "dts", "eac3", "flac", "m4a", "mka", "mp2", "mp3",
		"oga", "ogg", "opus", "tta", "wav", "wma", "wv",
	},
	SubtitleExt: {
		"ass", "idx", "smi", "srt", "ssa", "sub", "sup", "txt", "vtt",
	},
}

// Extensions returns the lowercase extensions, without dot, of a class.
func Extensions(class ExtClass) []string {
	return append([]string(nil), extensions[class]...)
}

// Matches reports whether a path carries an extension of the class.
func (c ExtClass) Matches(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ext != "" && lo.Contains(extensions[c], ext)
}

// Classify finds the class of a path from its extension.
func Classify(path string) (ExtClass, bool) {
	for _, class := range []ExtClass{VideoExt, AudioExt, SubtitleExt} {
		if class.Matches(path) {
			return class, true
		}
	}
	return 0, false
}
