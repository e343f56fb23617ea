package engine

import (
	"strings"

	"github.com/samber/lo"
)

// State is the playback state of the engine.
type State int

const (
	Stopped State = iota
	Loading
	Playing
	Paused
	// Error is terminal for the current load; only a new load leaves it.
	Error
)

var stateNames = []string{"stopped", "loading", "playing", "paused", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Loaded reports whether a media is open in the backend.
func (s State) Loaded() bool { return s == Playing || s == Paused }

// Waiting is the set of reasons playback is stalled. Each flag is set and cleared independently.
type Waiting uint16

const (
	WaitLoading Waiting = 1 << iota
	WaitBuffering
	WaitSearching
	WaitSeeking
	WaitSubtitleLoad
	WaitResolving
)

type waitingName struct {
	flag Waiting
	name string
}

var waitingNames = []waitingName{
	{WaitLoading, "loading"},
	{WaitBuffering, "buffering"},
	{WaitSearching, "searching"},
	{WaitSeeking, "seeking"},
	{WaitSubtitleLoad, "subtitle-load"},
	{WaitResolving, "resolving"},
}

// Has reports whether every flag of f is set.
func (w Waiting) Has(f Waiting) bool { return w&f == f }

// With returns w with f set or cleared.
func (w Waiting) With(f Waiting, set bool) Waiting {
	if set {
		return w | f
	}
	return w &^ f
}

// Stalled reports whether any reason is set.
func (w Waiting) Stalled() bool { return w != 0 }

func (w Waiting) String() string {
	if w == 0 {
		return "none"
	}
	names := lo.FilterMap(waitingNames, func(n waitingName, _ int) (string, bool) {
		return n.name, w.Has(n.flag)
	})
	return strings.Join(names, "|")
}

// SnapshotKind is the capture target of a snapshot request.
type SnapshotKind int

const (
	SnapshotNone SnapshotKind = iota
	SnapshotScreen
	SnapshotVideo
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotScreen:
		return "screen"
	case SnapshotVideo:
		return "video"
	default:
		return "none"
	}
}

// Hwdec is the hardware decoding activation state.
type Hwdec int

const (
	HwdecUnavailable Hwdec = iota
	HwdecDeactivated
	HwdecActivated
)

func (h Hwdec) String() string {
	switch h {
	case HwdecDeactivated:
		return "deactivated"
	case HwdecActivated:
		return "activated"
	default:
		return "unavailable"
	}
}
