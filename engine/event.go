package engine

import (
	"fmt"

	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/mrlstate"
	"github.com/playengine/playengine/stream"
)

// Event is posted to the controller goroutine. The set of events is closed.
type Event interface {
	// Generation is the load the event belongs to.
	Generation() uint64
	fmt.Stringer
	event()
}

type tag struct{ Gen uint64 }

func (t tag) Generation() uint64 { return t.Gen }
func (tag) event()               {}

// StateChange moves the state machine. Posting the current state is a no-op.
type StateChange struct {
	tag
	To  State
	Err error
}

func (e StateChange) String() string {
	if e.Err != nil {
		return fmt.Sprintf("StateChange(%s: %v)", e.To, e.Err)
	}
	return fmt.Sprintf("StateChange(%s)", e.To)
}

// WaitingChange sets or clears one waiting reason.
type WaitingChange struct {
	tag
	Flag Waiting
	Set  bool
}

func (e WaitingChange) String() string {
	return fmt.Sprintf("WaitingChange(%s, %t)", e.Flag, e.Set)
}

// PreparePlayback opens a load: it carries the requested locator, the one the backend
// opens after resolution, and the initial session.
type PreparePlayback struct {
	tag
	Locator mrl.Locator
	Source  mrl.Locator
	Session *mrlstate.State
	Files   [stream.Count][]External
}

func (e PreparePlayback) String() string {
	return fmt.Sprintf("PreparePlayback(%s)", e.Locator.Name())
}

// External is a sibling file to add to the backend once the media is loaded.
type External struct {
	Path     string
	Encoding string
	Select   bool
}

// StartPlayback marks the media as loaded by the backend.
type StartPlayback struct {
	tag
}

func (StartPlayback) String() string { return "StartPlayback" }

// EndPlayback closes a load. With Unload the media and its session are forgotten too.
type EndPlayback struct {
	tag
	Reason backend.EndReason
	Unload bool
}

func (e EndPlayback) String() string { return fmt.Sprintf("EndPlayback(%s)", e.Reason) }

// NotifySeek updates the current time without changing state.
type NotifySeek struct {
	tag
	Position float64
}

func (e NotifySeek) String() string { return fmt.Sprintf("NotifySeek(%.3f)", e.Position) }

// SyncMrlState makes the backend goroutine re-snapshot and apply the session.
type SyncMrlState struct {
	tag
	Version uint64
}

func (e SyncMrlState) String() string { return fmt.Sprintf("SyncMrlState(v%d)", e.Version) }

// TracksChange reports the backend's track list. The controller merges it with the
// autoloaded files and the presentation's components.
type TracksChange struct {
	tag
	Tracks   [stream.Count][]stream.Track
	Selected [stream.Count]int
}

func (e TracksChange) String() string {
	return fmt.Sprintf("TracksChange(%d/%d/%d)",
		len(e.Tracks[stream.Video]), len(e.Tracks[stream.Audio]), len(e.Tracks[stream.Subtitle]))
}

// MediaChange reports a media property that only feeds the status.
type MediaChange struct {
	tag
	Name  string
	Value any
}

func (e MediaChange) String() string { return fmt.Sprintf("MediaChange(%s=%v)", e.Name, e.Value) }
