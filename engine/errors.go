package engine

import (
	"errors"
	"fmt"
)

var (
	ErrClosed      = errors.New("engine closed")
	ErrNotLoaded   = errors.New("nothing loaded")
	ErrUnknownType = errors.New("unknown stream type")
	// ErrBackendGone is reported when the backend stops sending notifications.
	ErrBackendGone = errors.New("backend terminated")
)

// CommandError is a failed backend command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("backend command %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// PlaybackError is the backend's report that the media could not be played.
type PlaybackError struct {
	Reason string
}

func (e *PlaybackError) Error() string {
	if e.Reason == "" {
		return "playback failed"
	}
	return "playback failed: " + e.Reason
}
