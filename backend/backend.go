// Package backend defines the contract of the external decode and render engine.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by a backend after Close.
var ErrClosed = errors.New("backend closed")

// Kind tells property changes from events.
type Kind int

const (
	Property Kind = iota
	Event
)

func (k Kind) String() string {
	if k == Event {
		return "event"
	}
	return "property"
}

// Notification is one message from the backend.
type Notification struct {
	Kind Kind
	Name string
	// Value is the decoded JSON value of a property, nil when unavailable.
	Value any
	// Reason is set for end-file events.
	Reason EndReason
	// Err carries the backend's error string of an end-file with reason error.
	Err string
}

func (n Notification) String() string {
	if n.Kind == Event {
		if n.Reason != "" {
			return fmt.Sprintf("event %s (%s)", n.Name, n.Reason)
		}
		return "event " + n.Name
	}
	return fmt.Sprintf("property %s=%v", n.Name, n.Value)
}

// Backend is the decode and render engine driven by the playback engine.
// Notifications is closed once the backend is gone, for whatever reason.
type Backend interface {
	// SetOption sets a property without waiting for the outcome.
	SetOption(name string, value any) error
	// Command runs a command and waits for its result.
	Command(ctx context.Context, name string, args ...any) (any, error)
	// CommandAsync sends a command without waiting; failures are only logged.
	CommandAsync(name string, args ...any) error
	// Get reads a property.
	Get(ctx context.Context, name string) (any, error)
	// Observe subscribes to changes of a property.
	Observe(name string) error
	Notifications() <-chan Notification
	Close() error
}
