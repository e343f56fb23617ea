package mrlstate

import (
	"sync"
	"sync/atomic"
)

// Freshness is the state of the backend goroutine's local copy.
type Freshness int32

const (
	// Stale means the authoritative state changed since the last clone.
	Stale Freshness = iota
	// Fresh means the local copy reflects every committed mutation.
	Fresh
)

func (f Freshness) String() string {
	if f == Fresh {
		return "fresh"
	}
	return "stale"
}

// Shared owns the authoritative State, mutated by the controlling goroutine, and a
// disposable local copy read by the backend goroutine.
//
// The lock is only held to apply a mutation or to clone; never across backend calls.
// The local copy is rebuilt wholesale on the first Snapshot after a mutation.
type Shared struct {
	mu      sync.Mutex
	state   *State
	version uint64

	freshness atomic.Int32
	clones    atomic.Uint64

	// local is only touched by the goroutine calling Snapshot.
	local *State
}

// NewShared wraps an initial state. The local copy starts stale.
func NewShared(initial *State) *Shared {
	if initial == nil {
		initial = New()
	}
	s := &Shared{state: initial}
	s.freshness.Store(int32(Stale))
	return s
}

// Mutate applies fn to the authoritative state and marks the local copy stale.
func (s *Shared) Mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.state)
	s.version++
	s.freshness.Store(int32(Stale))
}

// Reset replaces the authoritative state, as on a new load.
func (s *Shared) Reset(state *State) {
	s.Mutate(func(current *State) { *current = *state.Clone() })
}

// Read runs fn with the authoritative state under lock. fn must not retain the pointer.
func (s *Shared) Read(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Current returns a clone of the authoritative state.
func (s *Shared) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version counts committed mutations.
func (s *Shared) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Invalidate forces the next Snapshot to clone.
func (s *Shared) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshness.Store(int32(Stale))
}

// Freshness reports whether the local copy is current.
func (s *Shared) Freshness() Freshness {
	return Freshness(s.freshness.Load())
}

// Clones counts how many times the local copy was rebuilt.
func (s *Shared) Clones() uint64 {
	return s.clones.Load()
}

// Snapshot returns the backend goroutine's local copy, cloning it first if stale.
// Only one goroutine may call Snapshot; the result must be treated as read-only.
func (s *Shared) Snapshot() *State {
	if s.local != nil && s.Freshness() == Fresh {
		return s.local
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = s.state.Clone()
	s.clones.Add(1)
	s.freshness.Store(int32(Fresh))
	return s.local
}
