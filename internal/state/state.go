// Package state holds the single shared build state observed by the HTTP
// server and the dashboard.
//
// Transitions are Idle/Success/Failed -> Building -> Success|Failed. Every
// mutation goes through Store under one mutex and readers receive copies.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned for a transition the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid build state transition")

// Kind is the variant tag of a BuildState.
type Kind int

const (
	Idle Kind = iota
	Building
	Success
	Failed
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildState is the tagged build status. Duration, ArtifactSize and
// Fingerprint are meaningful for Success, Message for Failed.
type BuildState struct {
	Kind         Kind
	Duration     time.Duration
	ArtifactSize int64
	Fingerprint  string
	Message      string
}

// Tag is the wire token served by the build-status endpoint.
func (s BuildState) Tag() string {
	switch s.Kind {
	case Building:
		return "building"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	State          BuildState
	LastChanged    string
	LastSuccess    time.Time
	LastTransition time.Time
	Builds         uint64
}

// Store owns the build state.
type Store struct {
	mu             sync.Mutex
	state          BuildState
	lastChanged    string
	lastSuccess    time.Time
	lastTransition time.Time
	builds         uint64
	subscribers    map[chan struct{}]struct{}
	now            func() time.Time
}

// NewStore creates a store in the Idle state.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[chan struct{}]struct{}),
		now:         time.Now,
	}
}

func validTransition(from, to Kind) bool {
	switch to {
	case Building:
		return from != Building
	case Success, Failed:
		return from == Building
	default:
		return false
	}
}

// Set applies next if the transition from the current state is allowed.
func (s *Store) Set(next BuildState) error {
	s.mu.Lock()
	err := s.setLocked(next)
	s.mu.Unlock()

	if err == nil {
		s.notify()
	}
	return err
}

func (s *Store) setLocked(next BuildState) error {
	if !validTransition(s.state.Kind, next.Kind) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Kind, next.Kind)
	}

	now := s.now()
	s.state = next
	s.lastTransition = now
	switch next.Kind {
	case Building:
		s.builds++
	case Success:
		s.lastSuccess = now
	}
	return nil
}

// BeginBuild moves to Building and records changed when it is known.
func (s *Store) BeginBuild(changed string) error {
	s.mu.Lock()
	err := s.setLocked(BuildState{Kind: Building})
	if err == nil && changed != "" {
		s.lastChanged = changed
	}
	s.mu.Unlock()

	if err == nil {
		s.notify()
	}
	return err
}

// Finish commits the terminal state of the in-flight build.
func (s *Store) Finish(terminal BuildState) error {
	if terminal.Kind != Success && terminal.Kind != Failed {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, terminal.Kind)
	}
	return s.Set(terminal)
}

// NoteChange records path as the latest observed change without a transition.
func (s *Store) NoteChange(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	s.lastChanged = path
	s.mu.Unlock()
	s.notify()
}

// State returns a copy of the current build state.
func (s *Store) State() BuildState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of everything the store tracks.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:          s.state,
		LastChanged:    s.lastChanged,
		LastSuccess:    s.lastSuccess,
		LastTransition: s.lastTransition,
		Builds:         s.builds,
	}
}

// Subscribe returns a channel that receives a value after changes. Bursts
// coalesce into one pending value. The returned func releases the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
