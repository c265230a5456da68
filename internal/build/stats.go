package build

import (
	"fmt"
	"sync"
	"time"
)

// Stats accumulates the outcomes of a dev session.
type Stats struct {
	mu        sync.RWMutex
	total     int64
	succeeded int64
	failed    int64
	duration  time.Duration
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Total         int64
	Succeeded     int64
	Failed        int64
	TotalDuration time.Duration
}

// NewStats creates an empty tracker.
func NewStats() *Stats {
	return &Stats{}
}

// Record adds one build outcome.
func (s *Stats) Record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.duration += o.Duration
	if o.Success {
		s.succeeded++
	} else {
		s.failed++
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Total:         s.total,
		Succeeded:     s.succeeded,
		Failed:        s.failed,
		TotalDuration: s.duration,
	}
}

// Reset clears every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.succeeded, s.failed, s.duration = 0, 0, 0, 0
}

// SuccessRate is the share of successful builds in percent.
func (s StatsSnapshot) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// AverageDuration is the mean build time.
func (s StatsSnapshot) AverageDuration() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Total)
}

func (s StatsSnapshot) String() string {
	if s.Total == 0 {
		return "no builds"
	}
	return fmt.Sprintf("%d/%d ok, avg %.1fs", s.Succeeded, s.Total, s.AverageDuration().Seconds())
}
