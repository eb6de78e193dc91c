package fd

// monitor.go: statistics for the propagation loop and the trail

import (
	"fmt"
	"sync"
	"time"
)

// Stats holds statistics collected by a Monitor.
type Stats struct {
	// Level statistics
	LevelsRaised  int // SetLevel calls that raised the level
	LevelsRemoved int // levels undone by RemoveLevel
	MaxLevel      int // deepest level reached

	// Propagation statistics
	ConsistencyCalls int           // Store.Consistency invocations
	Propagations     int           // Constraint.Consistency invocations
	Failures         int           // consistency calls ending in failure
	PropagationTime  time.Duration // time spent in Store.Consistency
	PeakQueueSize    int           // largest number of pending constraints

	// Trail statistics
	SealedExplicit int // levels sealed as explicit lists
	SealedHoles    int // levels sealed as hole lists
	SealedFull     int // levels sealed as "everything changed"
	RestoredVars   int // RestoreVar calls issued by the trail
}

// Monitor collects statistics from one or more stores. It is safe for
// concurrent use, so stores running in parallel may share one. A nil
// *Monitor records nothing.
type Monitor struct {
	mu    sync.Mutex
	stats Stats
}

// NewMonitor creates a monitor with zeroed statistics.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Stats returns a copy of the current statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Reset zeroes the statistics.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}

func (m *Monitor) recordConsistency(elapsed time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.ConsistencyCalls++
	m.stats.PropagationTime += elapsed
	if !ok {
		m.stats.Failures++
	}
}

func (m *Monitor) recordPropagation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Propagations++
}

func (m *Monitor) recordQueueSize(size int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakQueueSize {
		m.stats.PeakQueueSize = size
	}
}

func (m *Monitor) recordRaise(level int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.LevelsRaised++
	if level > m.stats.MaxLevel {
		m.stats.MaxLevel = level
	}
}

func (m *Monitor) recordRemove(levels, restored int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.LevelsRemoved += levels
	m.stats.RestoredVars += restored
}

func (m *Monitor) recordSeal(mode TrailMode) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch mode {
	case TrailExplicit:
		m.stats.SealedExplicit++
	case TrailHoles:
		m.stats.SealedHoles++
	default:
		m.stats.SealedFull++
	}
}

// String returns a formatted summary of the statistics.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Propagation Statistics:\n"+
			"  Levels: %d raised, %d removed, max level %d\n"+
			"  Consistency: %d calls, %d propagations, %d failures, %v time, peak queue %d\n"+
			"  Trail: %d explicit, %d holes, %d full, %d restored, avg restored/level %.1f",
		s.LevelsRaised, s.LevelsRemoved, s.MaxLevel,
		s.ConsistencyCalls, s.Propagations, s.Failures, s.PropagationTime, s.PeakQueueSize,
		s.SealedExplicit, s.SealedHoles, s.SealedFull, s.RestoredVars, s.averageRestored(),
	)
}

// averageRestored is the mean number of restored variables per removed level.
func (s Stats) averageRestored() float64 {
	if s.LevelsRemoved == 0 {
		return 0
	}
	return float64(s.RestoredVars) / float64(s.LevelsRemoved)
}
