package harvest

import "time"

// Stabilizer decides when streamed text has finished changing. Feed it
// every observation with its timestamp; it reports stable once the same
// nonempty text has been seen for the whole window.
type Stabilizer struct {
	window    time.Duration
	last      string
	changedAt time.Time
	seeded    bool
}

// NewStabilizer builds a stabilizer with the given quiet window.
func NewStabilizer(window time.Duration) *Stabilizer {
	return &Stabilizer{window: window}
}

// Observe records text as of now and reports whether it has been
// unchanged for the full window. Any change restarts the window.
func (s *Stabilizer) Observe(text string, now time.Time) bool {
	if !s.seeded || text != s.last {
		s.last = text
		s.changedAt = now
		s.seeded = true
		return false
	}
	if text == "" {
		return false
	}
	return now.Sub(s.changedAt) >= s.window
}

// Reset clears the stabilizer for a fresh candidate.
func (s *Stabilizer) Reset() {
	s.last = ""
	s.seeded = false
}
