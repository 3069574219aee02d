package clock

import "time"

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock returning a controllable time.
type Mock struct {
	T time.Time
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time { return m.T }

// Advance moves the mock's time forward by d.
func (m *Mock) Advance(d time.Duration) { m.T = m.T.Add(d) }
