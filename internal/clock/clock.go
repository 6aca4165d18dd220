package clock

import (
	"sync"
	"time"
)

// Clock provides the current time. Services take it as a dependency so that
// expiry and daily bucketing can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the system time.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Mock is a Clock with controllable time for tests.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMock(t time.Time) *Mock {
	return &Mock{current: t}
}

func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
