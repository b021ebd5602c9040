// Package clock lets components take time from an injected source so
// tests can pin "now" and fire waits deterministically.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// FakeClock stands still until Advance is called. Waits registered with
// After fire once the clock has been advanced past their deadline.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []fakeWaiter
	added   chan struct{}
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial, added: make(chan struct{}, 64)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}

	c.waiters = append(c.waiters, fakeWaiter{deadline: c.current.Add(d), ch: ch})
	select {
	case c.added <- struct{}{}:
	default:
	}
	return ch
}

// Advance moves the clock forward and fires every wait that is now due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)

	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.current) {
			w.ch <- c.current
			continue
		}
		pending = append(pending, w)
	}
	c.waiters = pending
}

// Pending reports how many waits have not fired yet.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Added is signalled each time a wait is registered.
func (c *FakeClock) Added() <-chan struct{} {
	return c.added
}
