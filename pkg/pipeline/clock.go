package pipeline

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// FrameClock schedules a callback for the next display frame.
type FrameClock interface {
	// RequestFrame schedules fn once and returns a function that cancels it
	// if it has not run yet.
	RequestFrame(fn func()) (cancel func())
}

// DefaultRefreshRate is the display rate used by DisplayClock.
const DefaultRefreshRate = 60

// DisplayClock is a timer-backed FrameClock.
type DisplayClock struct {
	clk      clock.Clock
	interval time.Duration
}

// NewDisplayClock returns a clock firing hz times per second.
func NewDisplayClock(hz float64) *DisplayClock {
	return newDisplayClock(hz, clock.New())
}

func newDisplayClock(hz float64, clk clock.Clock) *DisplayClock {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &DisplayClock{
		clk:      clk,
		interval: time.Duration(float64(time.Second) / hz),
	}
}

// Interval returns the frame period.
func (c *DisplayClock) Interval() time.Duration {
	return c.interval
}

func (c *DisplayClock) RequestFrame(fn func()) func() {
	t := c.clk.AfterFunc(c.interval, fn)
	return func() { t.Stop() }
}

// ManualClock runs callbacks only when stepped. Used in tests and for
// offline rendering.
type ManualClock struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]func()
	order   []int
}

// NewManualClock creates a stopped clock.
func NewManualClock() *ManualClock {
	return &ManualClock{pending: make(map[int]func())}
}

func (c *ManualClock) RequestFrame(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.pending[id] = fn
	c.order = append(c.order, id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, id)
	}
}

// Step runs every callback scheduled before the call and returns how many
// ran. Callbacks scheduled while stepping wait for the next Step.
func (c *ManualClock) Step() int {
	c.mu.Lock()
	order := c.order
	c.order = nil
	var due []func()
	for _, id := range order {
		if fn, ok := c.pending[id]; ok {
			due = append(due, fn)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

// Pending returns the number of scheduled callbacks.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
