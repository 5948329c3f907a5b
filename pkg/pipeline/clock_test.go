package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	var runs []string

	c.RequestFrame(func() { runs = append(runs, "a") })
	cancel := c.RequestFrame(func() { runs = append(runs, "b") })
	c.RequestFrame(func() {
		runs = append(runs, "c")
		c.RequestFrame(func() { runs = append(runs, "d") })
	})
	cancel()

	if n := c.Step(); n != 2 {
		t.Errorf("first Step: got %d callbacks, want 2", n)
	}
	if n := c.Step(); n != 1 {
		t.Errorf("second Step: got %d callbacks, want 1", n)
	}
	want := []string{"a", "c", "d"}
	if len(runs) != len(want) {
		t.Fatalf("runs: got %v, want %v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("runs[%d]: got %s, want %s", i, runs[i], want[i])
		}
	}
	if c.Pending() != 0 {
		t.Errorf("Pending: got %d, want 0", c.Pending())
	}
}

func TestDisplayClock(t *testing.T) {
	mock := clock.NewMock()
	c := newDisplayClock(0, mock)
	if got := c.Interval(); got != time.Second/60 {
		t.Errorf("Interval: got %v, want %v", got, time.Second/60)
	}

	done := make(chan struct{})
	c.RequestFrame(func() { close(done) })

	var cancelled atomic.Bool
	cancel := c.RequestFrame(func() { cancelled.Store(true) })
	cancel()

	mock.Add(c.Interval() / 2)
	select {
	case <-done:
		t.Fatal("callback ran before the frame interval elapsed")
	default:
	}

	mock.Add(c.Interval())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame callback never ran")
	}
	if cancelled.Load() {
		t.Error("cancelled callback ran")
	}
}

func TestDisplayClock_RealTime(t *testing.T) {
	c := NewDisplayClock(200)

	done := make(chan struct{})
	c.RequestFrame(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame callback never ran")
	}
}
