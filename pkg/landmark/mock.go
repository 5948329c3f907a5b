package landmark

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// Mock implements Detector for testing.
type Mock struct {
	// SendFunc is called when Send is invoked. Its result is delivered to
	// the registered callback unless it returns an error.
	SendFunc func(ctx context.Context, frame image.Image) (Result, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu       sync.Mutex
	callback ResultFunc
	closed   bool

	sends       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// NewMock returns a mock that reports the given face on every frame.
func NewMock(face *Set) *Mock {
	return &Mock{
		SendFunc: func(ctx context.Context, frame image.Image) (Result, error) {
			if face == nil {
				return Result{}, nil
			}
			return Result{Faces: []*Set{face}}, nil
		},
	}
}

// Factory returns a Factory that always yields m.
func (m *Mock) Factory() Factory {
	return func(ctx context.Context, cfg Config) (Detector, error) {
		return m, nil
	}
}

// OnResults records the callback.
func (m *Mock) OnResults(fn ResultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = fn
}

// Send calls SendFunc and forwards the result to the callback.
func (m *Mock) Send(ctx context.Context, frame image.Image) error {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	m.sends.Add(1)

	m.mu.Lock()
	closed := m.closed
	cb := m.callback
	fn := m.SendFunc
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if fn == nil {
		return nil
	}

	res, err := fn(ctx, frame)
	if err != nil {
		return err
	}
	if cb != nil {
		cb(res)
	}
	return nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Sends returns how many frames were submitted.
func (m *Mock) Sends() int64 {
	return m.sends.Load()
}

// MaxInFlight returns the highest number of concurrent Send calls observed.
func (m *Mock) MaxInFlight() int64 {
	return m.maxInFlight.Load()
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
