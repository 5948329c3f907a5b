// Package session is the UI-facing controller over a pipeline engine. It
// tracks the selected filter and the last error for display, and notifies
// watchers when either changes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/media"
	"github.com/teslashibe/go-facefilter/pkg/pipeline"
)

// State is what a UI shows about the pipeline.
type State struct {
	IsReady      bool   `json:"is_ready"`
	IsProcessing bool   `json:"is_processing"`
	Error        string `json:"error,omitempty"`
	ActiveFilter string `json:"active_filter,omitempty"`
}

// Session drives one engine from filter ids.
type Session struct {
	engine  *pipeline.Engine
	catalog *filter.Catalog
	logger  *slog.Logger

	mu       sync.Mutex
	active   string
	lastErr  error
	watchers map[int]func(State)
	nextID   int
}

// New creates a session over engine and catalog.
func New(engine *pipeline.Engine, catalog *filter.Catalog, logger *slog.Logger) *Session {
	if logger == nil {
		logger = log.Component("session")
	}
	return &Session{
		engine:   engine,
		catalog:  catalog,
		logger:   logger,
		watchers: make(map[int]func(State)),
	}
}

// InitializePipeline binds the engine to the camera stream and returns the
// stream callers should publish.
func (s *Session) InitializePipeline(ctx context.Context, camera *media.Stream) (*media.Stream, error) {
	err := s.engine.Initialize(ctx, camera)
	s.setError(err)
	if err != nil {
		s.logger.Error("pipeline initialization failed", "error", err)
		return camera, err
	}
	return s.engine.FilteredStream(), nil
}

// SetFilter activates the catalog filter with the given id. An empty id
// removes the current filter.
func (s *Session) SetFilter(ctx context.Context, id string) error {
	if id == "" {
		s.engine.UnloadFilter()
		s.mu.Lock()
		s.active = ""
		s.lastErr = nil
		s.mu.Unlock()
		s.notify()
		return nil
	}

	f, err := s.catalog.Get(id)
	if err != nil {
		err = fmt.Errorf("set filter: %w", err)
		s.setError(err)
		return err
	}

	if err := s.engine.LoadFilter(ctx, f); err != nil {
		err = fmt.Errorf("set filter %s: %w", id, err)
		s.setError(err)
		return err
	}

	s.mu.Lock()
	s.active = id
	s.lastErr = nil
	s.mu.Unlock()
	s.logger.Info("filter selected", "filter", id)
	s.notify()
	return nil
}

// Stream returns the stream to publish right now.
func (s *Session) Stream() *media.Stream {
	return s.engine.FilteredStream()
}

// Engine returns the underlying engine.
func (s *Session) Engine() *pipeline.Engine {
	return s.engine
}

// Catalog returns the filter catalog.
func (s *Session) Catalog() *filter.Catalog {
	return s.catalog
}

// State returns the current UI state.
func (s *Session) State() State {
	s.mu.Lock()
	st := State{ActiveFilter: s.active}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	s.mu.Unlock()

	st.IsReady = s.engine.IsReady()
	st.IsProcessing = s.engine.IsActive()
	return st
}

// Watch registers fn to receive the state after every change. The returned
// function removes it.
func (s *Session) Watch(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// Close destroys the engine and clears the session state.
func (s *Session) Close() error {
	err := s.engine.Destroy()

	s.mu.Lock()
	s.active = ""
	s.lastErr = err
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	st := s.State()

	s.mu.Lock()
	fns := make([]func(State), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
