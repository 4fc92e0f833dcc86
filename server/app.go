// Package server exposes the GraphQL API over HTTP and owns the application
// lifecycle: the execution pipeline is built once, on first use, and shared by
// every request for the lifetime of the process.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	newsgraph "github.com/saulfrancisco-ruizacevedo/go-newsgraph"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/resolve"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

// ErrNotReady is returned by App.Init when the pipeline could not be built.
var ErrNotReady = errors.New("service not ready")

// State is a lifecycle state of an App.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Database is the graph database as seen by the server.
type Database interface {
	newsgraph.DBRunner
	Verify(ctx context.Context) error
	Close(ctx context.Context) error
}

// Components is the execution pipeline shared by all requests.
type Components struct {
	Schema   *schema.Schema
	Resolver *resolve.Resolver
	Graph    *newsgraph.GraphManager
	DB       Database
	// ArticleHops are the relationships the explorer expands from an article.
	ArticleHops []newsgraph.Hop
}

// Builder creates the pipeline. It runs at most once per App.
type Builder func(ctx context.Context) (*Components, error)

// App guards the one-time construction of the pipeline.
//
// The first Init call starts the build; concurrent and later callers wait for the
// same build. Ready and failed are terminal: a failed build is never retried and
// every later Init reports the same error.
type App struct {
	build         Builder
	log           logrus.FieldLogger
	onStateChange func(State)

	once       sync.Once
	done       chan struct{}
	state      atomic.Int32
	components *Components
	err        error
}

// NewApp creates an uninitialized App. onStateChange may be nil.
func NewApp(build Builder, log logrus.FieldLogger, onStateChange func(State)) *App {
	return &App{
		build:         build,
		log:           log,
		onStateChange: onStateChange,
		done:          make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	a.state.Store(int32(s))
	if a.onStateChange != nil {
		a.onStateChange(s)
	}
}

// Init returns the pipeline, building it on the first call. The build runs
// detached from ctx, so a caller giving up early does not abort it for others.
func (a *App) Init(ctx context.Context) (*Components, error) {
	a.once.Do(func() {
		a.setState(StateInitializing)
		buildCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(a.done)
			defer func() {
				if p := recover(); p != nil {
					a.err = fmt.Errorf("initialization panicked: %v", p)
					a.setState(StateFailed)
				}
			}()

			components, err := a.build(buildCtx)
			if err != nil {
				a.err = err
				a.log.WithError(err).Error("Failed to initialize the GraphQL pipeline")
				a.setState(StateFailed)
				return
			}
			a.components = components
			a.log.Info("GraphQL pipeline ready")
			a.setState(StateReady)
		}()
	})

	select {
	case <-a.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, a.err)
	}
	return a.components, nil
}

// Close releases the database driver once the pipeline is ready. It does not
// wait for a build in progress.
func (a *App) Close(ctx context.Context) error {
	if a.State() != StateReady {
		return nil
	}
	return a.components.DB.Close(ctx)
}
