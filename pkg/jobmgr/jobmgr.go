// Package jobmgr runs named background jobs with cancellation and in-memory
// tracking of what is running.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, log)
//	err := jm.StartAsync("cooldown-sweep", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//	defer jm.StopAll()
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrRunning    = errors.New("job is already running")
	ErrNotRunning = errors.New("job is not running")
)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	parent context.Context
	log    zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewManager creates a Manager whose jobs are cancelled when parent is.
func NewManager(parent context.Context, log zerolog.Logger) *Manager {
	return &Manager{
		parent: parent,
		log:    log.With().Str("component", "jobs").Logger(),
		jobs:   make(map[string]*job),
	}
}

// StartSync runs a job in the calling goroutine.
func (m *Manager) StartSync(name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(m.parent)
	defer cancel()

	m.log.Debug().Str("job", name).Msg("running")
	if err := runner(ctx); err != nil {
		m.log.Error().Err(err).Str("job", name).Msg("job failed")
		return err
	}
	m.log.Debug().Str("job", name).Msg("done")
	return nil
}

// StartAsync runs a job in its own goroutine. Names are unique among running
// jobs; a finished job is forgotten.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrRunning, name)
	}

	ctx, cancel := context.WithCancel(m.parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j

	go func() {
		defer close(j.done)
		defer cancel()

		m.log.Debug().Str("job", name).Msg("running")
		if err := runner(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Error().Err(err).Str("job", name).Msg("job failed")
		} else {
			m.log.Debug().Str("job", name).Msg("done")
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()

	return nil
}

// Stop cancels a running job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, name)
	}
	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every running job and waits for them.
func (m *Manager) StopAll() {
	for _, name := range m.List() {
		_ = m.Stop(name)
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of running jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return "Running jobs: " + strings.Join(active, ", ")
}
