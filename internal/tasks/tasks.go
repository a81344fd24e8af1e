// Package tasks implements the gateway's task supervisor: a registry of
// long-lived goroutines started together and stopped together, with a
// bounded grace period and a distinct "post-drain" group for sinks that
// must keep running until the foreground group has fully stopped (e.g.
// the access-log sink draining in-flight requests after the HTTP
// servers themselves have stopped accepting).
//
// Grounded on original_source/src/core.rs's TaskManager usage,
// generalized from a single hierarchical CancellationToken into Go's
// context.Context + errgroup idiom.
package tasks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// Runnable is a supervised long-lived task: it must return promptly
// once its context is cancelled.
type Runnable interface {
	Run(ctx context.Context) error
}

type entry struct {
	name string
	task Runnable
}

// Supervisor owns the lifecycle of every registered task.
type Supervisor struct {
	GracePeriod time.Duration

	mu         sync.Mutex
	foreground []entry
	postDrain  []entry

	cancel context.CancelFunc
	fgDone chan struct{}
	pdDone chan struct{}
}

// NewSupervisor builds a Supervisor with the given grace period for
// Stop.
func NewSupervisor(gracePeriod time.Duration) *Supervisor {
	if gracePeriod <= 0 {
		gracePeriod = 10 * time.Second
	}
	return &Supervisor{GracePeriod: gracePeriod}
}

// Add registers a foreground task, started and stopped together with
// every other foreground task.
func (s *Supervisor) Add(name string, task Runnable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foreground = append(s.foreground, entry{name: name, task: task})
}

// AddPostDrain registers a task that is only cancelled and joined after
// every foreground task has returned.
func (s *Supervisor) AddPostDrain(name string, task Runnable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postDrain = append(s.postDrain, entry{name: name, task: task})
}

// Start launches every registered task as a goroutine derived from ctx.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	fg := append([]entry(nil), s.foreground...)
	pd := append([]entry(nil), s.postDrain...)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.fgDone = make(chan struct{})
	go func() {
		defer close(s.fgDone)
		g, gctx := errgroup.WithContext(runCtx)
		for _, e := range fg {
			e := e
			g.Go(func() error {
				err := e.task.Run(gctx)
				if err != nil {
					gwlog.Error("task %s: %v", e.name, err)
				}
				return err
			})
		}
		_ = g.Wait()
	}()

	s.pdDone = make(chan struct{})
	go func() {
		defer close(s.pdDone)
		pdCtx, pdCancel := context.WithCancel(context.Background())
		defer pdCancel()
		g, gctx := errgroup.WithContext(pdCtx)
		for _, e := range pd {
			e := e
			g.Go(func() error {
				err := e.task.Run(gctx)
				if err != nil {
					gwlog.Error("post-drain task %s: %v", e.name, err)
				}
				return err
			})
		}
		go func() {
			<-s.fgDone
			pdCancel()
		}()
		_ = g.Wait()
	}()
}

// Stop cancels every foreground task, waits up to GracePeriod for them
// to return (logging and detaching any straggler), then waits up to
// GracePeriod for the post-drain tasks, which are cancelled once the
// foreground group has returned, to finish their drain.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()

	select {
	case <-s.fgDone:
	case <-time.After(s.GracePeriod):
		gwlog.Warning("task supervisor: grace period elapsed, detaching straggling foreground task(s)")
	}

	select {
	case <-s.pdDone:
	case <-time.After(s.GracePeriod):
		gwlog.Warning("task supervisor: grace period elapsed, detaching straggling post-drain task(s)")
	}
}
