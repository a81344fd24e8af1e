package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	started  int32
	finished int32
}

func (c *countingTask) Run(ctx context.Context) error {
	atomic.AddInt32(&c.started, 1)
	<-ctx.Done()
	atomic.AddInt32(&c.finished, 1)
	return nil
}

func TestSupervisorStartStop(t *testing.T) {
	s := NewSupervisor(time.Second)
	task := &countingTask{}
	s.Add("test", task)

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&task.started) != 1 {
		t.Fatalf("expected task to start")
	}

	s.Stop()
	if atomic.LoadInt32(&task.finished) != 1 {
		t.Fatalf("expected task to finish cleanly after Stop")
	}
}

func TestPostDrainRunsAfterForeground(t *testing.T) {
	s := NewSupervisor(time.Second)
	var fgStoppedAt, pdStartedAt, pdStoppedAt time.Time

	fg := runnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		fgStoppedAt = time.Now()
		return nil
	})
	pd := runnableFunc(func(ctx context.Context) error {
		pdStartedAt = time.Now()
		<-ctx.Done()
		pdStoppedAt = time.Now()
		return nil
	})

	s.Add("fg", fg)
	s.AddPostDrain("pd", pd)
	s.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	if !pdStartedAt.Before(fgStoppedAt) {
		t.Fatalf("expected post-drain task to be running while the foreground task ran")
	}
	if pdStoppedAt.Before(fgStoppedAt) {
		t.Fatalf("expected post-drain task to be cancelled only after foreground task stopped")
	}
}

type runnableFunc func(ctx context.Context) error

func (f runnableFunc) Run(ctx context.Context) error { return f(ctx) }
