// Package accesslog provides the gateway's access-log sink interface.
// The wire format and destination (e.g. an OLAP store) are out of scope
// per SPEC_FULL.md §1/§2; this package supplies the narrow interface
// plus a bounded-channel writer so internal/core and internal/tasks have
// something concrete to wire as a post-drain task.
package accesslog

import (
	"context"
	"time"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// Entry is one completed request's access-log record.
type Entry struct {
	Timestamp  time.Time
	RequestID  string
	Method     string
	Host       string
	Path       string
	StatusCode int
	Duration   time.Duration
	ErrorKind  string // "ok" on success
}

// Sink accepts completed-request entries for shipping to an external
// store. The concrete wire format is left to the caller's
// implementation; Sink only defines the narrow interface.
type Sink interface {
	Write(e Entry)
}

// ChannelSink buffers entries on a bounded channel and drains them on a
// background goroutine, dropping the oldest entry on overflow rather
// than blocking the request path. Registered with the task supervisor
// as a post-drain task so in-flight requests are still logged while the
// HTTP servers complete their own grace period.
type ChannelSink struct {
	ch      chan Entry
	dropped uint64
}

// NewChannelSink builds a ChannelSink with the given buffer capacity.
func NewChannelSink(capacity int) *ChannelSink {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ChannelSink{ch: make(chan Entry, capacity)}
}

// Write enqueues e, dropping the oldest buffered entry if the channel is
// full rather than blocking the caller.
func (s *ChannelSink) Write(e Entry) {
	select {
	case s.ch <- e:
	default:
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Name identifies this task to the supervisor.
func (s *ChannelSink) Name() string { return "accesslog_sink" }

// Run drains entries until ctx is cancelled and the channel empties.
func (s *ChannelSink) Run(ctx context.Context) error {
	for {
		select {
		case e := <-s.ch:
			gwlog.Debug("accesslog: %s %s %s -> %d (%s) [%s]", e.RequestID, e.Method, e.Host+e.Path, e.StatusCode, e.Duration, e.ErrorKind)
		case <-ctx.Done():
			// Drain whatever remains without blocking past this pass so
			// requests admitted right before shutdown are still logged.
			for {
				select {
				case e := <-s.ch:
					gwlog.Debug("accesslog: %s %s %s -> %d (%s) [%s]", e.RequestID, e.Method, e.Host+e.Path, e.StatusCode, e.Duration, e.ErrorKind)
				default:
					return nil
				}
			}
		}
	}
}
