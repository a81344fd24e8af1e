// Package httpserver implements the gateway's plaintext and TLS HTTP
// servers and the middleware chain connecting request-id assignment,
// hostname resolution, and policy enforcement to backend dispatch.
//
// Grounded on core/http_server.go (plaintext server + gorilla/mux
// routing shape) and original_source/src/http/server.rs's connection
// accounting model.
package httpserver

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/resolver"
)

// Stats holds per-connection traffic counters.
type Stats struct {
	BytesIn  atomic.Uint64
	BytesOut atomic.Uint64
}

// ConnInfo is created once per accepted TCP connection and stored in
// the connection's base context so every request on that connection can
// reach it.
type ConnInfo struct {
	ID         uuid.UUID
	AcceptedAt time.Time
	LocalAddr  net.Addr
	RemoteAddr net.Addr
	Traffic    Stats
	ReqCount   atomic.Uint64
}

type connInfoKey struct{}
type requestContextKey struct{}

// WithConnInfo returns a context carrying ci, for use as an
// http.Server's ConnContext hook.
func WithConnInfo(ctx context.Context, ci *ConnInfo) context.Context {
	return context.WithValue(ctx, connInfoKey{}, ci)
}

// ConnInfoFrom retrieves the ConnInfo stored by WithConnInfo, if any.
func ConnInfoFrom(ctx context.Context) (*ConnInfo, bool) {
	ci, ok := ctx.Value(connInfoKey{}).(*ConnInfo)
	return ci, ok
}

// RequestContext is created at the start of request handling and
// threaded through the middleware chain via the request's context.
type RequestContext struct {
	RequestID uuid.UUID
	Conn      *ConnInfo
	Canister  *resolver.Canister
	Cause     *errorcause.ErrorCause
}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom retrieves the RequestContext attached by
// WithRequestContext, if any.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// NewConnInfo builds a ConnInfo for a freshly accepted connection.
func NewConnInfo(conn net.Conn) *ConnInfo {
	return &ConnInfo{
		ID:         uuid.Must(uuid.NewV7()),
		AcceptedAt: time.Now(),
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	}
}
