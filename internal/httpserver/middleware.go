package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/boundarygw/ic-gateway/internal/accesslog"
	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/fqdnutil"
	"github.com/boundarygw/ic-gateway/internal/gwlog"
	"github.com/boundarygw/ic-gateway/internal/metrics"
	"github.com/boundarygw/ic-gateway/internal/policy"
	"github.com/boundarygw/ic-gateway/internal/principal"
	"github.com/boundarygw/ic-gateway/internal/ratelimit"
	"github.com/boundarygw/ic-gateway/internal/resolver"
)

const RequestIDHeader = "x-request-id"

// Dispatcher sends an admitted, resolved request to its backend. The
// wire protocol to the backend is out of scope per SPEC_FULL.md §1/§6;
// callers supply a concrete implementation.
//
// TargetID reports the backend id the dispatcher is about to forward
// to, without performing any I/O, so the chain can re-verify it still
// agrees with the resolver's own id (policy.CheckMatch) before any
// bytes reach the client — Dispatch itself writes the response
// synchronously and cannot be vetoed after the fact.
type Dispatcher interface {
	TargetID(canister resolver.Canister) principal.Principal
	Dispatch(w http.ResponseWriter, r *http.Request, canister resolver.Canister) *errorcause.ErrorCause
}

// Chain wires together the gateway's full request-admission pipeline:
// request-id assignment, authority extraction, hostname resolution,
// policy checks, rate limiting, and dispatch.
type Chain struct {
	Resolver     *resolver.CanisterResolver
	Denylist     *policy.Denylist
	PreIsolation *policy.PreIsolation
	RateLimiter  *ratelimit.Limiter
	Dispatcher   Dispatcher
	AccessLog    accesslog.Sink
}

// ServeHTTP implements the full middleware chain as a single handler.
func (c *Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := uuid.Must(uuid.NewV7())
	w.Header().Set(RequestIDHeader, reqID.String())
	r.Header.Set(RequestIDHeader, reqID.String())

	ci, _ := ConnInfoFrom(r.Context())
	rc := &RequestContext{RequestID: reqID, Conn: ci}
	if ci != nil {
		ci.ReqCount.Add(1)
	}
	r = r.WithContext(WithRequestContext(r.Context(), rc))

	cause := c.handle(w, r, rc)

	kind := "ok"
	status := http.StatusOK
	if cause != nil {
		rc.Cause = cause
		status = cause.StatusCode()
		kind = cause.String()
		gwlog.Warning("request %s: %s", reqID, cause.Error())
		cause.WriteResponse(w)
	}
	metrics.RequestHandled(kind)

	if c.AccessLog != nil {
		c.AccessLog.Write(accesslog.Entry{
			Timestamp:  start,
			RequestID:  reqID.String(),
			Method:     r.Method,
			Host:       r.Host,
			Path:       r.URL.Path,
			StatusCode: status,
			Duration:   time.Since(start),
			ErrorKind:  kind,
		})
	}
}

func (c *Chain) handle(w http.ResponseWriter, r *http.Request, rc *RequestContext) *errorcause.ErrorCause {
	authority, err := fqdnutil.ExtractAuthority(r)
	if err != nil {
		return errorcause.Wrap(errorcause.NoAuthority, "", err)
	}

	canister, ok := c.Resolver.Resolve(authority)
	if !ok {
		return errorcause.New(errorcause.UnknownDomain, authority)
	}
	rc.Canister = &canister

	if c.Denylist != nil {
		if cause := c.Denylist.Check(canister.BackendID); cause != nil {
			return cause
		}
	}

	if c.PreIsolation != nil {
		if cause := c.PreIsolation.Check(canister.BackendID, canister.ViaCustomDomain); cause != nil {
			return cause
		}
	}

	if c.RateLimiter != nil {
		if cause := c.RateLimiter.Allow(); cause != nil {
			return cause
		}
	}

	if c.Dispatcher != nil {
		target := c.Dispatcher.TargetID(canister)
		if cause := policy.CheckMatch(canister.BackendID, target); cause != nil {
			return cause
		}
		return c.Dispatcher.Dispatch(w, r, canister)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
