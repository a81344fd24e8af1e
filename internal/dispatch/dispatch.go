// Package dispatch provides the gateway's backend-dispatch client. The
// wire protocol for talking to a resolved backend (the target platform's
// agent/HTTP-gateway protocol) is out of scope per SPEC_FULL.md §1/§6;
// this package supplies a minimal concrete default — a reverse proxy to
// a single configured upstream keyed only by the resolved backend id —
// so internal/core has something to wire as the middleware chain's
// Dispatcher.
package dispatch

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/boundarygw/ic-gateway/internal/dnsresolve"
	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/principal"
	"github.com/boundarygw/ic-gateway/internal/resolver"
)

// ReverseProxyDispatcher forwards every admitted request to a single
// upstream, stamping the resolved backend id onto a request header for
// the upstream to act on. Multi-backend routing/service discovery is
// out of scope per SPEC_FULL.md's leaf-interface boundary.
type ReverseProxyDispatcher struct {
	proxy *httputil.ReverseProxy
}

// NewReverseProxyDispatcher builds a dispatcher forwarding to upstream.
// When resolver is non-nil, outbound connections to upstream's host are
// resolved through it instead of the system resolver, so the dispatch
// path actually exercises internal/dnsresolve rather than leaving it an
// unreferenced leaf component.
func NewReverseProxyDispatcher(upstream *url.URL, resolver *dnsresolve.Resolver) *ReverseProxyDispatcher {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		errorcause.Infer(err).WriteResponse(w)
	}
	if resolver != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = dnsResolvingDialer(resolver)
		proxy.Transport = transport
	}
	return &ReverseProxyDispatcher{proxy: proxy}
}

// dnsResolvingDialer builds a net.Dialer.DialContext-compatible func
// that resolves the host through r before dialing, so the configured
// --dns-servers/--dns-protocol settings govern backend dispatch the
// same way they govern any other outbound lookup.
func dnsResolvingDialer(r *dnsresolve.Resolver) func(ctx context.Context, network, addr string) (net.Conn, error) {
	var dialer net.Dialer
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := r.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
	}
}

// TargetID implements httpserver.Dispatcher. This dispatcher has no
// path-based backend rewriting, so the id it targets is always the
// resolved canister's own id.
func (d *ReverseProxyDispatcher) TargetID(canister resolver.Canister) principal.Principal {
	return canister.BackendID
}

// Dispatch implements httpserver.Dispatcher.
func (d *ReverseProxyDispatcher) Dispatch(w http.ResponseWriter, r *http.Request, canister resolver.Canister) *errorcause.ErrorCause {
	r.Header.Set("x-ic-canister-id", canister.BackendID.String())
	if !canister.Verify {
		r.Header.Set("x-ic-skip-verify", "1")
	}
	d.proxy.ServeHTTP(w, r)
	return nil
}
