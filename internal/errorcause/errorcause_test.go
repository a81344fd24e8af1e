package errorcause

import (
	"net/http"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{UnableToReadBody, http.StatusRequestTimeout},
		{LoadShed, http.StatusTooManyRequests},
		{RequestTooLarge, http.StatusRequestEntityTooLarge},
		{Denylisted, http.StatusUnavailableForLegalReasons},
		{DomainCanisterMismatch, http.StatusForbidden},
		{AgentError, http.StatusInternalServerError},
		{BackendErrorDNS, http.StatusServiceUnavailable},
		{BackendErrorConnect, http.StatusServiceUnavailable},
		{BackendTimeout, http.StatusInternalServerError},
		{BackendTLSErrorOther, http.StatusServiceUnavailable},
		{BackendTLSErrorCert, http.StatusServiceUnavailable},
		{RateLimited, http.StatusTooManyRequests},
		{Other, http.StatusInternalServerError},
	}
	for _, c := range cases {
		e := New(c.kind, "")
		if got := e.StatusCode(); got != c.want {
			t.Errorf("%v: got status %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestStringRendering(t *testing.T) {
	if got := New(BackendTLSErrorCert, "").String(); got != "backend_tls_error_cert" {
		t.Errorf("got %q", got)
	}
	if got := RateLimitedBy("ip").String(); got != "rate_limited_ip" {
		t.Errorf("got %q", got)
	}
}

func TestDenylistedRendersHTML(t *testing.T) {
	e := New(Denylisted, "")
	body, ct := e.Body()
	if ct != "text/html; charset=utf-8" {
		t.Fatalf("expected HTML content type, got %q", ct)
	}
	if body == "" {
		t.Fatalf("expected non-empty HTML body")
	}
}

func TestOtherRendersPlainText(t *testing.T) {
	e := New(MalformedRequest, "bad host")
	body, ct := e.Body()
	if ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if body != "malformed_request: bad host\n" {
		t.Fatalf("unexpected body %q", body)
	}
}
