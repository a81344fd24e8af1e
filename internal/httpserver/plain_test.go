package httpserver

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestPlainServerACMEChallenge(t *testing.T) {
	s := NewPlainServer("127.0.0.1:0")
	s.AddACMEToken("tok123", "tok123.keyauth")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/.well-known/acme-challenge/tok123", nil)
	s.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "tok123.keyauth" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestPlainServerACMEChallengeUnknownToken(t *testing.T) {
	s := NewPlainServer("127.0.0.1:0")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/.well-known/acme-challenge/nope", nil)
	s.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != 404 {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPlainServerClearACMETokens(t *testing.T) {
	s := NewPlainServer("127.0.0.1:0")
	s.AddACMEToken("tok123", "keyauth")
	s.ClearACMETokens()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/.well-known/acme-challenge/tok123", nil)
	s.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != 404 {
		t.Fatalf("expected 404 after clearing tokens, got %d", rr.Code)
	}
}

func TestPlainServerRedirect(t *testing.T) {
	s := NewPlainServer("127.0.0.1:0")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/some/path?q=1", nil)
	req.Host = "example.ic0.app"
	s.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != 308 {
		t.Fatalf("expected 308 permanent redirect, got %d", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if loc.Scheme != "https" || loc.Host != "example.ic0.app" || loc.Path != "/some/path" {
		t.Fatalf("unexpected redirect target: %s", loc.String())
	}
}
