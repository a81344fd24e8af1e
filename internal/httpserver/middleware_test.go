package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/principal"
	"github.com/boundarygw/ic-gateway/internal/resolver"
)

type fakeDispatcher struct {
	dispatched principal.Principal
}

func (f *fakeDispatcher) TargetID(canister resolver.Canister) principal.Principal {
	return f.dispatched
}

func (f *fakeDispatcher) Dispatch(w http.ResponseWriter, r *http.Request, canister resolver.Canister) *errorcause.ErrorCause {
	w.WriteHeader(http.StatusOK)
	return nil
}

func newChainForTest() *Chain {
	store := certs.NewStore()
	id, _ := principal.Parse("aaaaa-aa")
	_ = id
	r := resolver.NewCanisterResolver(map[string]principal.Principal{"identity": id}, []string{"ic0.app"}, store)
	return &Chain{Resolver: r}
}

func TestChainSetsRequestIDHeader(t *testing.T) {
	c := newChainForTest()
	req := httptest.NewRequest(http.MethodGet, "http://identity.ic0.app/", nil)
	rw := httptest.NewRecorder()

	c.ServeHTTP(rw, req)

	if rw.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected %s header to be set", RequestIDHeader)
	}
}

func TestChainUnknownHostReturnsUnknownDomain(t *testing.T) {
	c := newChainForTest()
	req := httptest.NewRequest(http.MethodGet, "http://nowhere.example.com/", nil)
	rw := httptest.NewRecorder()

	c.ServeHTTP(rw, req)

	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown domain, got %d", rw.Code)
	}
}

func TestChainResolvedRequestSucceeds(t *testing.T) {
	c := newChainForTest()
	req := httptest.NewRequest(http.MethodGet, "http://identity.ic0.app/", nil)
	rw := httptest.NewRecorder()

	c.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 for resolved request with no dispatcher, got %d", rw.Code)
	}
}

func TestChainDispatchMatchingIDsSucceeds(t *testing.T) {
	c := newChainForTest()
	id, _ := principal.Parse("aaaaa-aa")
	c.Dispatcher = &fakeDispatcher{dispatched: id}

	req := httptest.NewRequest(http.MethodGet, "http://identity.ic0.app/", nil)
	rw := httptest.NewRecorder()
	c.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 when dispatched id matches resolved id, got %d", rw.Code)
	}
}

func TestChainDispatchMismatchedIDsFails(t *testing.T) {
	c := newChainForTest()
	other, _ := principal.Parse("aaaaa-aa")
	// Append a byte so it becomes a different, but still valid-shaped, id.
	otherBytes := append([]byte(nil), other.Bytes()...)
	otherBytes = append(otherBytes, 0x01)
	mismatched, err := principal.FromBytes(otherBytes)
	if err != nil {
		t.Fatalf("build mismatched principal: %v", err)
	}
	c.Dispatcher = &fakeDispatcher{dispatched: mismatched}

	req := httptest.NewRequest(http.MethodGet, "http://identity.ic0.app/", nil)
	rw := httptest.NewRecorder()
	c.ServeHTTP(rw, req)

	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for resolved/dispatched id mismatch, got %d", rw.Code)
	}
}
