package ocsp

import (
	"testing"
)

func TestNewStaplerInMemory(t *testing.T) {
	s, err := NewStapler("")
	if err != nil {
		t.Fatalf("NewStapler: %v", err)
	}
	if s == nil {
		t.Fatalf("expected non-nil stapler")
	}
}

func TestStapleMissReturnsNilWithoutBlocking(t *testing.T) {
	s, err := NewStapler("")
	if err != nil {
		t.Fatalf("NewStapler: %v", err)
	}
	// A certificate with no OCSPServer entries can't be refreshed; Staple
	// must still return promptly with no staple rather than blocking.
	got := s.Staple(selfSignedNoOCSP(t), selfSignedNoOCSP(t))
	if got != nil {
		t.Fatalf("expected nil staple for cert with no OCSP responder, got %v", got)
	}
}
