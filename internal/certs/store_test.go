package certs

import (
	"testing"

	"github.com/boundarygw/ic-gateway/internal/principal"
)

func TestStoreLookupSNIExactAndWildcard(t *testing.T) {
	s := NewStore()
	p, _ := principal.FromBytes([]byte{1})
	s.Publish([]Record{
		{SAN: []string{"ic0.app", "*.ic0.app"}},
		{SAN: []string{"custom.example.com"}, Custom: &CustomDomain{Hostname: "custom.example.com", BackendID: p}},
	})

	if _, ok := s.LookupSNI("ic0.app"); !ok {
		t.Fatalf("expected exact match for ic0.app")
	}
	if _, ok := s.LookupSNI("foo.ic0.app"); !ok {
		t.Fatalf("expected wildcard match for foo.ic0.app")
	}
	if _, ok := s.LookupSNI("unrelated.com"); ok {
		t.Fatalf("expected no match for unrelated.com")
	}

	id, ok := s.LookupCustomDomain("custom.example.com")
	if !ok || !id.Equal(p) {
		t.Fatalf("expected custom domain lookup to resolve to seeded principal")
	}
}

func TestCustomDomainWithoutCoveringSANIsNotPublished(t *testing.T) {
	s := NewStore()
	p, _ := principal.FromBytes([]byte{2})
	s.Publish([]Record{
		// SAN does not cover the declared custom-domain hostname.
		{SAN: []string{"unrelated.example.com"}, Custom: &CustomDomain{Hostname: "custom.example.com", BackendID: p}},
	})

	if _, ok := s.LookupCustomDomain("custom.example.com"); ok {
		t.Fatalf("expected custom-domain entry without a covering SAN to be dropped")
	}
}

func TestCustomDomainCoveredByWildcardSANIsPublished(t *testing.T) {
	s := NewStore()
	p, _ := principal.FromBytes([]byte{3})
	s.Publish([]Record{
		{SAN: []string{"*.example.com"}, Custom: &CustomDomain{Hostname: "custom.example.com", BackendID: p}},
	})

	id, ok := s.LookupCustomDomain("custom.example.com")
	if !ok || !id.Equal(p) {
		t.Fatalf("expected wildcard-covered custom domain to be published")
	}
}

func TestStoreEmptyByDefault(t *testing.T) {
	s := NewStore()
	if _, ok := s.LookupSNI("anything"); ok {
		t.Fatalf("expected empty store to have no matches")
	}
	if s.Snapshot().Count() != 0 {
		t.Fatalf("expected zero count on fresh store")
	}
}

func TestPublishReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Publish([]Record{{SAN: []string{"a.com"}}})
	if _, ok := s.LookupSNI("a.com"); !ok {
		t.Fatalf("expected a.com to resolve after first publish")
	}
	s.Publish([]Record{{SAN: []string{"b.com"}}})
	if _, ok := s.LookupSNI("a.com"); ok {
		t.Fatalf("expected a.com to no longer resolve after replacement publish")
	}
	if _, ok := s.LookupSNI("b.com"); !ok {
		t.Fatalf("expected b.com to resolve after replacement publish")
	}
}
