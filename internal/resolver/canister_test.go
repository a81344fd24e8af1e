package resolver

import (
	"testing"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

func mustParse(t *testing.T, s string) principal.Principal {
	t.Helper()
	p, err := principal.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return p
}

func newTestResolver(t *testing.T) *CanisterResolver {
	store := certs.NewStore()
	p, _ := principal.Parse("aaaaa-aa")
	store.Publish([]certs.Record{
		{SAN: []string{"foo.baz"}, Custom: &certs.CustomDomain{Hostname: "foo.baz", BackendID: p}},
	})

	aliases := map[string]principal.Principal{
		"personhood": mustParse(t, "aaaaa-aa"),
		"identity":   mustParse(t, "aaaaa-aa"),
		"nns":        mustParse(t, "aaaaa-aa"),
	}
	domains := []string{"ic0.app", "icp0.io", "foo"}
	return NewCanisterResolver(aliases, domains, store)
}

func TestResolveAlias(t *testing.T) {
	r := newTestResolver(t)
	c, ok := r.Resolve("identity.ic0.app")
	if !ok {
		t.Fatalf("expected identity.ic0.app to resolve via alias")
	}
	if !c.Verify {
		t.Fatalf("alias match must set verify=true")
	}
}

func TestResolveCanonicalForm(t *testing.T) {
	r := newTestResolver(t)
	c, ok := r.Resolve("aaaaa-aa.ic0.app")
	if !ok || !c.Verify {
		t.Fatalf("expected aaaaa-aa.ic0.app to resolve with verify=true")
	}
}

func TestResolveCanonicalFormRaw(t *testing.T) {
	r := newTestResolver(t)
	c, ok := r.Resolve("aaaaa-aa.raw.ic0.app")
	if !ok {
		t.Fatalf("expected aaaaa-aa.raw.ic0.app to resolve")
	}
	if c.Verify {
		t.Fatalf("raw form must set verify=false")
	}
}

func TestResolveCanonicalFormRejectsNestedSubdomain(t *testing.T) {
	r := newTestResolver(t)
	if _, ok := r.Resolve("aaaaa-aa.foo.ic0.app"); ok {
		t.Fatalf("nested subdomain of a serving domain must not resolve (Open Question 1: strict)")
	}
}

func TestResolveCanonicalFormWithDashDashSplit(t *testing.T) {
	r := newTestResolver(t)
	c, ok := r.Resolve("something--aaaaa-aa.ic0.app")
	if !ok {
		t.Fatalf("expected a '--'-split label to resolve using its final segment")
	}
	if c.BackendID != mustParse(t, "aaaaa-aa") {
		t.Fatalf("expected backend id aaaaa-aa, got %v", c.BackendID)
	}
}

func TestResolveCustomDomain(t *testing.T) {
	r := newTestResolver(t)
	c, ok := r.Resolve("foo.baz")
	if !ok || !c.Verify {
		t.Fatalf("expected foo.baz to resolve via the custom-domain table")
	}
}

func TestResolveUnknownHostFails(t *testing.T) {
	r := newTestResolver(t)
	if _, ok := r.Resolve("nothing-here.example.com"); ok {
		t.Fatalf("expected unrelated hostname to not resolve")
	}
}

func TestAliasPrecedenceOverCustomDomain(t *testing.T) {
	// Open Question 3: when a hostname matches both an alias and a
	// custom domain, alias wins.
	store := certs.NewStore()
	aliasTarget := mustParse(t, "aaaaa-aa")
	other := func() principal.Principal {
		p, _ := principal.FromBytes([]byte{9, 9})
		return p
	}()
	store.Publish([]certs.Record{
		{SAN: []string{"identity.ic0.app"}, Custom: &certs.CustomDomain{Hostname: "identity.ic0.app", BackendID: other}},
	})
	r := NewCanisterResolver(map[string]principal.Principal{"identity": aliasTarget}, []string{"ic0.app"}, store)

	c, ok := r.Resolve("identity.ic0.app")
	if !ok {
		t.Fatalf("expected identity.ic0.app to resolve")
	}
	if c.BackendID != aliasTarget {
		t.Fatalf("expected alias to win over custom-domain table, got backend id %v", c.BackendID)
	}
}
