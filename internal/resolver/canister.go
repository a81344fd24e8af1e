// Package resolver implements the two resolution chains at the heart of
// the gateway: the hostname-to-backend-id CanisterResolver and the
// ClientHello-to-certificate TLSResolver.
package resolver

import (
	"strings"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/fqdnutil"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

// Alias is a pre-bound "<name>.<serving_domain>" entry, one per
// (alias, serving domain) combination, built once at startup.
type Alias struct {
	FQDN      string
	BackendID principal.Principal
}

// Canister is the resolved result of a hostname lookup.
type Canister struct {
	BackendID       principal.Principal
	Domain          string
	Verify          bool
	ViaCustomDomain bool
}

// CanisterResolver resolves an inbound hostname to a backend id via,
// in order: alias match, canonical "<id>.<domain>"/"<id>.raw.<domain>"
// form, then the current certificate snapshot's custom-domain table.
//
// Grounded on original_source/src/routing/canister.rs; Open Question 3
// (alias vs custom-domain precedence) is resolved in favor of alias,
// per SPEC_FULL.md §4.5/§9.
type CanisterResolver struct {
	aliases []Alias
	domains map[string]bool
	store   *certs.Store
}

// NewCanisterResolver cross-joins every alias with every serving domain,
// matching original_source's CanisterResolver::new.
func NewCanisterResolver(aliasNames map[string]principal.Principal, servingDomains []string, store *certs.Store) *CanisterResolver {
	r := &CanisterResolver{domains: make(map[string]bool, len(servingDomains)), store: store}
	for _, d := range servingDomains {
		r.domains[d] = true
	}
	for name, id := range aliasNames {
		for _, d := range servingDomains {
			r.aliases = append(r.aliases, Alias{FQDN: name + "." + d, BackendID: id})
		}
	}
	return r
}

// Resolve runs the full resolution chain against a normalized hostname.
func (r *CanisterResolver) Resolve(host string) (Canister, bool) {
	if c, ok := r.resolveAlias(host); ok {
		return c, true
	}
	if c, ok := r.resolveDomain(host); ok {
		return c, true
	}
	if c, ok := r.resolveCustomDomain(host); ok {
		return c, true
	}
	return Canister{}, false
}

func (r *CanisterResolver) resolveAlias(host string) (Canister, bool) {
	for _, a := range r.aliases {
		if fqdnutil.IsSubdomainOf(host, a.FQDN) {
			return Canister{BackendID: a.BackendID, Domain: a.FQDN, Verify: true}, true
		}
	}
	return Canister{}, false
}

// resolveDomain implements the canonical-form parse: the first label's
// text after its last "--" is the backend-id candidate; a following
// "raw" label disables verification; the remaining labels must join to
// exactly one configured serving domain — nested subdomains of a
// serving domain are explicitly rejected (Open Question 1, decided
// strict: "aaaaa-aa.foo.ic0.app" does not resolve even when "ic0.app"
// is configured).
func (r *CanisterResolver) resolveDomain(host string) (Canister, bool) {
	labels := fqdnutil.SplitLabels(host)
	if len(labels) < 2 {
		return Canister{}, false
	}

	first := labels[0]
	idCandidate := first
	if idx := strings.LastIndex(first, "--"); idx >= 0 {
		idCandidate = first[idx+2:]
	}
	id, err := principal.Parse(idCandidate)
	if err != nil {
		return Canister{}, false
	}

	rest := labels[1:]
	verify := true
	if len(rest) > 0 && rest[0] == "raw" {
		verify = false
		rest = rest[1:]
	}

	domain := strings.Join(rest, ".")
	if !r.domains[domain] {
		return Canister{}, false
	}

	return Canister{BackendID: id, Domain: domain, Verify: verify}, true
}

func (r *CanisterResolver) resolveCustomDomain(host string) (Canister, bool) {
	id, ok := r.store.LookupCustomDomain(host)
	if !ok {
		return Canister{}, false
	}
	return Canister{BackendID: id, Domain: host, Verify: true, ViaCustomDomain: true}, true
}
