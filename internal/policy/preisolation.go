package policy

import (
	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

// PreIsolation blocks a request that was resolved via a custom domain
// when its backend id is in the statically-loaded pre-isolation set.
// Unlike Denylist, this set is loaded once at startup and never
// refreshed. Grounded on core/blacklist.go's file-format parsing.
type PreIsolation struct {
	ids map[principal.Principal]bool
}

// NewPreIsolation loads the pre-isolation set from path. An empty path
// yields an always-empty set.
func NewPreIsolation(path string) (*PreIsolation, error) {
	p := &PreIsolation{ids: map[principal.Principal]bool{}}
	if path == "" {
		return p, nil
	}
	ids, err := loadPrincipalFile(path)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.ids[id] = true
	}
	return p, nil
}

// Check returns a DomainCanisterMismatch ErrorCause when the backend was
// reached via a custom domain and is in the pre-isolation set.
func (p *PreIsolation) Check(id principal.Principal, viaCustomDomain bool) *errorcause.ErrorCause {
	if viaCustomDomain && p.ids[id] {
		return errorcause.New(errorcause.DomainCanisterMismatch, "canister is pre-isolation and may not be reached via a custom domain")
	}
	return nil
}
