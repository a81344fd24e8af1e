package policy

import (
	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

// CheckMatch re-verifies that a backend id the dispatch layer is about
// to target still agrees with the one the hostname resolver produced,
// before any bytes are forwarded to it. A mismatch indicates a request
// attempting to address one canister while authenticated against
// another's domain.
func CheckMatch(resolved, dispatched principal.Principal) *errorcause.ErrorCause {
	if resolved != dispatched {
		return errorcause.New(errorcause.DomainCanisterMismatch, "resolved and dispatched backend id disagree")
	}
	return nil
}
