package resolver

import (
	"crypto/tls"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/certs/ocsp"
)

// AlpnResolver is implemented by sub-resolvers consulted before the
// store-backed SNI lookup — currently only the ACME-ALPN challenge
// resolver.
type AlpnResolver interface {
	GetCertificate(info *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLSResolver implements crypto/tls's GetCertificate hook, chaining:
// registered ALPN resolvers (in registration order) first, then the
// certificate Store's SNI lookup, then an optional OCSP stapler pass.
//
// Grounded on original_source/src/tls/resolver.rs's AggregatingResolver.
type TLSResolver struct {
	AlpnResolvers []AlpnResolver
	Store         *certs.Store
	Stapler       *ocsp.Stapler
}

// NewTLSResolver builds a resolver over store with the given ALPN
// sub-resolvers (may be empty) and an optional stapler (may be nil).
func NewTLSResolver(store *certs.Store, alpn []AlpnResolver, stapler *ocsp.Stapler) *TLSResolver {
	return &TLSResolver{AlpnResolvers: alpn, Store: store, Stapler: stapler}
}

// GetCertificate is installed as tls.Config.GetCertificate.
func (t *TLSResolver) GetCertificate(info *tls.ClientHelloInfo) (*tls.Certificate, error) {
	for _, r := range t.AlpnResolvers {
		if cert, err := r.GetCertificate(info); cert != nil || err != nil {
			return cert, err
		}
	}

	rec, ok := t.Store.LookupSNI(info.ServerName)
	if !ok {
		return nil, nil
	}

	cert := rec.Key
	if t.Stapler != nil {
		t.attachStaple(&cert)
	}
	return &cert, nil
}

func (t *TLSResolver) attachStaple(cert *tls.Certificate) {
	leaf, issuer, ok := ocsp.LeafAndIssuer(cert)
	if !ok {
		return
	}
	if cert.Leaf == nil {
		cert.Leaf = leaf
	}
	if staple := t.Stapler.Staple(leaf, issuer); staple != nil {
		cert.OCSPStaple = staple
	}
}
