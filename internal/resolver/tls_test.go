package resolver

import (
	"crypto/tls"
	"testing"

	"github.com/boundarygw/ic-gateway/internal/certs"
)

type fakeAlpnResolver struct {
	matchProto string
	cert       *tls.Certificate
}

func (f *fakeAlpnResolver) GetCertificate(info *tls.ClientHelloInfo) (*tls.Certificate, error) {
	for _, p := range info.SupportedProtos {
		if p == f.matchProto {
			return f.cert, nil
		}
	}
	return nil, nil
}

func TestTLSResolverPrefersAlpnResolver(t *testing.T) {
	store := certs.NewStore()
	store.Publish([]certs.Record{{SAN: []string{"example.com"}, Key: tls.Certificate{}}})

	alpnCert := &tls.Certificate{}
	r := NewTLSResolver(store, []AlpnResolver{&fakeAlpnResolver{matchProto: "acme-tls/1", cert: alpnCert}}, nil)

	got, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com", SupportedProtos: []string{"acme-tls/1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != alpnCert {
		t.Fatalf("expected ALPN resolver's certificate to win")
	}
}

func TestTLSResolverFallsBackToStore(t *testing.T) {
	store := certs.NewStore()
	store.Publish([]certs.Record{{SAN: []string{"example.com"}, Key: tls.Certificate{}}})

	r := NewTLSResolver(store, nil, nil)
	got, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected store-backed match for example.com")
	}
}

func TestTLSResolverNoMatch(t *testing.T) {
	store := certs.NewStore()
	r := NewTLSResolver(store, nil, nil)
	got, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "unknown.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no certificate for unknown SNI")
	}
}
