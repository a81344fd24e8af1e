// Package certs implements the certificate data model, the wait-free
// copy-on-publish Store, and the Aggregator that polls registered
// providers and publishes all-or-nothing snapshots.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"

	"github.com/boundarygw/ic-gateway/internal/principal"
)

var (
	ErrNoSAN        = errors.New("certs: certificate has no usable subject alternative names")
	ErrNoCertInPEM  = errors.New("certs: no certificate found in PEM input")
	ErrBadKey       = errors.New("certs: failed to parse private key")
	ErrKeyCertMatch = errors.New("certs: private key does not match certificate")
)

// CustomDomain associates a hostname with the backend it should resolve
// to, distinct from the canonical "<id>.<domain>" form.
type CustomDomain struct {
	Hostname  string
	BackendID principal.Principal
}

// Record is one certificate as loaded from a provider: its SAN set, the
// parsed key+chain ready for TLS handshakes, and an optional custom
// domain binding.
type Record struct {
	SAN    []string
	Key    tls.Certificate
	Custom *CustomDomain
}

// ParsePEM builds a Record from a PEM-encoded private key and certificate
// chain sharing a stem (mirrors pem_convert_to_rustls): SANs are taken
// from the first certificate in the chain only, restricted to DNS names
// and 4/16-byte IP literals, and an empty SAN set is rejected. The
// CommonName is never consulted as a fallback.
func ParsePEM(keyPEM, chainPEM []byte) (*Record, error) {
	key, err := tls.X509KeyPair(chainPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("certs: parse key pair: %w", err)
	}

	block, _ := pem.Decode(chainPEM)
	if block == nil {
		return nil, ErrNoCertInPEM
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("certs: parse leaf certificate: %w", err)
	}

	san := extractSAN(leaf)
	if len(san) == 0 {
		return nil, ErrNoSAN
	}

	key.Leaf = leaf
	return &Record{SAN: san, Key: key}, nil
}

// extractSAN returns the DNS names and textual IP literals from a
// certificate's subjectAltName extension only — no CommonName fallback.
func extractSAN(cert *x509.Certificate) []string {
	san := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	san = append(san, cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		if v4 := ip.To4(); v4 != nil {
			san = append(san, v4.String())
			continue
		}
		if v6 := ip.To16(); v6 != nil {
			san = append(san, v6.String())
		}
	}
	return san
}

// matchesIP is a defensive helper retained for callers that need to
// confirm a SAN entry is an IP literal rather than a DNS name.
func matchesIP(s string) bool {
	return net.ParseIP(s) != nil
}
