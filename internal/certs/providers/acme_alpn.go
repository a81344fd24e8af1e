package providers

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/caddyserver/certmagic"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// ACMEAlpn is the gateway's own TLS-ALPN-01 ACME challenge resolver: a
// long-lived task wrapping a certmagic.Config whose sole duty is
// answering the "acme-tls/1" ALPN challenge for the gateway's own
// serving domains. It never contributes records to the certificate
// aggregator — it is consulted directly by the TLS resolver chain.
//
// Grounded on core/certdb.go's certmagic.NewDefault()/ManageSync usage,
// narrowed to ALPN-challenge duty only per SPEC_FULL.md §4.1.
type ACMEAlpn struct {
	Config  *certmagic.Config
	Domains []string
}

// NewACMEAlpn builds an ACME-ALPN resolver for the given domains,
// caching issued certificates/account state under cacheDir. Mirrors the
// teacher's own certmagic usage (core/certdb.go: DefaultACME.Agreed/
// Email, then NewDefault()).
func NewACMEAlpn(domains []string, cacheDir string, staging bool, email string) (*ACMEAlpn, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("certs/providers: ACME cache path is required")
	}
	if err := os.Setenv("XDG_DATA_HOME", cacheDir); err != nil {
		return nil, fmt.Errorf("certs/providers: set cache dir: %w", err)
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = email
	if staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	} else {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptProductionCA
	}

	magic := certmagic.NewDefault()
	if err := magic.ManageSync(context.Background(), domains); err != nil {
		return nil, fmt.Errorf("certs/providers: ACME manage: %w", err)
	}

	return &ACMEAlpn{Config: magic, Domains: domains}, nil
}

// Name identifies this task to the supervisor.
func (a *ACMEAlpn) Name() string { return "acme_alpn" }

// Run blocks until ctx is cancelled. certmagic's own managed-certificate
// renewal runs on its internal timers once ManageSync has been called;
// this task's job is to hold the task-supervisor slot open for the
// resolver's lifetime and shut down cleanly on cancellation.
func (a *ACMEAlpn) Run(ctx context.Context) error {
	gwlog.Info("acme-alpn: managing %d domain(s)", len(a.Domains))
	<-ctx.Done()
	return nil
}

// GetCertificate implements the ClientHello-first leg of the TLS
// resolver chain (SPEC_FULL.md §4.4 step 1): it only ever matches
// handshakes carrying the "acme-tls/1" ALPN protocol.
func (a *ACMEAlpn) GetCertificate(info *tls.ClientHelloInfo) (*tls.Certificate, error) {
	for _, proto := range info.SupportedProtos {
		if proto == "acme-tls/1" {
			return a.Config.GetCertificate(info)
		}
	}
	return nil, nil
}
