package gwconfig

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--domain", "ic0.app", "--cert-provider-dir", "/tmp/certs"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPClientTimeoutConnect.Seconds() != 5 {
		t.Errorf("unexpected connect timeout default: %v", cfg.HTTPClientTimeoutConnect)
	}
	if cfg.DNSProtocol != DNSTLS {
		t.Errorf("expected default DNS protocol tls, got %v", cfg.DNSProtocol)
	}
	if len(cfg.DNSServers) != 2 {
		t.Errorf("expected default DNS server pair, got %v", cfg.DNSServers)
	}
}

func TestParseRejectsEmptyDomainSet(t *testing.T) {
	_, err := Parse([]string{"--cert-provider-dir", "/tmp/certs"})
	if err == nil {
		t.Fatalf("expected error when no serving domain is configured")
	}
}

func TestParseRejectsMissingCertSource(t *testing.T) {
	_, err := Parse([]string{"--domain", "ic0.app"})
	if err == nil {
		t.Fatalf("expected error when no certificate source is configured")
	}
}

func TestParseAlias(t *testing.T) {
	cfg, err := Parse([]string{
		"--domain", "ic0.app",
		"--cert-provider-dir", "/tmp/certs",
		"--domain-alias", "identity:aaaaa-aa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CanisterAlias) != 1 || cfg.CanisterAlias[0].Alias != "identity" {
		t.Fatalf("unexpected aliases: %+v", cfg.CanisterAlias)
	}
}

func TestParseRejectsMalformedAlias(t *testing.T) {
	_, err := Parse([]string{
		"--domain", "ic0.app",
		"--cert-provider-dir", "/tmp/certs",
		"--domain-alias", "identity-without-delimiter",
	})
	if err == nil {
		t.Fatalf("expected error for malformed alias")
	}
}

func TestAllServingDomainsDedupes(t *testing.T) {
	cfg, err := Parse([]string{
		"--domain", "ic0.app",
		"--domain-system", "ic0.app",
		"--domain-app", "icp0.io",
		"--cert-provider-dir", "/tmp/certs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.AllServingDomains()
	if len(got) != 2 {
		t.Fatalf("expected 2 deduped domains, got %v", got)
	}
}
