// Package gwconfig parses the gateway's CLI surface (flags, with an
// optional YAML overlay) and validates the result into a fully-resolved
// Config, matching the flat flag.* style of the teacher's main.go and
// the spf13/viper overlay pattern from its core/config.go.
package gwconfig

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/boundarygw/ic-gateway/internal/principal"
)

// CanisterAlias is a parsed "<alias>:<backend_id>" CLI argument.
type CanisterAlias struct {
	Alias     string
	BackendID principal.Principal
}

// ACMEChallenge selects how (if at all) the gateway performs ACME
// challenges for its own certificates.
type ACMEChallenge string

const (
	ACMENone ACMEChallenge = "none"
	ACMEAlpn ACMEChallenge = "alpn"
)

// DNSProtocol selects the outbound DNS transport.
type DNSProtocol string

const (
	DNSClear DNSProtocol = "clear"
	DNSTLS   DNSProtocol = "tls"
	DNSHTTPS DNSProtocol = "https"
)

// Config is the fully-parsed, validated gateway configuration.
type Config struct {
	// HTTP client
	HTTPClientTimeoutConnect      time.Duration
	HTTPClientTimeout             time.Duration
	HTTPClientTCPKeepalive        time.Duration
	HTTPClientHTTP2Keepalive      time.Duration
	HTTPClientHTTP2KeepaliveTimeo time.Duration

	// DNS
	DNSServers   []string
	DNSProtocol  DNSProtocol
	DNSTLSName   string
	DNSCacheSize int

	// HTTP server
	HTTPServerListenPlain          string
	HTTPServerListenTLS            string
	HTTPServerBacklog              int
	HTTPServerHTTP2MaxStreams      int
	HTTPServerHTTP2KeepaliveInterv time.Duration
	HTTPServerHTTP2KeepaliveTimeo  time.Duration
	HTTPServerGracePeriod          time.Duration

	// Certificates
	CertProviderDir       []string
	CertProviderIssuerURL []string
	CertPollInterval      time.Duration

	// Domains
	Domains       []string
	DomainsSystem []string
	DomainsApp    []string
	CanisterAlias []CanisterAlias

	// Policy
	PolicyPreIsolationCanisters string
	PolicyDenylistURL           string
	PolicyDenylistAllowlist     string
	PolicyDenylistSeed          string
	PolicyDenylistPollInterval  time.Duration

	// Dispatch
	BackendUpstreamURL string

	// Metrics
	MetricsListen string

	// Misc
	GeoIPDB string

	// ACME
	ACMEChallenge   ACMEChallenge
	ACMEStaging     bool
	ACMECachePath   string
	ACMEHTTP01Listn string

	// ConfigFile, if set, is a YAML overlay read before flags are
	// applied (flags always win on conflict).
	ConfigFile string
}

type stringSlice struct{ values *[]string }

func (s *stringSlice) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s *stringSlice) Set(v string) error {
	*s.values = append(*s.values, v)
	return nil
}

// Parse parses args (typically os.Args[1:]) into a validated Config.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("ic-gateway", flag.ContinueOnError)

	cfg := &Config{}

	fs.DurationVar(&cfg.HTTPClientTimeoutConnect, "http-client-timeout-connect", 5*time.Second, "outbound connect timeout")
	fs.DurationVar(&cfg.HTTPClientTimeout, "http-client-timeout", 60*time.Second, "outbound overall call timeout")
	fs.DurationVar(&cfg.HTTPClientTCPKeepalive, "http-client-tcp-keepalive", 15*time.Second, "outbound TCP keepalive")
	fs.DurationVar(&cfg.HTTPClientHTTP2Keepalive, "http-client-http2-keepalive", 10*time.Second, "outbound HTTP/2 keepalive interval")
	fs.DurationVar(&cfg.HTTPClientHTTP2KeepaliveTimeo, "http-client-http2-keepalive-timeout", 5*time.Second, "outbound HTTP/2 keepalive timeout")

	var dnsServers stringSlice
	dnsServers.values = &cfg.DNSServers
	fs.Var(&dnsServers, "dns-servers", "resolver IP (repeatable)")
	dnsProtocol := fs.String("dns-protocol", string(DNSTLS), "clear|tls|https")
	fs.StringVar(&cfg.DNSTLSName, "dns-tls-name", "cloudflare-dns.com", "TLS server name for DoT/DoH")
	fs.IntVar(&cfg.DNSCacheSize, "dns-cache-size", 2048, "resolver cache entry count")

	fs.StringVar(&cfg.HTTPServerListenPlain, "http-server-listen-plain", "[::1]:8080", "plaintext listen address")
	fs.StringVar(&cfg.HTTPServerListenTLS, "http-server-listen-tls", "[::1]:8443", "TLS listen address")
	fs.IntVar(&cfg.HTTPServerBacklog, "http-server-backlog", 2048, "listen backlog")
	fs.IntVar(&cfg.HTTPServerHTTP2MaxStreams, "http-server-http2-max-streams", 128, "HTTP/2 max concurrent streams")
	fs.DurationVar(&cfg.HTTPServerHTTP2KeepaliveInterv, "http-server-http2-keepalive-interval", 20*time.Second, "server HTTP/2 keepalive interval")
	fs.DurationVar(&cfg.HTTPServerHTTP2KeepaliveTimeo, "http-server-http2-keepalive-timeout", 10*time.Second, "server HTTP/2 keepalive timeout")
	fs.DurationVar(&cfg.HTTPServerGracePeriod, "http-server-grace-period", 10*time.Second, "graceful shutdown grace period")

	var certDirs, certIssuerURLs stringSlice
	certDirs.values = &cfg.CertProviderDir
	certIssuerURLs.values = &cfg.CertProviderIssuerURL
	fs.Var(&certDirs, "cert-provider-dir", "directory of PEM cert/key pairs (repeatable)")
	fs.Var(&certIssuerURLs, "cert-provider-issuer-url", "certificate issuer base URL (repeatable)")
	fs.DurationVar(&cfg.CertPollInterval, "cert-poll-interval", 10*time.Second, "certificate aggregator poll interval")

	var domains, domainsSystem, domainsApp, aliases stringSlice
	domains.values = &cfg.Domains
	domainsSystem.values = &cfg.DomainsSystem
	domainsApp.values = &cfg.DomainsApp
	var rawAliases []string
	aliases.values = &rawAliases
	fs.Var(&domains, "domain", "serving domain (repeatable)")
	fs.Var(&domainsSystem, "domain-system", "system-subnet serving domain (repeatable)")
	fs.Var(&domainsApp, "domain-app", "app-subnet serving domain (repeatable)")
	fs.Var(&aliases, "domain-alias", "alias:backend_id (repeatable)")

	fs.StringVar(&cfg.PolicyPreIsolationCanisters, "policy-pre-isolation-canisters", "", "path to pre-isolation canister id list")
	fs.StringVar(&cfg.PolicyDenylistURL, "policy-denylist-url", "", "denylist source URL")
	fs.StringVar(&cfg.PolicyDenylistAllowlist, "policy-denylist-allowlist", "", "path to denylist allowlist override")
	fs.StringVar(&cfg.PolicyDenylistSeed, "policy-denylist-seed", "", "path to denylist seed file")
	fs.DurationVar(&cfg.PolicyDenylistPollInterval, "policy-denylist-poll-interval", time.Minute, "denylist refresh interval")

	fs.StringVar(&cfg.BackendUpstreamURL, "backend-upstream-url", "", "backend dispatch upstream base URL")

	fs.StringVar(&cfg.MetricsListen, "metrics-listen", "", "optional metrics listen address")
	fs.StringVar(&cfg.GeoIPDB, "geoip-db", "", "optional GeoIP database path")

	acmeChallenge := fs.String("acme-challenge", string(ACMENone), "none|alpn")
	fs.BoolVar(&cfg.ACMEStaging, "acme-staging", false, "use the ACME staging directory")
	fs.StringVar(&cfg.ACMECachePath, "acme-cache-path", "", "ACME account/cert cache directory")
	fs.StringVar(&cfg.ACMEHTTP01Listn, "acme-http01-listen", "", "unused placeholder; HTTP-01 reuses the plaintext listener")

	fs.StringVar(&cfg.ConfigFile, "config", "", "optional YAML config overlay")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := applyYAMLOverlay(fs, cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("gwconfig: config overlay: %w", err)
		}
	}

	cfg.DNSProtocol = DNSProtocol(*dnsProtocol)
	cfg.ACMEChallenge = ACMEChallenge(*acmeChallenge)
	if len(cfg.DNSServers) == 0 {
		cfg.DNSServers = []string{"1.1.1.1", "1.0.0.1"}
	}

	for _, raw := range rawAliases {
		a, err := parseAlias(raw)
		if err != nil {
			return nil, fmt.Errorf("gwconfig: --domain-alias %q: %w", raw, err)
		}
		cfg.CanisterAlias = append(cfg.CanisterAlias, a)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyYAMLOverlay loads a YAML file via viper and fills in any flag
// that was not explicitly set on the command line. CLI flags always
// win over the overlay.
func applyYAMLOverlay(fs *flag.FlagSet, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for _, key := range v.AllKeys() {
		if explicit[key] {
			continue
		}
		if f := fs.Lookup(key); f != nil {
			_ = f.Value.Set(fmt.Sprintf("%v", v.Get(key)))
		}
	}
	return nil
}

func parseAlias(raw string) (CanisterAlias, error) {
	idx := strings.IndexByte(raw, ':')
	if idx <= 0 {
		return CanisterAlias{}, fmt.Errorf("expected \"<alias>:<backend_id>\"")
	}
	alias := raw[:idx]
	idStr := raw[idx+1:]
	if alias == "" || idStr == "" {
		return CanisterAlias{}, fmt.Errorf("alias and backend_id must both be non-empty")
	}
	id, err := principal.Parse(idStr)
	if err != nil {
		return CanisterAlias{}, fmt.Errorf("invalid backend_id: %w", err)
	}
	return CanisterAlias{Alias: alias, BackendID: id}, nil
}

func (c *Config) validate() error {
	allDomains := append(append(append([]string{}, c.Domains...), c.DomainsSystem...), c.DomainsApp...)
	if len(dedupe(allDomains)) == 0 {
		return fmt.Errorf("gwconfig: at least one of --domain, --domain-system, --domain-app is required")
	}

	for _, s := range c.DNSServers {
		if net.ParseIP(s) == nil {
			return fmt.Errorf("gwconfig: --dns-servers %q is not a valid IP", s)
		}
	}
	switch c.DNSProtocol {
	case DNSClear, DNSTLS, DNSHTTPS:
	default:
		return fmt.Errorf("gwconfig: --dns-protocol must be clear, tls, or https")
	}

	for _, u := range c.CertProviderIssuerURL {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("gwconfig: --cert-provider-issuer-url %q: %w", u, err)
		}
	}

	switch c.ACMEChallenge {
	case ACMENone:
	case ACMEAlpn:
		if c.ACMECachePath == "" {
			return fmt.Errorf("gwconfig: --acme-cache-path is required when --acme-challenge=alpn")
		}
	default:
		return fmt.Errorf("gwconfig: --acme-challenge must be none or alpn")
	}

	if len(c.CertProviderDir) == 0 && len(c.CertProviderIssuerURL) == 0 && c.ACMEChallenge == ACMENone {
		return fmt.Errorf("gwconfig: at least one certificate source (--cert-provider-dir, --cert-provider-issuer-url, or --acme-challenge=alpn) is required")
	}

	return nil
}

// AllServingDomains returns the deduplicated union of --domain,
// --domain-system, and --domain-app.
func (c *Config) AllServingDomains() []string {
	return dedupe(append(append(append([]string{}, c.Domains...), c.DomainsSystem...), c.DomainsApp...))
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ExitOnError prints err to stderr and exits with code 1 on error,
// matching the spec's configuration-error exit code.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
