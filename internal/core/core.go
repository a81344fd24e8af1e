// Package core wires every component into a running gateway process:
// validate configuration, build the certificate pipeline, the hostname
// and TLS resolvers, the policy middlewares, the task supervisor, and
// the HTTP/HTTPS servers; start everything; block until cancellation;
// drain.
//
// Grounded directly on original_source/src/core.rs, including its
// ordering guarantee that post-drain sinks (the access-log sink here)
// stop only after the HTTP servers have themselves stopped accepting.
package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/boundarygw/ic-gateway/internal/accesslog"
	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/certs/ocsp"
	"github.com/boundarygw/ic-gateway/internal/certs/providers"
	"github.com/boundarygw/ic-gateway/internal/dispatch"
	"github.com/boundarygw/ic-gateway/internal/dnsresolve"
	"github.com/boundarygw/ic-gateway/internal/gwconfig"
	"github.com/boundarygw/ic-gateway/internal/gwlog"
	"github.com/boundarygw/ic-gateway/internal/httpserver"
	"github.com/boundarygw/ic-gateway/internal/metrics"
	"github.com/boundarygw/ic-gateway/internal/policy"
	"github.com/boundarygw/ic-gateway/internal/principal"
	"github.com/boundarygw/ic-gateway/internal/ratelimit"
	"github.com/boundarygw/ic-gateway/internal/resolver"
	"github.com/boundarygw/ic-gateway/internal/tasks"
)

var ranAlready atomic.Bool

// Run builds and runs the gateway from cfg until an interrupt/terminate
// signal is received or ctx is cancelled, then drains and returns.
//
// Run may only be called once per process: a Go process has no global
// TLS-provider-install step the way the original's crypto provider
// install does, so this guard is the direct analog of that "second
// install is fatal" invariant (SPEC_FULL.md §5).
func Run(ctx context.Context, cfg *gwconfig.Config) error {
	if !ranAlready.CompareAndSwap(false, true) {
		panic("core: Run invoked more than once in this process")
	}

	servingDomains := cfg.AllServingDomains()
	if len(servingDomains) == 0 {
		return fmt.Errorf("core: no serving domains configured")
	}

	store := certs.NewStore()

	providerList, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	aggregator := certs.NewAggregator(store, providerList.certProviders, cfg.CertPollInterval)

	var stapler *ocsp.Stapler
	stapler, err = ocsp.NewStapler("")
	if err != nil {
		return fmt.Errorf("core: build OCSP stapler: %w", err)
	}

	tlsResolver := resolver.NewTLSResolver(store, providerList.alpnResolvers, stapler)

	aliasMap := make(map[string]principal.Principal, len(cfg.CanisterAlias))
	for _, a := range cfg.CanisterAlias {
		aliasMap[a.Alias] = a.BackendID
	}
	canisterResolver := resolver.NewCanisterResolver(aliasMap, servingDomains, store)

	var denylistSource policy.DenylistSource
	if cfg.PolicyDenylistURL != "" {
		denylistSource = policy.NewHTTPDenylistSource(cfg.PolicyDenylistURL, http.DefaultClient)
	}
	denylist, err := policy.NewDenylist(denylistSource, cfg.PolicyDenylistPollInterval, cfg.PolicyDenylistSeed, cfg.PolicyDenylistAllowlist)
	if err != nil {
		return fmt.Errorf("core: build denylist: %w", err)
	}
	preIsolation, err := policy.NewPreIsolation(cfg.PolicyPreIsolationCanisters)
	if err != nil {
		return fmt.Errorf("core: build pre-isolation set: %w", err)
	}

	var limiter *ratelimit.Limiter // left nil: concrete key-extraction policy is a leaf, wired by a deployment-specific caller

	accessLog := accesslog.NewChannelSink(4096)

	dnsResolver := dnsresolve.NewResolver(cfg.DNSServers, dnsresolve.Protocol(cfg.DNSProtocol), cfg.DNSTLSName, cfg.DNSCacheSize)

	var dispatcher httpserver.Dispatcher
	if cfg.BackendUpstreamURL != "" {
		upstream, err := url.Parse(cfg.BackendUpstreamURL)
		if err != nil {
			return fmt.Errorf("core: invalid backend upstream URL: %w", err)
		}
		dispatcher = dispatch.NewReverseProxyDispatcher(upstream, dnsResolver)
	}

	chain := &httpserver.Chain{
		Resolver:     canisterResolver,
		Denylist:     denylist,
		PreIsolation: preIsolation,
		RateLimiter:  limiter,
		Dispatcher:   dispatcher,
		AccessLog:    accessLog,
	}

	plainSrv := httpserver.NewPlainServer(cfg.HTTPServerListenPlain)

	tlsSrv, err := httpserver.NewTLSServer(httpserver.TLSServerConfig{
		Addr:                   cfg.HTTPServerListenTLS,
		Backlog:                cfg.HTTPServerBacklog,
		HTTP2MaxStreams:        uint32(cfg.HTTPServerHTTP2MaxStreams),
		HTTP2KeepaliveInterval: cfg.HTTPServerHTTP2KeepaliveInterv,
		HTTP2KeepaliveTimeout:  cfg.HTTPServerHTTP2KeepaliveTimeo,
		GracePeriod:            cfg.HTTPServerGracePeriod,
	}, tlsResolver.GetCertificate, chain)
	if err != nil {
		return fmt.Errorf("core: build TLS server: %w", err)
	}

	supervisor := tasks.NewSupervisor(cfg.HTTPServerGracePeriod)
	supervisor.Add(aggregator.Name(), aggregator)
	supervisor.Add(denylist.Name(), denylist)
	supervisor.Add(plainSrv.Name(), plainSrv)
	supervisor.Add(tlsSrv.Name(), tlsSrv)
	for _, alpnTask := range providerList.alpnTasks {
		supervisor.Add(alpnTask.Name(), alpnTask)
	}
	supervisor.AddPostDrain(accessLog.Name(), accessLog)

	if cfg.MetricsListen != "" {
		metricsSrv := &metricsServer{addr: cfg.MetricsListen}
		supervisor.Add(metricsSrv.Name(), metricsSrv)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			gwlog.Info("core: received shutdown signal")
			cancel()
		case <-runCtx.Done():
		}
	}()

	supervisor.Start(runCtx)
	<-runCtx.Done()
	supervisor.Stop()
	return nil
}

type providerSet struct {
	certProviders []certs.Provider
	alpnResolvers []resolver.AlpnResolver
	alpnTasks     []*providers.ACMEAlpn
}

func buildProviders(cfg *gwconfig.Config) (providerSet, error) {
	var set providerSet

	for _, dir := range cfg.CertProviderDir {
		set.certProviders = append(set.certProviders, providers.NewDir(dir))
	}
	for _, issuerURL := range cfg.CertProviderIssuerURL {
		if _, err := url.Parse(issuerURL); err != nil {
			return set, fmt.Errorf("core: invalid issuer URL %q: %w", issuerURL, err)
		}
		set.certProviders = append(set.certProviders, &providers.WithVerify{
			Inner: providers.NewIssuer(issuerURL, http.DefaultClient),
		})
	}

	if cfg.ACMEChallenge == gwconfig.ACMEAlpn {
		alpn, err := providers.NewACMEAlpn(cfg.AllServingDomains(), cfg.ACMECachePath, cfg.ACMEStaging, "")
		if err != nil {
			return set, err
		}
		set.alpnResolvers = append(set.alpnResolvers, alpn)
		set.alpnTasks = append(set.alpnTasks, alpn)
	}

	return set, nil
}

// metricsServer serves the Prometheus exposition endpoint on a separate
// listener, only when --metrics-listen is configured.
type metricsServer struct {
	addr string
	srv  *http.Server
}

func (m *metricsServer) Name() string { return "metrics_server" }

func (m *metricsServer) Run(ctx context.Context) error {
	m.srv = &http.Server{Addr: m.addr, Handler: metrics.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		return m.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
