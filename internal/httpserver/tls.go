package httpserver

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// TLSServerConfig holds the tunables named in SPEC_FULL.md §4.6.
type TLSServerConfig struct {
	Addr                   string
	Backlog                int
	HTTP2MaxStreams        uint32
	HTTP2KeepaliveInterval time.Duration
	HTTP2KeepaliveTimeout  time.Duration
	GracePeriod            time.Duration
}

// TLSServer is the gateway's TLS-terminating listener: HTTP/1.1 and
// HTTP/2 (ALPN-negotiated) behind the full middleware chain.
type TLSServer struct {
	cfg     TLSServerConfig
	srv     *http.Server
	tlsConf *tls.Config
}

// NewTLSServer builds a TLSServer serving handler behind getCert.
func NewTLSServer(cfg TLSServerConfig, getCert func(*tls.ClientHelloInfo) (*tls.Certificate, error), handler http.Handler) (*TLSServer, error) {
	tlsConf := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		NextProtos:     []string{"h2", "http/1.1", "acme-tls/1"},
		GetCertificate: getCert,
		ClientSessionCache: tls.NewLRUClientSessionCache(131072),
	}

	srv := &http.Server{
		Addr:      cfg.Addr,
		Handler:   handler,
		TLSConfig: tlsConf,
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return WithConnInfo(ctx, NewConnInfo(c))
		},
	}

	if err := http2.ConfigureServer(srv, &http2.Server{
		MaxConcurrentStreams: cfg.HTTP2MaxStreams,
		ReadIdleTimeout:      cfg.HTTP2KeepaliveInterval,
		PingTimeout:          cfg.HTTP2KeepaliveTimeout,
	}); err != nil {
		return nil, err
	}

	return &TLSServer{cfg: cfg, srv: srv, tlsConf: tlsConf}, nil
}

// Name identifies this task to the supervisor.
func (s *TLSServer) Name() string { return "http_server_tls" }

// Run starts serving TLS and blocks until ctx is cancelled, then
// performs a graceful shutdown bounded by the configured grace period.
func (s *TLSServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		ln = tcpListenerWithBacklog{tcpLn}
	}
	tlsLn := tls.NewListener(ln, s.tlsConf)

	errCh := make(chan error, 1)
	go func() {
		gwlog.Info("https: listening on %s", s.srv.Addr)
		if err := s.srv.Serve(tlsLn); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	grace := s.cfg.GracePeriod
	if grace <= 0 {
		grace = 10 * time.Second
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			_ = s.srv.Close()
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// tcpListenerWithBacklog is a pass-through wrapper; Go's net package
// does not expose a listen-backlog knob (net.Listen uses the platform
// default for listen(2)). TLSServerConfig.Backlog is not applied: the
// listener always uses that platform default.
type tcpListenerWithBacklog struct {
	*net.TCPListener
}
