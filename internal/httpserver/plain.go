package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// PlainServer is the gateway's plaintext listener: it answers ACME
// HTTP-01 challenges and 308-redirects everything else to HTTPS.
// Grounded directly on core/http_server.go.
type PlainServer struct {
	srv *http.Server

	mu         sync.RWMutex
	acmeTokens map[string]string
}

// NewPlainServer builds a PlainServer bound to addr.
func NewPlainServer(addr string) *PlainServer {
	s := &PlainServer{acmeTokens: make(map[string]string)}

	r := mux.NewRouter()
	s.srv = &http.Server{
		Handler:      r,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	r.HandleFunc("/.well-known/acme-challenge/{token}", s.handleACMEChallenge).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(s.handleRedirect)

	return s
}

// Name identifies this task to the supervisor.
func (s *PlainServer) Name() string { return "http_server_plain" }

// Run starts serving and blocks until ctx is cancelled, then performs a
// graceful shutdown.
func (s *PlainServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		gwlog.Info("http: listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// AddACMEToken registers an HTTP-01 challenge token/key-authorization
// pair to be served at /.well-known/acme-challenge/<token>.
func (s *PlainServer) AddACMEToken(token, keyAuth string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acmeTokens[token] = keyAuth
}

// ClearACMETokens removes every registered challenge token.
func (s *PlainServer) ClearACMETokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acmeTokens = make(map[string]string)
}

func (s *PlainServer) handleACMEChallenge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token := vars["token"]

	s.mu.RLock()
	key, ok := s.acmeTokens[token]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	gwlog.Debug("http: found ACME verification token for URL: %s", r.URL.Path)
	w.Header().Set("content-type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(key))
}

func (s *PlainServer) handleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "https://"+r.Host+r.URL.String(), http.StatusPermanentRedirect)
}
