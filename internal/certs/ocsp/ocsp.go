// Package ocsp implements the gateway's OCSP stapling cache: a
// write-through buntdb-backed cache keyed by certificate fingerprint,
// refreshed in the background on miss or near-expiry. The hot TLS path
// never blocks waiting on an OCSP responder.
package ocsp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/buntdb"
	"golang.org/x/crypto/ocsp"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// RefreshMargin is how far before staple expiry a background refresh is
// triggered.
const RefreshMargin = 12 * time.Hour

type staple struct {
	Raw    []byte    `json:"raw"`
	Expiry time.Time `json:"expiry"`
}

// Stapler caches OCSP staples keyed by leaf certificate fingerprint.
type Stapler struct {
	db         *buntdb.DB
	httpClient *http.Client

	mu        sync.Mutex
	inflight  map[string]bool
}

// NewStapler opens (or creates) the staple cache at path. An empty path
// uses an in-memory database.
func NewStapler(path string) (*Stapler, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("certs/ocsp: open cache: %w", err)
	}
	return &Stapler{db: db, httpClient: &http.Client{Timeout: 10 * time.Second}, inflight: map[string]bool{}}, nil
}

func fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return fmt.Sprintf("%x", sum)
}

// Staple returns a cached OCSP staple for the given leaf+issuer pair, if
// one is fresh, and kicks off a background refresh when the entry is
// missing or within RefreshMargin of expiry. It never blocks on network
// I/O itself.
func (s *Stapler) Staple(cert, issuer *x509.Certificate) []byte {
	key := fingerprint(cert)

	var cached staple
	var found bool
	_ = s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(v), &cached); err != nil {
			return nil
		}
		found = true
		return nil
	})

	needsRefresh := !found || time.Until(cached.Expiry) < RefreshMargin
	if needsRefresh {
		s.refreshAsync(key, cert, issuer)
	}

	if found && time.Now().Before(cached.Expiry) {
		return cached.Raw
	}
	return nil
}

func (s *Stapler) refreshAsync(key string, cert, issuer *x509.Certificate) {
	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return
	}
	s.inflight[key] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		raw, expiry, err := s.fetch(ctx, cert, issuer)
		if err != nil {
			gwlog.Warning("ocsp: refresh failed for %s: %v", key, err)
			return
		}

		encoded, err := json.Marshal(staple{Raw: raw, Expiry: expiry})
		if err != nil {
			return
		}
		_ = s.db.Update(func(tx *buntdb.Tx) error {
			_, _, err := tx.Set(key, string(encoded), nil)
			return err
		})
	}()
}

func (s *Stapler) fetch(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, time.Time, error) {
	if len(cert.OCSPServer) == 0 {
		return nil, time.Time{}, fmt.Errorf("certificate carries no OCSP responder URL")
	}

	reqBytes, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return nil, time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cert.OCSPServer[0], bytes.NewReader(reqBytes))
	if err != nil {
		return nil, time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/ocsp-request")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, err
	}

	parsed, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return nil, time.Time{}, err
	}
	if parsed.Status != ocsp.Good {
		return nil, time.Time{}, fmt.Errorf("ocsp: responder returned non-good status %d", parsed.Status)
	}

	return body, parsed.NextUpdate, nil
}

// crypto/tls.Certificate convenience: LeafAndIssuer extracts the leaf
// and issuer certificates from a chain, as required by Staple.
func LeafAndIssuer(tlsCert *tls.Certificate) (leaf, issuer *x509.Certificate, ok bool) {
	if len(tlsCert.Certificate) < 1 {
		return nil, nil, false
	}
	leafCert, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, nil, false
	}
	if len(tlsCert.Certificate) < 2 {
		return leafCert, leafCert, true
	}
	issuerCert, err := x509.ParseCertificate(tlsCert.Certificate[1])
	if err != nil {
		return leafCert, leafCert, true
	}
	return leafCert, issuerCert, true
}
