package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

// pemPair is the wire shape of one certificate package's key/chain pair:
// a 2-element JSON array `[key, chain]`, mirroring original_source's
// serde tuple-struct `pub struct Pair(pub Vec<u8>, pub Vec<u8>)`
// (tls/cert/providers/issuer/mod.rs), not a {"key":...,"chain":...}
// object.
type pemPair [2][]byte

func (p pemPair) Key() []byte   { return p[0] }
func (p pemPair) Chain() []byte { return p[1] }

func (p *pemPair) UnmarshalJSON(data []byte) error {
	var raw [][]byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("certs/providers: pair must have exactly 2 elements, got %d", len(raw))
	}
	p[0], p[1] = raw[0], raw[1]
	return nil
}

type certPackage struct {
	Name     string  `json:"name"`
	Canister string  `json:"canister"`
	Pair     pemPair `json:"pair"`
}

// Issuer fetches certificates from a gateway-operated issuer HTTP
// endpoint: GET <BaseURL>/certificates returns a JSON array of
// certificate packages, each bound to a canister id.
//
// This unifies what original_source carries as two near-duplicate
// importers (tls/cert/providers/issuer and tls/cert/syncer) into a
// single component, per SPEC_FULL.md's resolution of that Open Question.
type Issuer struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewIssuer(baseURL string, client *http.Client) *Issuer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Issuer{BaseURL: baseURL, HTTPClient: client}
}

func (i *Issuer) Name() string { return "issuer:" + i.BaseURL }

func (i *Issuer) GetCertificates(ctx context.Context) ([]certs.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.BaseURL+"/certificates", nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("issuer %s: unexpected status %d", i.BaseURL, resp.StatusCode)
	}

	var packages []certPackage
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		return nil, fmt.Errorf("issuer %s: decode response: %w", i.BaseURL, err)
	}

	records := make([]certs.Record, 0, len(packages))
	for _, pkg := range packages {
		rec, err := certs.ParsePEM(pkg.Pair.Key(), pkg.Pair.Chain())
		if err != nil {
			return nil, fmt.Errorf("issuer %s: package %q: %w", i.BaseURL, pkg.Name, err)
		}
		id, err := principal.Parse(pkg.Canister)
		if err != nil {
			return nil, fmt.Errorf("issuer %s: package %q: bad canister id: %w", i.BaseURL, pkg.Name, err)
		}
		rec.Custom = &certs.CustomDomain{Hostname: pkg.Name, BackendID: id}
		records = append(records, *rec)
	}
	return records, nil
}

// ErrCommonNameMismatch is returned by WithVerify when a package's leaf
// certificate CommonName does not match its declared name.
type ErrCommonNameMismatch struct {
	Expected, Actual string
}

func (e *ErrCommonNameMismatch) Error() string {
	return fmt.Sprintf("certs/providers: common name mismatch: expected %q, got %q", e.Expected, e.Actual)
}

// WithVerify wraps a certs.Provider, rejecting the whole round if any
// record's leaf CommonName doesn't match its declared custom-domain
// hostname. Grounded on original_source's WithVerify<T,V> decorator.
type WithVerify struct {
	Inner certs.Provider
}

func (w *WithVerify) Name() string { return w.Inner.Name() }

func (w *WithVerify) GetCertificates(ctx context.Context) ([]certs.Record, error) {
	records, err := w.Inner.GetCertificates(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Custom == nil {
			continue
		}
		cn := r.Key.Leaf.Subject.CommonName
		if cn != r.Custom.Hostname {
			return nil, &ErrCommonNameMismatch{Expected: r.Custom.Hostname, Actual: cn}
		}
	}
	return records, nil
}
