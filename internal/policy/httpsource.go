package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boundarygw/ic-gateway/internal/principal"
)

// HTTPDenylistSource fetches a denylist as a plain JSON array of
// textual-encoded backend ids. The exact wire schema is out of scope
// per SPEC_FULL.md §1/§6 — this is the minimal concrete default so
// internal/core has something to wire when --policy-denylist-url is
// configured.
type HTTPDenylistSource struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPDenylistSource builds a source fetching from url.
func NewHTTPDenylistSource(url string, client *http.Client) *HTTPDenylistSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDenylistSource{URL: url, HTTPClient: client}
}

func (s *HTTPDenylistSource) FetchDenylist(ctx context.Context) ([]principal.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("policy: denylist source %s: unexpected status %d", s.URL, resp.StatusCode)
	}

	var raw []string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("policy: denylist source %s: decode: %w", s.URL, err)
	}

	ids := make([]principal.Principal, 0, len(raw))
	for _, s := range raw {
		id, err := principal.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
