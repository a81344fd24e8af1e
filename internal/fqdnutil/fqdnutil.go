// Package fqdnutil provides hostname parsing helpers shared by the
// hostname resolver and TLS resolver: authority extraction from an
// inbound request, normalization, and subdomain-of comparison.
package fqdnutil

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

var ErrNoAuthority = errors.New("fqdnutil: no authority present on request")
var ErrMalformed = errors.New("fqdnutil: malformed hostname")

// ExtractAuthority returns the normalized FQDN a request was addressed
// to: the HTTP/2 ":authority" pseudo-header (exposed via r.Host for
// http2 requests in net/http) takes precedence, falling back to the
// Host header. The port, if present, is stripped; the result is
// lowercased with any trailing dot removed.
func ExtractAuthority(r *http.Request) (string, error) {
	host := r.Host
	if host == "" {
		host = r.Header.Get("Host")
	}
	if host == "" {
		return "", ErrNoAuthority
	}
	return Normalize(host)
}

// Normalize strips an optional port, lowercases, and removes a trailing
// dot, validating the result as a syntactically plausible FQDN.
func Normalize(host string) (string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", ErrMalformed
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return "", ErrMalformed
		}
	}
	return host, nil
}

// IsSubdomainOf reports whether host is equal to domain or a strict
// subdomain of it (a host counts as a subdomain of itself).
func IsSubdomainOf(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// SplitLabels splits a normalized hostname into its dot-separated labels.
func SplitLabels(host string) []string {
	return strings.Split(host, ".")
}
