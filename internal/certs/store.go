package certs

import (
	"strings"
	"sync/atomic"

	"github.com/boundarygw/ic-gateway/internal/principal"
)

// Snapshot is an immutable view of all currently-published certificates
// and custom-domain bindings. A new Snapshot replaces the old one
// wholesale on each successful aggregator round.
type Snapshot struct {
	bySAN          map[string]*Record
	byCustomDomain map[string]principal.Principal
	total          int
}

func newSnapshot(records []Record) *Snapshot {
	s := &Snapshot{
		bySAN:          make(map[string]*Record, len(records)),
		byCustomDomain: make(map[string]principal.Principal),
		total:          len(records),
	}
	for i := range records {
		r := &records[i]
		for _, san := range r.SAN {
			key := strings.ToLower(san)
			if _, exists := s.bySAN[key]; !exists {
				s.bySAN[key] = r
			}
		}
		// A custom-domain entry is only published if its own record's SAN
		// set actually covers the hostname (Testable Property #1): a
		// custom-domain binding with no covering cert would resolve to a
		// backend the TLS layer can never present a certificate for.
		if r.Custom != nil && sanCovers(r.SAN, r.Custom.Hostname) {
			host := strings.ToLower(r.Custom.Hostname)
			if _, exists := s.byCustomDomain[host]; !exists {
				s.byCustomDomain[host] = r.Custom.BackendID
			}
		}
	}
	return s
}

// sanCovers reports whether host is covered by san, either by an exact
// (case-insensitive) match or a single-level wildcard entry.
func sanCovers(san []string, host string) bool {
	host = strings.ToLower(host)
	for _, s := range san {
		s = strings.ToLower(s)
		if s == host {
			return true
		}
		if strings.HasPrefix(s, "*.") {
			if idx := strings.IndexByte(host, '.'); idx >= 0 && s[2:] == host[idx+1:] {
				return true
			}
		}
	}
	return false
}

// Count returns the number of records this snapshot was built from.
func (s *Snapshot) Count() int {
	if s == nil {
		return 0
	}
	return s.total
}

// lookupSNI implements exact-then-wildcard SNI matching against this
// snapshot only.
func (s *Snapshot) lookupSNI(sni string) (*Record, bool) {
	if s == nil {
		return nil, false
	}
	sni = strings.ToLower(sni)
	if r, ok := s.bySAN[sni]; ok {
		return r, true
	}
	if idx := strings.IndexByte(sni, '.'); idx >= 0 {
		wildcard := "*" + sni[idx:]
		if r, ok := s.bySAN[wildcard]; ok {
			return r, true
		}
	}
	return nil, false
}

func (s *Snapshot) lookupCustomDomain(hostname string) (principal.Principal, bool) {
	if s == nil {
		return principal.Principal{}, false
	}
	id, ok := s.byCustomDomain[strings.ToLower(hostname)]
	return id, ok
}

// Store is the wait-free, copy-on-publish home of the current Snapshot.
// Reads never block a writer and never block each other.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(newSnapshot(nil))
	return s
}

// Publish atomically replaces the current snapshot. Callers (the
// Aggregator) are responsible for only calling Publish with a
// non-empty, fully-validated record set.
func (s *Store) Publish(records []Record) {
	s.current.Store(newSnapshot(records))
}

// Snapshot returns the currently published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// LookupSNI looks up a certificate record by SNI hostname against the
// currently published snapshot: exact match first, then a single-level
// wildcard match.
func (s *Store) LookupSNI(sni string) (*Record, bool) {
	return s.Snapshot().lookupSNI(sni)
}

// LookupCustomDomain looks up a backend id bound to hostname via the
// custom-domain table, exact match only (no wildcarding).
func (s *Store) LookupCustomDomain(hostname string) (principal.Principal, bool) {
	return s.Snapshot().lookupCustomDomain(hostname)
}
