// Package policy implements the gateway's request-admission
// middlewares: the denylist, the pre-isolation set, and the
// canister<->domain consistency check.
package policy

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/gwlog"
	"github.com/boundarygw/ic-gateway/internal/metrics"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

// DenylistSource fetches the current denylisted-principal set from an
// external source. The wire format is out of scope per SPEC_FULL.md
// §1/§6 — callers provide a concrete implementation.
type DenylistSource interface {
	FetchDenylist(ctx context.Context) ([]principal.Principal, error)
}

// Denylist blocks requests resolved to a denylisted backend, unless
// that backend also appears in a locally-loaded allowlist override.
// Refreshed periodically; a failed refresh keeps the previous set.
//
// Grounded on core/blacklist.go's file-seeded set + periodic structure,
// generalized from IP addresses to backend principals.
type Denylist struct {
	source   DenylistSource
	interval time.Duration

	mu        sync.RWMutex
	denied    map[principal.Principal]bool
	allowlist map[principal.Principal]bool
}

// NewDenylist builds a Denylist. seedPath and allowlistPath are plain
// text files, one principal per line, "#"-comments stripped, matching
// the teacher's blacklist file format.
func NewDenylist(source DenylistSource, interval time.Duration, seedPath, allowlistPath string) (*Denylist, error) {
	d := &Denylist{source: source, interval: interval, denied: map[principal.Principal]bool{}, allowlist: map[principal.Principal]bool{}}

	if seedPath != "" {
		seed, err := loadPrincipalFile(seedPath)
		if err != nil {
			return nil, err
		}
		for _, p := range seed {
			d.denied[p] = true
		}
	}
	if allowlistPath != "" {
		allow, err := loadPrincipalFile(allowlistPath)
		if err != nil {
			return nil, err
		}
		for _, p := range allow {
			d.allowlist[p] = true
		}
	}
	return d, nil
}

func loadPrincipalFile(path string) ([]principal.Principal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []principal.Principal
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		p, err := principal.Parse(line)
		if err != nil {
			gwlog.Warning("policy: %s: skipping malformed entry %q: %v", path, line, err)
			continue
		}
		out = append(out, p)
	}
	return out, scanner.Err()
}

// Name identifies this task to the supervisor.
func (d *Denylist) Name() string { return "denylist_refresh" }

// Run periodically refreshes the denylist from its source until ctx is
// cancelled. A refresh failure is logged and the previous set is kept.
func (d *Denylist) Run(ctx context.Context) error {
	if d.source == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.refresh(ctx)
		}
	}
}

func (d *Denylist) refresh(ctx context.Context) {
	ids, err := d.source.FetchDenylist(ctx)
	if err != nil {
		gwlog.Warning("policy: denylist refresh failed, retaining previous set: %v", err)
		metrics.DenylistRefresh("failed")
		return
	}
	next := make(map[principal.Principal]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	d.mu.Lock()
	d.denied = next
	d.mu.Unlock()
	metrics.DenylistRefresh("applied")
}

// Check returns a Denylisted ErrorCause if id is denylisted and not
// present in the allowlist override.
func (d *Denylist) Check(id principal.Principal) *errorcause.ErrorCause {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.denied[id] && !d.allowlist[id] {
		return errorcause.New(errorcause.Denylisted, "")
	}
	return nil
}
