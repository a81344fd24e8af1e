package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boundarygw/ic-gateway/internal/errorcause"
	"github.com/boundarygw/ic-gateway/internal/principal"
)

func writePrincipalFile(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDenylistBlocksSeeded(t *testing.T) {
	dir := t.TempDir()
	seed := writePrincipalFile(t, dir, "seed.txt", []string{"aaaaa-aa", "# a comment", ""})

	d, err := NewDenylist(nil, 0, seed, "")
	if err != nil {
		t.Fatalf("NewDenylist: %v", err)
	}
	id, _ := principal.Parse("aaaaa-aa")
	if cause := d.Check(id); cause == nil || cause.Kind != errorcause.Denylisted {
		t.Fatalf("expected seeded principal to be denylisted")
	}
}

func TestDenylistAllowlistOverridesSeed(t *testing.T) {
	dir := t.TempDir()
	id, _ := principal.Parse("aaaaa-aa")
	seed := writePrincipalFile(t, dir, "seed.txt", []string{"aaaaa-aa"})
	allow := writePrincipalFile(t, dir, "allow.txt", []string{"aaaaa-aa"})

	d, err := NewDenylist(nil, 0, seed, allow)
	if err != nil {
		t.Fatalf("NewDenylist: %v", err)
	}
	if cause := d.Check(id); cause != nil {
		t.Fatalf("expected allowlisted principal to not be blocked, got %v", cause)
	}
}

func TestPreIsolationBlocksOnlyViaCustomDomain(t *testing.T) {
	dir := t.TempDir()
	path := writePrincipalFile(t, dir, "preisolation.txt", []string{"aaaaa-aa"})
	p, err := NewPreIsolation(path)
	if err != nil {
		t.Fatalf("NewPreIsolation: %v", err)
	}
	id, _ := principal.Parse("aaaaa-aa")

	if cause := p.Check(id, false); cause != nil {
		t.Fatalf("expected no block when not reached via custom domain, got %v", cause)
	}
	if cause := p.Check(id, true); cause == nil {
		t.Fatalf("expected block when reached via custom domain")
	}
}

func TestCheckMatch(t *testing.T) {
	a, _ := principal.Parse("aaaaa-aa")
	b, _ := principal.FromBytes([]byte{1, 2, 3})

	if cause := CheckMatch(a, a); cause != nil {
		t.Fatalf("expected no mismatch for identical ids")
	}
	if cause := CheckMatch(a, b); cause == nil {
		t.Fatalf("expected mismatch error for differing ids")
	}
}
