// Package providers implements the concrete certificate providers:
// a local-directory scanner, an HTTP issuer client, and an ACME-ALPN
// long-lived challenge resolver.
package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/boundarygw/ic-gateway/internal/certs"
	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

// Dir loads cert/key pairs from a non-recursive scan of a local
// directory: every "*.pem" (case-insensitive) file must have a sibling
// "<stem>.key" file. Grounded on core/certdb.go's setUnmanagedSync scan
// and original_source's tls/cert/providers/dir.rs.
type Dir struct {
	Path string
}

func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

func (d *Dir) Name() string { return "dir:" + d.Path }

func (d *Dir) GetCertificates(ctx context.Context) ([]certs.Record, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, err
	}

	var records []certs.Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pem") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		keyPath := filepath.Join(d.Path, stem+".key")
		chainPath := filepath.Join(d.Path, name)

		keyPEM, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, err
		}
		chainPEM, err := os.ReadFile(chainPath)
		if err != nil {
			return nil, err
		}

		rec, err := certs.ParsePEM(keyPEM, chainPEM)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	gwlog.Debug("cert provider %s: loaded %d pair(s)", d.Name(), len(records))
	return records, nil
}
