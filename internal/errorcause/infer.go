package errorcause

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
)

// Infer classifies a generic error returned from the backend dispatch
// path into the matching ErrorCause, falling back to Other when nothing
// more specific is recognized.
func Infer(err error) *ErrorCause {
	if err == nil {
		return nil
	}

	var ec *ErrorCause
	if errors.As(err, &ec) {
		return ec
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(BackendTimeout, "deadline exceeded", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Wrap(BackendErrorDNS, dnsErr.Error(), err)
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return Wrap(BackendTLSErrorCert, certErr.Error(), err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			if opErr.Timeout() {
				return Wrap(BackendTimeout, opErr.Error(), err)
			}
			return Wrap(BackendErrorConnect, opErr.Error(), err)
		}
		if _, ok := opErr.Err.(*net.DNSError); ok {
			return Wrap(BackendErrorDNS, opErr.Error(), err)
		}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return Wrap(RequestTooLarge, "", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(BackendTimeout, netErr.Error(), err)
	}

	return Wrap(Other, err.Error(), err)
}
