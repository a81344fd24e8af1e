// Package errorcause implements the gateway's error taxonomy: a closed
// set of causes, each mapped to an HTTP status code and a stable
// snake_case kind string, used uniformly by the middleware chain to
// short-circuit a request and render a response.
package errorcause

import (
	"fmt"
	"net/http"
)

// Kind identifies one of the fixed error causes the gateway can report.
type Kind int

const (
	UnableToReadBody Kind = iota
	LoadShed
	RequestTooLarge
	IncorrectPrincipal
	MalformedRequest
	NoAuthority
	UnknownDomain
	CanisterIDNotFound
	DomainCanisterMismatch
	Denylisted
	AgentError
	BackendErrorDNS
	BackendErrorConnect
	BackendTimeout
	BackendTLSErrorOther
	BackendTLSErrorCert
	RateLimited
	Other
)

var kindStrings = map[Kind]string{
	UnableToReadBody:       "unable_to_read_body",
	LoadShed:               "load_shed",
	RequestTooLarge:        "request_too_large",
	IncorrectPrincipal:     "incorrect_principal",
	MalformedRequest:       "malformed_request",
	NoAuthority:            "no_authority",
	UnknownDomain:          "unknown_domain",
	CanisterIDNotFound:     "canister_id_not_found",
	DomainCanisterMismatch: "domain_canister_mismatch",
	Denylisted:             "denylisted",
	AgentError:             "agent_error",
	BackendErrorDNS:        "backend_error_dns",
	BackendErrorConnect:    "backend_error_connect",
	BackendTimeout:         "backend_timeout",
	BackendTLSErrorOther:   "backend_tls_error",
	BackendTLSErrorCert:    "backend_tls_error_cert",
	RateLimited:            "rate_limited",
	Other:                  "other",
}

var kindStatus = map[Kind]int{
	UnableToReadBody:       http.StatusRequestTimeout,
	LoadShed:               http.StatusTooManyRequests,
	RequestTooLarge:        http.StatusRequestEntityTooLarge,
	IncorrectPrincipal:     http.StatusBadRequest,
	MalformedRequest:       http.StatusBadRequest,
	NoAuthority:            http.StatusBadRequest,
	UnknownDomain:          http.StatusBadRequest,
	CanisterIDNotFound:     http.StatusBadRequest,
	DomainCanisterMismatch: http.StatusForbidden,
	Denylisted:             http.StatusUnavailableForLegalReasons,
	AgentError:             http.StatusInternalServerError,
	BackendErrorDNS:        http.StatusServiceUnavailable,
	BackendErrorConnect:    http.StatusServiceUnavailable,
	BackendTimeout:         http.StatusInternalServerError,
	BackendTLSErrorOther:   http.StatusServiceUnavailable,
	BackendTLSErrorCert:    http.StatusServiceUnavailable,
	RateLimited:            http.StatusTooManyRequests,
	Other:                  http.StatusInternalServerError,
}

// ErrorCause is the gateway's single error type for request-handling
// failures. A non-nil ErrorCause short-circuits the middleware chain.
type ErrorCause struct {
	Kind    Kind
	Detail  string
	Cause   error
	subkind string // e.g. the "x" in rate_limited_{x}
}

// New constructs an ErrorCause of the given kind with an optional detail.
func New(kind Kind, detail string) *ErrorCause {
	return &ErrorCause{Kind: kind, Detail: detail}
}

// Wrap attaches an underlying error as the cause, preserved for logging.
func Wrap(kind Kind, detail string, cause error) *ErrorCause {
	return &ErrorCause{Kind: kind, Detail: detail, Cause: cause}
}

// RateLimitedBy returns a RateLimited ErrorCause tagged with the limiter
// that tripped (rendered as rate_limited_<subkind>).
func RateLimitedBy(subkind string) *ErrorCause {
	return &ErrorCause{Kind: RateLimited, subkind: subkind}
}

// StatusCode returns the HTTP status code this cause maps to.
func (e *ErrorCause) StatusCode() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// String renders the stable snake_case kind, with rate_limited variants
// suffixed by their subkind.
func (e *ErrorCause) String() string {
	s := kindStrings[e.Kind]
	if e.Kind == RateLimited && e.subkind != "" {
		return fmt.Sprintf("%s_%s", s, e.subkind)
	}
	return s
}

// Error implements the error interface.
func (e *ErrorCause) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.String(), e.Detail)
	}
	return e.String()
}

// Unwrap exposes the wrapped underlying error, if any, to errors.Is/As.
func (e *ErrorCause) Unwrap() error {
	return e.Cause
}

// HTML reports whether this cause renders an HTML body rather than the
// default plaintext body, and if so, returns it. Only Denylisted does.
func (e *ErrorCause) HTML() (body string, ok bool) {
	if e.Kind != Denylisted {
		return "", false
	}
	return denylistedHTML, true
}

// Body renders the response body for this cause: the bundled HTML page
// for Denylisted, otherwise "<kind>: <detail>\n" or "<kind>\n".
func (e *ErrorCause) Body() (body string, contentType string) {
	if html, ok := e.HTML(); ok {
		return html, "text/html; charset=utf-8"
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s\n", e.String(), e.Detail), "text/plain; charset=utf-8"
	}
	return e.String() + "\n", "text/plain; charset=utf-8"
}

// WriteResponse renders this cause onto an http.ResponseWriter, setting
// the status code, content type, and body.
func (e *ErrorCause) WriteResponse(w http.ResponseWriter) {
	body, contentType := e.Body()
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(e.StatusCode())
	_, _ = w.Write([]byte(body))
}

const denylistedHTML = `<!DOCTYPE html>
<html>
<head><title>451 Unavailable For Legal Reasons</title></head>
<body>
<h1>451 Unavailable For Legal Reasons</h1>
<p>This resource is not available due to a legal restriction.</p>
</body>
</html>
`
