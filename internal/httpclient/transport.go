package httpclient

import (
	"net/http"
)

// Doer issues one HTTP exchange. *http.Client satisfies it; tests substitute
// fakes. Everything below this interface (TLS, pooling, socket retries,
// timeouts) is the transport's business, surfaced to this module only as an
// error from Do.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialSource attaches authentication headers to an outgoing request.
// The module never inspects or stores raw credentials; it calls the source
// once per request and forwards whatever headers it set.
type CredentialSource interface {
	Authorize(req *http.Request) error
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func(req *http.Request) error

func (f CredentialFunc) Authorize(req *http.Request) error { return f(req) }

// BasicAuth returns a CredentialSource that sets a basic-auth header.
func BasicAuth(username, password string) CredentialSource {
	return CredentialFunc(func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	})
}

// AuthTransport implements http.RoundTripper and injects credentials from a
// CredentialSource into every outgoing request before delegating to the
// underlying transport.
type AuthTransport struct {
	Source    CredentialSource
	Transport http.RoundTripper
}

// NewAuthTransport creates an AuthTransport over the given transport. If
// transport is nil, http.DefaultTransport is used.
func NewAuthTransport(source CredentialSource, transport http.RoundTripper) *AuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &AuthTransport{Source: source, Transport: transport}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source != nil {
		if err := t.Source.Authorize(req); err != nil {
			return nil, err
		}
	}
	next := t.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
