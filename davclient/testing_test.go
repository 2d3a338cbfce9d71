package davclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// noSRVResolver answers every DNS lookup with an error, forcing discovery
// onto the HTTP candidates.
type noSRVResolver struct{}

func (noSRVResolver) LookupSRV(context.Context, string, string, string) (string, []*net.SRV, error) {
	return "", nil, errors.New("no SRV records")
}

func (noSRVResolver) LookupTXT(context.Context, string) ([]string, error) {
	return nil, errors.New("no TXT records")
}

func newTestClient(t *testing.T, server *httptest.Server) Client {
	t.Helper()
	c, err := NewClient(server.URL, &Config{
		Client:   server.Client(),
		Resolver: noSRVResolver{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c
}

func writeMultistatus(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	io.WriteString(w, body)
}
