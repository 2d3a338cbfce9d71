// Package davclient implements the client side of the CalDAV (RFC 4791) and
// CardDAV (RFC 6352) protocols over an injected HTTP transport: discovery of
// principal and home collections, collection listings, object fetch and
// conditional writes, and the sync-collection REPORT (RFC 6578).
package davclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/davsync/internal/httpclient"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/samber/mo"
)

// Client exposes the WebDAV protocol operations. All calls are single
// request/response exchanges; nothing is retried or cached here.
type Client interface {
	// Discovery
	DiscoverPrincipal(ctx context.Context) (string, error)
	DiscoverCalendarHome(ctx context.Context, principalURL string) (string, error)
	DiscoverAddressBookHome(ctx context.Context, principalURL string) (string, error)
	ListCalendars(ctx context.Context, homeURL string) ([]CollectionInfo, error)
	ListAddressBooks(ctx context.Context, homeURL string) ([]CollectionInfo, error)
	ServerCapabilities(ctx context.Context, urlStr string) ([]string, error)

	// Collection contents
	ListObjects(ctx context.Context, collectionURL string) ([]Resource, string, error)
	CollectionTag(ctx context.Context, collectionURL string) (string, error)
	SyncCollection(ctx context.Context, collectionURL string, token mo.Option[string]) (*SyncDelta, error)

	// Objects
	GetObject(ctx context.Context, objectURL string) (*Object, error)
	FetchRange(ctx context.Context, calendarURL string, start, end time.Time) ([]Object, error)
	MultiGetCalendar(ctx context.Context, collectionURL string, hrefs []string) ([]Object, error)
	MultiGetAddressBook(ctx context.Context, collectionURL string, hrefs []string) ([]Object, error)

	// Writes
	CreateOrUpdate(ctx context.Context, objectURL, contentType string, body []byte, expectedETag mo.Option[string]) (mo.Option[string], error)
	Create(ctx context.Context, objectURL, contentType string, body []byte) (mo.Option[string], error)
	Delete(ctx context.Context, objectURL string, expectedETag mo.Option[string]) error
	MkCollection(ctx context.Context, collectionURL string) error

	// Typed helpers
	CreateCalendarObject(ctx context.Context, collectionURL string, event *ical.Event) (objectURL string, etag string, err error)
	UpdateCalendarObject(ctx context.Context, objectURL string, event *ical.Event) (etag string, err error)
	CreateAddressObject(ctx context.Context, collectionURL string, card vcard.Card) (objectURL string, etag string, err error)
	UpdateAddressObject(ctx context.Context, objectURL string, card vcard.Card) (etag string, err error)
}

// CredentialSource attaches authentication headers to an outgoing request,
// once per request. The client never inspects what it sets.
type CredentialSource interface {
	Authorize(req *http.Request) error
}

// BasicAuth returns a CredentialSource setting a basic-auth header.
func BasicAuth(username, password string) CredentialSource {
	return httpclient.BasicAuth(username, password)
}

// DNSResolver interface for mocking DNS lookups in tests
type DNSResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Config holds the injectable collaborators of a Client.
type Config struct {
	Client      *http.Client
	Resolver    DNSResolver
	Logger      *slog.Logger
	Credentials CredentialSource
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Resolver: &net.Resolver{},
		Client:   http.DefaultClient,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type client struct {
	http     httpclient.Wrapper
	baseURL  url.URL
	resolver DNSResolver
	logger   *slog.Logger
}

// NewClient creates a Client for the server at baseURL. The base URL must be
// absolute; credentials, transport, resolver and logger come from cfg, each
// falling back to DefaultConfig when unset.
func NewClient(baseURL string, cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL %q", baseURL)
	}

	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = &net.Resolver{}
	}

	credentialed := cfg.Credentials != nil
	if credentialed {
		// Preserve an existing transport if present.
		inner := httpClient.Transport
		authed := *httpClient
		authed.Transport = httpclient.NewAuthTransport(
			httpclient.CredentialFunc(cfg.Credentials.Authorize), inner)
		httpClient = &authed
	}

	wrapper, err := httpclient.NewWrapper(httpClient, *base, logger, credentialed)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client wrapper: %w", err)
	}

	return &client{
		http:     wrapper,
		baseURL:  *base,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// absURL resolves ref against base, leaving already-absolute refs alone.
func absURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
