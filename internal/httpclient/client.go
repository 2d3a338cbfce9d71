// Package httpclient wraps an injected HTTP transport with the WebDAV verb
// exchanges the higher layers need. It owns header plumbing and status
// mapping; it never retries, as retry policy belongs to the caller.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/beevik/etree"
	"github.com/cyp0633/davsync/internal/xmlwire"
	"github.com/samber/mo"
)

// Wrapper is the verb-level client consumed by davclient and davsync.
type Wrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, props ...string) (*xmlwire.Multistatus, error)
	DoREPORT(ctx context.Context, url string, depth int, body *etree.Document) (*xmlwire.Multistatus, error)
	DoGET(ctx context.Context, url string) (data []byte, etag mo.Option[string], err error)
	DoPUT(ctx context.Context, url string, contentType string, data []byte, cond Condition) (etag mo.Option[string], err error)
	DoDELETE(ctx context.Context, url string, cond Condition) error
	DoMKCOL(ctx context.Context, url string) error
	DoOPTIONS(ctx context.Context, url string) (dav []string, err error)
}

// Condition expresses the optimistic-concurrency precondition of a write.
// IfMatch conditions the write on the resource still carrying that ETag;
// IfNoneMatchAny makes the write create-only.
type Condition struct {
	IfMatch        mo.Option[string]
	IfNoneMatchAny bool
}

type wrapper struct {
	client       Doer
	baseURL      url.URL
	logger       *slog.Logger
	credentialed bool
}

// NewWrapper creates a verb wrapper over the given transport. credentialed
// records whether a credential source is attached, so a 401 maps to the right
// error variant.
func NewWrapper(client Doer, baseURL url.URL, logger *slog.Logger, credentialed bool) (Wrapper, error) {
	if client == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &wrapper{client: client, baseURL: baseURL, logger: logger, credentialed: credentialed}, nil
}

// resolveURL resolves a URL string against the base URL
func (w *wrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return w.baseURL.ResolveReference(ref), nil
}
