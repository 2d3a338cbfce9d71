package httpclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
)

// DoGET fetches one resource body with its current ETag.
func (w *wrapper) DoGET(ctx context.Context, urlStr string) ([]byte, mo.Option[string], error) {
	status, header, body, err := w.do(ctx, http.MethodGet, urlStr, nil, nil)
	if err != nil {
		return nil, mo.None[string](), err
	}
	if status != http.StatusOK {
		if mapped := daverr.FromStatus(status, string(body), w.credentialed); mapped != nil {
			return nil, mo.None[string](), mapped
		}
		return nil, mo.None[string](), daverr.InvalidResponse(status, string(body))
	}
	return body, headerETag(header), nil
}

// DoPUT creates or updates one resource, optionally conditioned on an ETag.
// The returned ETag is absent when the server does not echo one; callers fall
// back to a PROPFIND in that case.
func (w *wrapper) DoPUT(ctx context.Context, urlStr string, contentType string, data []byte, cond Condition) (mo.Option[string], error) {
	w.logger.Debug("starting PUT request",
		"url", urlStr,
		"if_match", cond.IfMatch.OrElse(""),
		"create_only", cond.IfNoneMatchAny,
		"data_length", len(data))

	headers := map[string]string{"Content-Type": contentType}
	cond.apply(headers)

	status, header, body, err := w.do(ctx, http.MethodPut, urlStr, headers, data)
	if err != nil {
		return mo.None[string](), err
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return headerETag(header), nil
	}
	if status == http.StatusPreconditionFailed {
		return mo.None[string](), daverr.PreconditionFailed(cond.IfMatch)
	}
	if mapped := daverr.FromStatus(status, string(body), w.credentialed); mapped != nil {
		return mo.None[string](), mapped
	}
	return mo.None[string](), daverr.InvalidResponse(status, string(body))
}

// DoDELETE removes one resource, optionally conditioned on an ETag.
func (w *wrapper) DoDELETE(ctx context.Context, urlStr string, cond Condition) error {
	w.logger.Debug("starting DELETE request",
		"url", urlStr,
		"if_match", cond.IfMatch.OrElse(""))

	headers := map[string]string{}
	cond.apply(headers)

	status, _, body, err := w.do(ctx, http.MethodDelete, urlStr, headers, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	}
	if status == http.StatusPreconditionFailed {
		return daverr.PreconditionFailed(cond.IfMatch)
	}
	if mapped := daverr.FromStatus(status, string(body), w.credentialed); mapped != nil {
		return mapped
	}
	return daverr.InvalidResponse(status, string(body))
}

// DoMKCOL creates a collection.
func (w *wrapper) DoMKCOL(ctx context.Context, urlStr string) error {
	status, _, body, err := w.do(ctx, "MKCOL", urlStr, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusCreated {
		return nil
	}
	if mapped := daverr.FromStatus(status, string(body), w.credentialed); mapped != nil {
		return mapped
	}
	return daverr.InvalidResponse(status, string(body))
}

// DoOPTIONS probes server capabilities and returns the DAV compliance
// classes, e.g. "1", "calendar-access", "addressbook".
func (w *wrapper) DoOPTIONS(ctx context.Context, urlStr string) ([]string, error) {
	status, header, body, err := w.do(ctx, http.MethodOptions, urlStr, nil, nil)
	if err != nil {
		return nil, err
	}
	if mapped := daverr.FromStatus(status, string(body), w.credentialed); mapped != nil {
		return nil, mapped
	}

	var classes []string
	for _, value := range header.Values("Dav") {
		for _, class := range strings.Split(value, ",") {
			if class = strings.TrimSpace(class); class != "" {
				classes = append(classes, class)
			}
		}
	}
	return classes, nil
}

func headerETag(header http.Header) mo.Option[string] {
	if etag := header.Get("ETag"); etag != "" {
		return mo.Some(etag)
	}
	return mo.None[string]()
}
