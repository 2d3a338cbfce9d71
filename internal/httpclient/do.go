package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/cyp0633/davsync/daverr"
)

// do executes one exchange and drains the response body. Transport failures
// come back as NetworkFailure; status interpretation is the verb's job.
func (w *wrapper) do(ctx context.Context, method, urlStr string, headers map[string]string, body []byte) (int, http.Header, []byte, error) {
	resolvedURL, err := w.resolveURL(urlStr)
	if err != nil {
		return 0, nil, nil, daverr.InvalidData(err.Error())
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), reader)
	if err != nil {
		return 0, nil, nil, daverr.InvalidData(err.Error())
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	w.logger.Debug("outgoing request",
		"method", method,
		"url", resolvedURL.String(),
		"body_length", len(body))

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Debug("request failed", "method", method, "error", err)
		return 0, nil, nil, daverr.NetworkFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, daverr.NetworkFailure(err)
	}

	w.logger.Debug("incoming response",
		"method", method,
		"status", resp.StatusCode,
		"body_length", len(respBody))
	return resp.StatusCode, resp.Header, respBody, nil
}

// apply sets the precondition headers of a write.
func (c Condition) apply(headers map[string]string) {
	if etag, ok := c.IfMatch.Get(); ok {
		headers["If-Match"] = etag
	}
	if c.IfNoneMatchAny {
		headers["If-None-Match"] = "*"
	}
}
