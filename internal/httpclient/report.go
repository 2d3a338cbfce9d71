package httpclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cyp0633/davsync/daverr"
	"github.com/cyp0633/davsync/internal/xmlwire"
)

// DoREPORT executes a REPORT request with the given body document
// (sync-collection, calendar-query, addressbook-query or a multiget) and
// returns the per-resource outcomes. A rejected sync token surfaces as
// SyncTokenExpired, distinct from a generic invalid response.
func (w *wrapper) DoREPORT(ctx context.Context, urlStr string, depth int, doc *etree.Document) (*xmlwire.Multistatus, error) {
	queryType := ""
	if doc != nil && doc.Root() != nil {
		queryType = doc.Root().Tag
	}
	w.logger.Debug("starting REPORT request",
		"url", urlStr,
		"depth", depth,
		"query_type", queryType)

	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, daverr.InvalidData(err.Error())
	}

	headers := map[string]string{
		"Depth":        strconv.Itoa(depth),
		"Content-Type": "application/xml; charset=utf-8",
	}
	status, _, respBody, err := w.do(ctx, "REPORT", urlStr, headers, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		// RFC 6578: a server rejecting the presented token answers with the
		// valid-sync-token precondition in the error body.
		if xmlwire.IsSyncTokenInvalid(respBody) {
			return nil, daverr.SyncTokenExpired()
		}
		if mapped := daverr.FromStatus(status, string(respBody), w.credentialed); mapped != nil {
			return nil, mapped
		}
		return nil, daverr.InvalidResponse(status, string(respBody))
	}

	ms, err := xmlwire.ParseMultistatus(respBody)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("REPORT request complete", "responses", len(ms.Entries))
	return ms, nil
}
