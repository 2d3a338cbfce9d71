package httpclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cyp0633/davsync/daverr"
	"github.com/cyp0633/davsync/internal/xmlwire"
)

// DoPROPFIND performs a PROPFIND request for the named properties and returns
// the per-resource outcomes.
func (w *wrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, props ...string) (*xmlwire.Multistatus, error) {
	w.logger.Debug("starting PROPFIND request",
		"url", urlStr,
		"depth", depth,
		"properties", props)

	body, err := xmlwire.Propfind(props...).WriteToBytes()
	if err != nil {
		return nil, daverr.InvalidData(err.Error())
	}

	headers := map[string]string{
		"Depth":        strconv.Itoa(depth),
		"Content-Type": "application/xml; charset=utf-8",
	}
	status, _, respBody, err := w.do(ctx, "PROPFIND", urlStr, headers, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		if mapped := daverr.FromStatus(status, string(respBody), w.credentialed); mapped != nil {
			return nil, mapped
		}
		return nil, daverr.InvalidResponse(status, string(respBody))
	}

	ms, err := xmlwire.ParseMultistatus(respBody)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("PROPFIND request complete", "responses", len(ms.Entries))
	return ms, nil
}
