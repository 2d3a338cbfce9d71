package davclient

import (
	"context"
	"strings"
	"time"

	"github.com/cyp0633/davsync/daverr"
	"github.com/cyp0633/davsync/internal/httpclient"
	"github.com/cyp0633/davsync/internal/xmlwire"
	"github.com/cyp0633/davsync/vobject"
	"github.com/samber/mo"
)

const (
	contentTypeCalendar = "text/calendar; charset=utf-8"
	contentTypeVCard    = "text/vcard; charset=utf-8"
)

// GetObject fetches one resource and parses its body by format.
func (c *client) GetObject(ctx context.Context, objectURL string) (*Object, error) {
	data, etag, err := c.http.DoGET(ctx, objectURL)
	if err != nil {
		return nil, err
	}

	obj := &Object{
		Resource: Resource{URL: objectURL, ETag: etag, Type: TypeResource},
		Data:     data,
	}
	parseObjectData(obj)
	return obj, nil
}

// FetchRange queries a calendar for VEVENT components overlapping
// [start, end) via a calendar-query REPORT.
func (c *client) FetchRange(ctx context.Context, calendarURL string, start, end time.Time) ([]Object, error) {
	query := xmlwire.CalendarQuery("VEVENT", mo.Some(start), mo.Some(end))
	ms, err := c.http.DoREPORT(ctx, calendarURL, 1, query)
	if err != nil {
		return nil, err
	}
	return c.objectsFromEntries(calendarURL, ms.Entries), nil
}

// MultiGetCalendar fetches the bodies and ETags of the given calendar object
// hrefs in one REPORT.
func (c *client) MultiGetCalendar(ctx context.Context, collectionURL string, hrefs []string) ([]Object, error) {
	if len(hrefs) == 0 {
		return nil, nil
	}
	ms, err := c.http.DoREPORT(ctx, collectionURL, 1, xmlwire.CalendarMultiget(hrefs))
	if err != nil {
		return nil, err
	}
	return c.objectsFromEntries(collectionURL, ms.Entries), nil
}

// MultiGetAddressBook is the CardDAV counterpart of MultiGetCalendar.
func (c *client) MultiGetAddressBook(ctx context.Context, collectionURL string, hrefs []string) ([]Object, error) {
	if len(hrefs) == 0 {
		return nil, nil
	}
	ms, err := c.http.DoREPORT(ctx, collectionURL, 1, xmlwire.AddressbookMultiget(hrefs))
	if err != nil {
		return nil, err
	}
	return c.objectsFromEntries(collectionURL, ms.Entries), nil
}

// objectsFromEntries turns multistatus entries into Objects. A failed entry
// keeps its place with Err set; the batch never collapses into one failure.
func (c *client) objectsFromEntries(baseURL string, entries []xmlwire.Entry) []Object {
	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.Err != nil {
			objects = append(objects, Object{Err: entry.Err})
			continue
		}

		obj := Object{Resource: Resource{
			URL:  absURL(baseURL, entry.Href),
			ETag: entry.ETag,
			Type: TypeResource,
		}}
		if entry.Status != 200 {
			obj.Err = daverr.FromStatus(entry.Status, "", true)
			if obj.Err == nil {
				obj.Err = daverr.InvalidResponse(entry.Status, "")
			}
			objects = append(objects, obj)
			continue
		}

		switch {
		case entry.CalendarData != "":
			obj.Data = []byte(entry.CalendarData)
		case entry.AddressData != "":
			obj.Data = []byte(entry.AddressData)
		}
		parseObjectData(&obj)
		objects = append(objects, obj)
	}
	return objects
}

// parseObjectData parses obj.Data by sniffing the component container. Parse
// failures mark the object, they do not abort the caller's batch.
func parseObjectData(obj *Object) {
	trimmed := strings.TrimSpace(string(obj.Data))
	switch {
	case strings.HasPrefix(trimmed, "BEGIN:VCALENDAR"):
		cal, err := vobject.ParseCalendar(trimmed)
		if err != nil {
			obj.Err = asDAVError(err)
			return
		}
		obj.Calendar = cal
	case strings.HasPrefix(trimmed, "BEGIN:VCARD"):
		card, err := vobject.ParseCard(trimmed)
		if err != nil {
			obj.Err = asDAVError(err)
			return
		}
		obj.Card = &card
	}
}

func asDAVError(err error) *daverr.Error {
	if e, ok := err.(*daverr.Error); ok {
		return e
	}
	return daverr.Parsing("%v", err)
}

// CreateOrUpdate writes a resource body. An expected ETag makes the write
// conditional: a stale local copy surfaces as PreconditionFailed so the
// caller can re-fetch and merge instead of blindly retrying.
func (c *client) CreateOrUpdate(ctx context.Context, objectURL, contentType string, body []byte, expectedETag mo.Option[string]) (mo.Option[string], error) {
	return c.http.DoPUT(ctx, objectURL, contentType, body, httpclient.Condition{IfMatch: expectedETag})
}

// Create writes a resource only if nothing exists at the URL yet.
func (c *client) Create(ctx context.Context, objectURL, contentType string, body []byte) (mo.Option[string], error) {
	return c.http.DoPUT(ctx, objectURL, contentType, body, httpclient.Condition{IfNoneMatchAny: true})
}

// Delete removes a resource, optionally conditioned on its ETag.
func (c *client) Delete(ctx context.Context, objectURL string, expectedETag mo.Option[string]) error {
	return c.http.DoDELETE(ctx, objectURL, httpclient.Condition{IfMatch: expectedETag})
}

// MkCollection creates a plain collection at the URL.
func (c *client) MkCollection(ctx context.Context, collectionURL string) error {
	return c.http.DoMKCOL(ctx, collectionURL)
}

// etagViaPROPFIND re-reads the ETag of a freshly written object, for servers
// that do not echo one in the PUT response.
func (c *client) etagViaPROPFIND(ctx context.Context, objectURL string) (string, error) {
	ms, err := c.http.DoPROPFIND(ctx, objectURL, 0, "getetag")
	if err != nil {
		return "", err
	}
	for _, entry := range ms.Entries {
		if entry.Err == nil && entry.ETag.IsPresent() {
			return entry.ETag.MustGet(), nil
		}
	}
	return "", daverr.InvalidData("no etag found for " + objectURL)
}
