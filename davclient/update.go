package davclient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cyp0633/davsync/internal/httpclient"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

const prodID = "-//github.com/cyp0633/davsync//NONSGML v1.0//EN"

// eventToBytes converts an ical.Event to iCalendar format bytes
func eventToBytes(event *ical.Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText("PRODID", prodID)
	cal.Props.SetText("VERSION", "2.0")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func cardToBytes(card vcard.Card) ([]byte, error) {
	vcard.ToV4(card)
	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("failed to encode vcard: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateCalendarObject creates a new calendar object in the given collection.
// Returns the URL of the created object and its etag.
func (c *client) CreateCalendarObject(ctx context.Context, collectionURL string, event *ical.Event) (string, string, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return "", "", err
	}
	return c.createObject(ctx, collectionURL, ".ics", contentTypeCalendar, data)
}

// CreateAddressObject creates a new address object in the given collection.
func (c *client) CreateAddressObject(ctx context.Context, collectionURL string, card vcard.Card) (string, string, error) {
	data, err := cardToBytes(card)
	if err != nil {
		return "", "", err
	}
	return c.createObject(ctx, collectionURL, ".vcf", contentTypeVCard, data)
}

func (c *client) createObject(ctx context.Context, collectionURL, extension, contentType string, data []byte) (string, string, error) {
	objectURL := absURL(collectionURL, uuid.New().String()+extension)

	etag, err := c.http.DoPUT(ctx, objectURL, contentType, data, httpclient.Condition{IfNoneMatchAny: true})
	if err != nil {
		return "", "", fmt.Errorf("failed to create object: %w", err)
	}

	// Some servers do not echo an ETag on PUT; read it back.
	if etag.IsAbsent() {
		fresh, err := c.etagViaPROPFIND(ctx, objectURL)
		if err != nil {
			return objectURL, "", fmt.Errorf("failed to get new etag: %w", err)
		}
		return objectURL, fresh, nil
	}
	return objectURL, etag.MustGet(), nil
}

// UpdateCalendarObject updates a calendar object with optimistic locking: the
// write is conditioned on the ETag the object currently carries.
func (c *client) UpdateCalendarObject(ctx context.Context, objectURL string, event *ical.Event) (string, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return "", err
	}
	return c.updateObject(ctx, objectURL, contentTypeCalendar, data)
}

// UpdateAddressObject is the CardDAV counterpart of UpdateCalendarObject.
func (c *client) UpdateAddressObject(ctx context.Context, objectURL string, card vcard.Card) (string, error) {
	data, err := cardToBytes(card)
	if err != nil {
		return "", err
	}
	return c.updateObject(ctx, objectURL, contentTypeVCard, data)
}

func (c *client) updateObject(ctx context.Context, objectURL, contentType string, data []byte) (string, error) {
	current, err := c.etagViaPROPFIND(ctx, objectURL)
	if err != nil {
		return "", fmt.Errorf("failed to get object etag: %w", err)
	}

	etag, err := c.http.DoPUT(ctx, objectURL, contentType, data, httpclient.Condition{IfMatch: mo.Some(current)})
	if err != nil {
		return "", err
	}
	if etag.IsAbsent() {
		fresh, err := c.etagViaPROPFIND(ctx, objectURL)
		if err != nil {
			return "", fmt.Errorf("failed to get new etag: %w", err)
		}
		return fresh, nil
	}
	return etag.MustGet(), nil
}
