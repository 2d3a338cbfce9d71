package xmlwire

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
)

// Entry is the outcome for one resource inside a 207 multistatus body. A
// single response can carry a mix of 200, 404 and 412 entries; callers act on
// each independently. A malformed entry sets Err and leaves the rest of the
// batch usable.
type Entry struct {
	Href   string
	Status int
	ETag   mo.Option[string]

	CalendarData string
	AddressData  string

	DisplayName string
	Description string
	Color       string
	CTag        string
	SyncToken   string

	IsCollection  bool
	IsCalendar    bool
	IsAddressBook bool
	CanWrite      bool

	Principal       string
	CalendarHome    string
	AddressBookHome string

	Err *daverr.Error
}

// Multistatus is a parsed 207 response body.
type Multistatus struct {
	// SyncToken is the collection-level DAV:sync-token of a sync-collection
	// REPORT response (RFC 6578 §6.4), empty elsewhere.
	SyncToken string
	Entries   []Entry
}

// ParseMultistatus parses a multistatus XML body. Structural problems with
// the envelope fail the whole parse; problems inside one response element
// only mark that entry.
func ParseMultistatus(body []byte) (*Multistatus, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, daverr.Parsing("malformed multistatus XML: %v", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "multistatus" {
		return nil, daverr.Parsing("expected multistatus root element")
	}

	ms := &Multistatus{}
	if tok := root.SelectElement("sync-token"); tok != nil {
		ms.SyncToken = strings.TrimSpace(tok.Text())
	}

	for _, respElem := range root.SelectElements("response") {
		ms.Entries = append(ms.Entries, parseResponse(respElem))
	}
	return ms, nil
}

func parseResponse(respElem *etree.Element) Entry {
	entry := Entry{}

	hrefElem := respElem.SelectElement("href")
	if hrefElem == nil || strings.TrimSpace(hrefElem.Text()) == "" {
		entry.Err = daverr.Parsing("response element without href")
		return entry
	}
	entry.Href = strings.TrimSpace(hrefElem.Text())

	// Response-level status: used by sync-collection for removed resources.
	if statusElem := respElem.SelectElement("status"); statusElem != nil {
		entry.Status = parseStatusLine(statusElem.Text())
	}

	for _, propstatElem := range respElem.SelectElements("propstat") {
		status := 0
		if statusElem := propstatElem.SelectElement("status"); statusElem != nil {
			status = parseStatusLine(statusElem.Text())
		}
		if status == 0 {
			entry.Err = daverr.Parsing("propstat without parseable status for %s", entry.Href)
			continue
		}
		if entry.Status == 0 || status == 200 {
			entry.Status = status
		}
		if status != 200 {
			continue
		}
		if propElem := propstatElem.SelectElement("prop"); propElem != nil {
			readProps(&entry, propElem)
		}
	}

	if entry.Status == 0 && entry.Err == nil {
		entry.Err = daverr.Parsing("response for %s carries neither status nor propstat", entry.Href)
	}
	return entry
}

func readProps(entry *Entry, propElem *etree.Element) {
	if e := propElem.SelectElement("getetag"); e != nil {
		if etag := strings.TrimSpace(e.Text()); etag != "" {
			entry.ETag = mo.Some(etag)
		}
	}
	if e := propElem.SelectElement("calendar-data"); e != nil {
		entry.CalendarData = e.Text()
	}
	if e := propElem.SelectElement("address-data"); e != nil {
		entry.AddressData = e.Text()
	}
	if e := propElem.SelectElement("displayname"); e != nil {
		entry.DisplayName = strings.TrimSpace(e.Text())
	}
	if e := propElem.SelectElement("calendar-description"); e != nil {
		entry.Description = strings.TrimSpace(e.Text())
	}
	if e := propElem.SelectElement("addressbook-description"); e != nil && entry.Description == "" {
		entry.Description = strings.TrimSpace(e.Text())
	}
	if e := propElem.SelectElement("calendar-color"); e != nil {
		entry.Color = strings.TrimSpace(e.Text())
	}
	if e := propElem.SelectElement("getctag"); e != nil {
		entry.CTag = strings.TrimSpace(e.Text())
	}
	if e := propElem.SelectElement("sync-token"); e != nil {
		entry.SyncToken = strings.TrimSpace(e.Text())
	}

	if rt := propElem.SelectElement("resourcetype"); rt != nil {
		entry.IsCollection = rt.SelectElement("collection") != nil
		entry.IsCalendar = rt.SelectElement("calendar") != nil
		entry.IsAddressBook = rt.SelectElement("addressbook") != nil
	}

	if ps := propElem.SelectElement("current-user-privilege-set"); ps != nil {
		for _, priv := range ps.SelectElements("privilege") {
			if priv.SelectElement("write") != nil {
				entry.CanWrite = true
				break
			}
		}
	}

	entry.Principal = hrefText(propElem, "current-user-principal")
	entry.CalendarHome = hrefText(propElem, "calendar-home-set")
	entry.AddressBookHome = hrefText(propElem, "addressbook-home-set")
}

func hrefText(propElem *etree.Element, name string) string {
	e := propElem.SelectElement(name)
	if e == nil {
		return ""
	}
	if href := e.SelectElement("href"); href != nil {
		return strings.TrimSpace(href.Text())
	}
	return strings.TrimSpace(e.Text())
}

// parseStatusLine extracts the status code from an HTTP status line like
// "HTTP/1.1 404 Not Found". Returns 0 when no code is found.
func parseStatusLine(line string) int {
	fields := strings.Fields(strings.TrimSpace(line))
	for _, f := range fields {
		if code, err := strconv.Atoi(f); err == nil && code >= 100 && code < 600 {
			return code
		}
	}
	return 0
}

// IsSyncTokenInvalid reports whether an error response body carries the
// DAV:valid-sync-token precondition (RFC 6578 §3.2), the server's way of
// rejecting an expired or unknown sync token.
func IsSyncTokenInvalid(body []byte) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return false
	}
	return doc.FindElement("//valid-sync-token") != nil
}
