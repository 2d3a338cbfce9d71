// Package xmlwire builds WebDAV/CalDAV/CardDAV request documents and parses
// multistatus responses. All XML handling in the module goes through here.
package xmlwire

import "github.com/beevik/etree"

// Namespace definitions for WebDAV and its calendaring/addressbook extensions
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CardDAV is the CardDAV namespace
	CardDAV = "urn:ietf:params:xml:ns:carddav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
)

// AddNamespaces adds the standard namespace declarations to the document root.
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns:D", DAV)
	root.CreateAttr("xmlns:C", CalDAV)
	root.CreateAttr("xmlns:CR", CardDAV)
	root.CreateAttr("xmlns:CS", CalendarServer)
	root.CreateAttr("xmlns:ICAL", appleICal)
}

// propPrefix maps requestable property names to their namespace prefix.
var propPrefix = map[string]string{
	"resourcetype":               "D",
	"displayname":                "D",
	"getetag":                    "D",
	"getcontenttype":             "D",
	"current-user-principal":     "D",
	"current-user-privilege-set": "D",
	"sync-token":                 "D",
	"calendar-home-set":          "C",
	"calendar-description":       "C",
	"calendar-data":              "C",
	"calendar-timezone":          "C",
	"addressbook-home-set":       "CR",
	"addressbook-description":    "CR",
	"address-data":               "CR",
	"getctag":                    "CS",
	"calendar-color":             "ICAL",
}

// appleICal is the namespace behind the ICAL prefix.
const appleICal = "http://apple.com/ns/ical/"
