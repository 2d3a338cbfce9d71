package davclient

import (
	"github.com/cyp0633/davsync/daverr"
	"github.com/cyp0633/davsync/vobject"
	"github.com/samber/mo"
)

// ResourceType classifies a WebDAV node. It is fixed at discovery time.
type ResourceType int

const (
	// TypeResource is a plain leaf resource.
	TypeResource ResourceType = iota
	// TypeCollection is a generic WebDAV collection.
	TypeCollection
	// TypeCalendar is a CalDAV calendar collection.
	TypeCalendar
	// TypeAddressBook is a CardDAV address book collection.
	TypeAddressBook
)

func (t ResourceType) String() string {
	switch t {
	case TypeCollection:
		return "collection"
	case TypeCalendar:
		return "calendar"
	case TypeAddressBook:
		return "addressbook"
	default:
		return "resource"
	}
}

// Resource describes one server-side WebDAV node. URL is its stable identity;
// ETag is the opaque version token the server last assigned, absent until the
// server reports one. ETags are only comparable for the same URL.
type Resource struct {
	URL  string
	ETag mo.Option[string]
	Type ResourceType
}

// CollectionInfo is a discovered calendar or address book collection.
type CollectionInfo struct {
	Resource    Resource
	Name        string
	Description string
	Color       string
	CTag        string
	ReadOnly    bool
}

// Object is one fetched resource: its raw body plus the parsed form matching
// its format. Calendar is set for iCalendar bodies and Card for vCards. A
// per-resource failure (non-200 outcome in a batch, or a body that does not
// parse) sets Err without affecting the other objects of the batch.
type Object struct {
	Resource Resource
	Data     []byte
	Calendar *vobject.Calendar
	Card     *vobject.Card
	Err      *daverr.Error
}

// SyncDelta is the raw server-classified result of one sync-collection
// REPORT: resources that changed or appeared (ETag present) and resources the
// server reports gone. Token is the next cursor.
type SyncDelta struct {
	Token   string
	Changed []Resource
	Removed []string
}
