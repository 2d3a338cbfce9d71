package xmlwire

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

const timeRangeLayout = "20060102T150405Z"

// Propfind builds a D:propfind document requesting the named properties.
// Unknown property names are ignored rather than rejected; the server decides
// what it supports.
func Propfind(props ...string) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("D:propfind")
	prop := root.CreateElement("D:prop")
	for _, name := range props {
		prefix, ok := propPrefix[name]
		if !ok {
			continue
		}
		prop.CreateElement(prefix + ":" + name)
	}
	AddNamespaces(doc)
	return doc
}

// SyncCollection builds a D:sync-collection REPORT body (RFC 6578). An empty
// token asks for the initial state; limit <= 0 means no limit element.
func SyncCollection(token string, limit int) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("D:sync-collection")

	root.CreateElement("D:sync-token").SetText(token)
	root.CreateElement("D:sync-level").SetText("1")
	if limit > 0 {
		root.CreateElement("D:limit").CreateElement("D:nresults").SetText(strconv.Itoa(limit))
	}
	root.CreateElement("D:prop").CreateElement("D:getetag")

	AddNamespaces(doc)
	return doc
}

// CalendarQuery builds a C:calendar-query REPORT body filtering on one
// component type, optionally restricted to a time range.
func CalendarQuery(component string, start, end mo.Option[time.Time]) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("C:calendar-query")

	prop := root.CreateElement("D:prop")
	prop.CreateElement("D:getetag")
	prop.CreateElement("C:calendar-data")

	filter := root.CreateElement("C:filter")
	calFilter := filter.CreateElement("C:comp-filter")
	calFilter.CreateAttr("name", "VCALENDAR")
	compFilter := calFilter.CreateElement("C:comp-filter")
	compFilter.CreateAttr("name", component)

	if start.IsPresent() || end.IsPresent() {
		timeRange := compFilter.CreateElement("C:time-range")
		if s, ok := start.Get(); ok {
			timeRange.CreateAttr("start", s.UTC().Format(timeRangeLayout))
		}
		if e, ok := end.Get(); ok {
			timeRange.CreateAttr("end", e.UTC().Format(timeRangeLayout))
		}
	}

	AddNamespaces(doc)
	return doc
}

// AddressbookQuery builds a CR:addressbook-query REPORT body requesting every
// address object with its data.
func AddressbookQuery() *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("CR:addressbook-query")

	prop := root.CreateElement("D:prop")
	prop.CreateElement("D:getetag")
	prop.CreateElement("CR:address-data")

	AddNamespaces(doc)
	return doc
}

// CalendarMultiget builds a C:calendar-multiget REPORT body fetching the
// given hrefs with their bodies and ETags.
func CalendarMultiget(hrefs []string) *etree.Document {
	return multiget("C:calendar-multiget", "C:calendar-data", hrefs)
}

// AddressbookMultiget builds a CR:addressbook-multiget REPORT body.
func AddressbookMultiget(hrefs []string) *etree.Document {
	return multiget("CR:addressbook-multiget", "CR:address-data", hrefs)
}

func multiget(rootName, dataName string, hrefs []string) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement(rootName)

	prop := root.CreateElement("D:prop")
	prop.CreateElement("D:getetag")
	prop.CreateElement(dataName)

	for _, href := range hrefs {
		root.CreateElement("D:href").SetText(href)
	}

	AddNamespaces(doc)
	return doc
}
