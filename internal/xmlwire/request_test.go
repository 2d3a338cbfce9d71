package xmlwire

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip serializes a document and parses it back, so assertions run
// against what would actually go on the wire.
func roundTrip(t *testing.T, doc *etree.Document) *etree.Document {
	t.Helper()
	text, err := doc.WriteToString()
	require.NoError(t, err)

	parsed := etree.NewDocument()
	require.NoError(t, parsed.ReadFromString(text))
	return parsed
}

func TestPropfind(t *testing.T) {
	doc := roundTrip(t, Propfind("getetag", "resourcetype", "no-such-prop"))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "propfind", root.Tag)

	prop := root.SelectElement("prop")
	require.NotNil(t, prop)
	assert.NotNil(t, prop.SelectElement("getetag"))
	assert.NotNil(t, prop.SelectElement("resourcetype"))
	assert.Len(t, prop.ChildElements(), 2, "unknown property names are dropped")
}

func TestSyncCollection(t *testing.T) {
	doc := roundTrip(t, SyncCollection("http://example.com/sync/41", 100))

	root := doc.Root()
	require.Equal(t, "sync-collection", root.Tag)

	token := root.SelectElement("sync-token")
	require.NotNil(t, token)
	assert.Equal(t, "http://example.com/sync/41", token.Text())

	level := root.SelectElement("sync-level")
	require.NotNil(t, level)
	assert.Equal(t, "1", level.Text())

	limit := root.SelectElement("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "100", limit.SelectElement("nresults").Text())

	prop := root.SelectElement("prop")
	require.NotNil(t, prop)
	assert.NotNil(t, prop.SelectElement("getetag"))
}

func TestSyncCollectionInitial(t *testing.T) {
	doc := roundTrip(t, SyncCollection("", 0))

	root := doc.Root()
	token := root.SelectElement("sync-token")
	require.NotNil(t, token, "initial sync still sends an empty sync-token element")
	assert.Equal(t, "", token.Text())
	assert.Nil(t, root.SelectElement("limit"))
}

func TestCalendarQuery(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	doc := roundTrip(t, CalendarQuery("VEVENT", mo.Some(start), mo.Some(end)))

	root := doc.Root()
	require.Equal(t, "calendar-query", root.Tag)

	outer := root.SelectElement("filter").SelectElement("comp-filter")
	require.NotNil(t, outer)
	assert.Equal(t, "VCALENDAR", outer.SelectAttrValue("name", ""))

	inner := outer.SelectElement("comp-filter")
	require.NotNil(t, inner)
	assert.Equal(t, "VEVENT", inner.SelectAttrValue("name", ""))

	tr := inner.SelectElement("time-range")
	require.NotNil(t, tr)
	assert.Equal(t, "20240301T000000Z", tr.SelectAttrValue("start", ""))
	assert.Equal(t, "20240401T000000Z", tr.SelectAttrValue("end", ""))
}

func TestCalendarQueryWithoutRange(t *testing.T) {
	doc := roundTrip(t, CalendarQuery("VTODO", mo.None[time.Time](), mo.None[time.Time]()))

	inner := doc.Root().SelectElement("filter").SelectElement("comp-filter").SelectElement("comp-filter")
	require.NotNil(t, inner)
	assert.Equal(t, "VTODO", inner.SelectAttrValue("name", ""))
	assert.Nil(t, inner.SelectElement("time-range"))
}

func TestMultigets(t *testing.T) {
	hrefs := []string{"/cal/a.ics", "/cal/b.ics"}

	cal := roundTrip(t, CalendarMultiget(hrefs))
	require.Equal(t, "calendar-multiget", cal.Root().Tag)
	assert.Len(t, cal.Root().SelectElements("href"), 2)
	assert.NotNil(t, cal.Root().SelectElement("prop").SelectElement("calendar-data"))

	card := roundTrip(t, AddressbookMultiget(hrefs[:1]))
	require.Equal(t, "addressbook-multiget", card.Root().Tag)
	assert.Len(t, card.Root().SelectElements("href"), 1)
	assert.NotNil(t, card.Root().SelectElement("prop").SelectElement("address-data"))
}
