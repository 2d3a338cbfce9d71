package davclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyp0633/davsync/daverr"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarData() string {
	return `BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:event-1
SUMMARY:Standup
DTSTART:20240311T090000Z
END:VEVENT
END:VCALENDAR`
}

func TestFetchRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "calendar-query")
		assert.Contains(t, string(body), `start="20240301T000000Z"`)
		assert.Contains(t, string(body), `end="20240401T000000Z"`)

		writeMultistatus(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/work/a.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"e-a"</d:getetag>
        <c:calendar-data>`+calendarData()+`</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
	}))
	defer server.Close()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	objects, err := newTestClient(t, server).FetchRange(context.Background(), server.URL+"/cal/work/", start, end)
	require.NoError(t, err)
	require.Len(t, objects, 1)

	obj := objects[0]
	require.Nil(t, obj.Err)
	assert.Equal(t, `"e-a"`, obj.Resource.ETag.MustGet())
	require.NotNil(t, obj.Calendar)
	require.Len(t, obj.Calendar.Entities, 1)
	assert.Equal(t, "event-1", obj.Calendar.Entities[0].UID)
	assert.Equal(t, "Standup", obj.Calendar.Entities[0].Summary)
}

func TestMultiGetCalendarPartialOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "calendar-multiget")

		writeMultistatus(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/work/a.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"e-a"</d:getetag>
        <c:calendar-data>`+calendarData()+`</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/work/missing.ics</d:href>
    <d:status>HTTP/1.1 404 Not Found</d:status>
  </d:response>
</d:multistatus>`)
	}))
	defer server.Close()

	objects, err := newTestClient(t, server).MultiGetCalendar(context.Background(),
		server.URL+"/cal/work/", []string{"/cal/work/a.ics", "/cal/work/missing.ics"})
	require.NoError(t, err, "one missing resource must not fail the batch")
	require.Len(t, objects, 2)

	assert.Nil(t, objects[0].Err)
	assert.NotNil(t, objects[0].Calendar)

	require.NotNil(t, objects[1].Err)
	assert.Equal(t, daverr.KindNotFound, objects[1].Err.Kind)
}

func TestCreateCalendarObjectETagFallback(t *testing.T) {
	var createdPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			createdPath = r.URL.Path
			assert.Equal(t, "*", r.Header.Get("If-None-Match"))
			// No ETag header in the response on purpose.
			w.WriteHeader(http.StatusCreated)
		case "PROPFIND":
			assert.Equal(t, createdPath, r.URL.Path)
			writeMultistatus(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>`+createdPath+`</d:href>
    <d:propstat>
      <d:prop><d:getetag>"fresh"</d:getetag></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uuid.New().String())
	event.Props.SetText(ical.PropSummary, "Created")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Now().UTC())

	objectURL, etag, err := newTestClient(t, server).CreateCalendarObject(context.Background(),
		server.URL+"/cal/work/", event)
	require.NoError(t, err)
	assert.Contains(t, objectURL, ".ics")
	assert.Equal(t, `"fresh"`, etag)
}

func TestDeleteConditional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		if r.Header.Get("If-Match") != `"current"` {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	c := newTestClient(t, server)
	ctx := context.Background()

	err := c.Delete(ctx, server.URL+"/cal/work/a.ics", mo.Some(`"stale"`))
	require.Error(t, err)
	assert.True(t, daverr.IsKind(err, daverr.KindPreconditionFailed))

	assert.NoError(t, c.Delete(ctx, server.URL+"/cal/work/a.ics", mo.Some(`"current"`)))
}
