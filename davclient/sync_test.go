package davclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListObjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PROPFIND", r.Method)
		require.Equal(t, "1", r.Header.Get("Depth"))
		writeMultistatus(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/work/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <d:sync-token>http://example.com/sync/10</d:sync-token>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/work/a.ics</d:href>
    <d:propstat>
      <d:prop><d:getetag>"e-a"</d:getetag><d:resourcetype/></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/work/b.ics</d:href>
    <d:propstat>
      <d:prop><d:getetag>"e-b"</d:getetag><d:resourcetype/></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
	}))
	defer server.Close()

	resources, token, err := newTestClient(t, server).ListObjects(context.Background(), server.URL+"/cal/work/")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/sync/10", token)
	require.Len(t, resources, 2, "the collection entry is not a member")
	assert.Equal(t, server.URL+"/cal/work/a.ics", resources[0].URL)
	assert.Equal(t, `"e-a"`, resources[0].ETag.MustGet())
}

func TestSyncCollectionDelta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "sync-collection")
		assert.Contains(t, string(body), "http://example.com/sync/10")

		writeMultistatus(w, `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/work/a.ics</D:href>
    <D:propstat>
      <D:prop><D:getetag>"e-a2"</D:getetag></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/cal/work/b.ics</D:href>
    <D:status>HTTP/1.1 404 Not Found</D:status>
  </D:response>
  <D:sync-token>http://example.com/sync/11</D:sync-token>
</D:multistatus>`)
	}))
	defer server.Close()

	delta, err := newTestClient(t, server).SyncCollection(context.Background(),
		server.URL+"/cal/work/", mo.Some("http://example.com/sync/10"))
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/sync/11", delta.Token)
	require.Len(t, delta.Changed, 1)
	assert.Equal(t, server.URL+"/cal/work/a.ics", delta.Changed[0].URL)
	assert.Equal(t, `"e-a2"`, delta.Changed[0].ETag.MustGet())
	require.Len(t, delta.Removed, 1)
	assert.Equal(t, server.URL+"/cal/work/b.ics", delta.Removed[0])
}

func TestSyncCollectionExpiredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `<?xml version="1.0"?><D:error xmlns:D="DAV:"><D:valid-sync-token/></D:error>`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SyncCollection(context.Background(),
		server.URL+"/cal/work/", mo.Some("stale-token"))
	require.Error(t, err)
	assert.True(t, daverr.IsKind(err, daverr.KindSyncTokenExpired))
}

func TestCollectionTagPrefersCTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMultistatus(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:cs="http://calendarserver.org/ns/">
  <d:response>
    <d:href>/cal/work/</d:href>
    <d:propstat>
      <d:prop><cs:getctag>ctag-3</cs:getctag><d:getetag>"col-etag"</d:getetag></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
	}))
	defer server.Close()

	tag, err := newTestClient(t, server).CollectionTag(context.Background(), server.URL+"/cal/work/")
	require.NoError(t, err)
	assert.Equal(t, "ctag-3", tag)
}
