// Package davsync drives incremental synchronization of CalDAV and CardDAV
// collections on top of the davclient protocol layer. Each collection moves
// through a small state machine: never synced, fully synced with a stored
// sync token, and a transient in-flight phase while a cycle runs. A cycle
// reads its state snapshot up front and commits the new token and ETag cache
// atomically only when the whole cycle succeeds, so a failed or cancelled
// cycle leaves the previous state untouched.
package davsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cyp0633/davsync/davclient"
	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
)

// Object is one synchronized resource with its fetched body and parsed form.
type Object = davclient.Object

// ChangeSet is the outcome of one sync cycle. A URL appears in at most one of
// the three lists. Added and Modified carry the new ETag and the parsed
// entity; Deleted carries URLs only. Token is the cursor to persist for the
// next cycle.
type ChangeSet struct {
	Added    []Object
	Modified []Object
	Deleted  []string
	Token    string
}

// Empty reports whether the cycle observed no changes.
func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Protocol is the slice of davclient.Client the engine needs. davclient.Client
// satisfies it.
type Protocol interface {
	ListObjects(ctx context.Context, collectionURL string) ([]davclient.Resource, string, error)
	SyncCollection(ctx context.Context, collectionURL string, token mo.Option[string]) (*davclient.SyncDelta, error)
	MultiGetCalendar(ctx context.Context, collectionURL string, hrefs []string) ([]davclient.Object, error)
	MultiGetAddressBook(ctx context.Context, collectionURL string, hrefs []string) ([]davclient.Object, error)
}

type collectionState struct {
	syncing bool
	token   mo.Option[string]
	etags   map[string]string
}

// Engine synchronizes collections against a DAV server. It is safe for
// concurrent use; cycles for distinct collections run independently, while a
// second cycle for a collection already in flight is refused.
type Engine struct {
	client Protocol
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]*collectionState
}

// NewEngine creates an Engine on top of client. A nil logger discards output.
func NewEngine(client Protocol, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		client: client,
		logger: logger,
		states: make(map[string]*collectionState),
	}
}

// Synchronize runs one sync cycle for a calendar collection. With no stored
// token it performs a full fetch and reports every resource as Added; with a
// stored token it issues a sync-collection REPORT and classifies the server's
// delta into Added, Modified and Deleted. When the server rejects the stored
// token the engine forgets it, returns a SyncTokenExpired error and leaves
// the re-invocation (which will then be a full fetch) to the caller.
func (e *Engine) Synchronize(ctx context.Context, collectionURL string) (*ChangeSet, error) {
	return e.synchronize(ctx, collectionURL, e.client.MultiGetCalendar)
}

// SynchronizeAddressBook runs one sync cycle for an address book collection,
// fetching bodies through the addressbook-multiget REPORT. Semantics are
// otherwise identical to Synchronize.
func (e *Engine) SynchronizeAddressBook(ctx context.Context, collectionURL string) (*ChangeSet, error) {
	return e.synchronize(ctx, collectionURL, e.client.MultiGetAddressBook)
}

type multiGetFunc func(ctx context.Context, collectionURL string, hrefs []string) ([]davclient.Object, error)

func (e *Engine) synchronize(ctx context.Context, collectionURL string, fetch multiGetFunc) (*ChangeSet, error) {
	token, etags, err := e.begin(collectionURL)
	if err != nil {
		return nil, err
	}
	defer e.end(collectionURL)

	var (
		cs       *ChangeSet
		newETags map[string]string
	)
	if token.IsAbsent() {
		cs, newETags, err = e.fullSync(ctx, collectionURL, fetch)
	} else {
		cs, newETags, err = e.incrementalSync(ctx, collectionURL, token, etags, fetch)
	}
	if err != nil {
		if daverr.IsKind(err, daverr.KindSyncTokenExpired) {
			e.reset(collectionURL)
			e.logger.Debug("sync token rejected, collection reset", "url", collectionURL)
		}
		return nil, err
	}

	e.commit(collectionURL, cs.Token, newETags)
	e.logger.Debug("sync cycle complete", "url", collectionURL,
		"added", len(cs.Added), "modified", len(cs.Modified), "deleted", len(cs.Deleted))
	return cs, nil
}

// begin snapshots the collection state and marks a cycle in flight. The
// returned ETag map is a copy; mutating it never touches committed state.
func (e *Engine) begin(collectionURL string) (mo.Option[string], map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[collectionURL]
	if st == nil {
		st = &collectionState{etags: make(map[string]string)}
		e.states[collectionURL] = st
	}
	if st.syncing {
		return mo.None[string](), nil, daverr.Conflict(fmt.Sprintf("sync already in progress for %s", collectionURL))
	}
	st.syncing = true

	etags := make(map[string]string, len(st.etags))
	for k, v := range st.etags {
		etags[k] = v
	}
	return st.token, etags, nil
}

func (e *Engine) end(collectionURL string) {
	e.mu.Lock()
	e.states[collectionURL].syncing = false
	e.mu.Unlock()
}

func (e *Engine) commit(collectionURL, token string, etags map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[collectionURL]
	if token != "" {
		st.token = mo.Some(token)
	} else {
		st.token = mo.None[string]()
	}
	st.etags = etags
}

func (e *Engine) reset(collectionURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[collectionURL]
	st.token = mo.None[string]()
	st.etags = make(map[string]string)
}

// fullSync lists every member resource, fetches all bodies in one multiget
// and reports the whole collection as Added.
func (e *Engine) fullSync(ctx context.Context, collectionURL string, fetch multiGetFunc) (*ChangeSet, map[string]string, error) {
	resources, token, err := e.client.ListObjects(ctx, collectionURL)
	if err != nil {
		return nil, nil, err
	}

	hrefs := make([]string, 0, len(resources))
	etags := make(map[string]string, len(resources))
	for _, r := range resources {
		hrefs = append(hrefs, r.URL)
		if etag, ok := r.ETag.Get(); ok {
			etags[r.URL] = etag
		}
	}

	objects, err := fetch(ctx, collectionURL, hrefs)
	if err != nil {
		return nil, nil, err
	}

	cs := &ChangeSet{Added: objects, Token: token}
	resolveDuplicateUIDs(cs)
	return cs, etags, nil
}

// incrementalSync classifies the server's sync-collection delta against the
// ETag cache snapshot: removed entries become Deleted, entries for unseen
// URLs become Added, entries whose ETag differs from the cached one become
// Modified, and entries whose ETag matches are skipped.
func (e *Engine) incrementalSync(ctx context.Context, collectionURL string, token mo.Option[string], etags map[string]string, fetch multiGetFunc) (*ChangeSet, map[string]string, error) {
	delta, err := e.client.SyncCollection(ctx, collectionURL, token)
	if err != nil {
		return nil, nil, err
	}

	// Deletion wins when a misbehaving server reports the same href both
	// changed and removed, keeping the three lists URL-disjoint.
	cs := &ChangeSet{Token: delta.Token}
	removed := make(map[string]bool, len(delta.Removed))
	for _, href := range delta.Removed {
		if removed[href] {
			continue
		}
		removed[href] = true
		cs.Deleted = append(cs.Deleted, href)
		delete(etags, href)
	}

	var addedHrefs, modifiedHrefs []string
	for _, r := range delta.Changed {
		if removed[r.URL] {
			continue
		}
		etag, _ := r.ETag.Get()
		prior, known := etags[r.URL]
		switch {
		case !known:
			addedHrefs = append(addedHrefs, r.URL)
		case prior != etag:
			modifiedHrefs = append(modifiedHrefs, r.URL)
		default:
			continue
		}
		if etag != "" {
			etags[r.URL] = etag
		}
	}

	if len(addedHrefs)+len(modifiedHrefs) > 0 {
		objects, err := fetch(ctx, collectionURL, append(addedHrefs, modifiedHrefs...))
		if err != nil {
			return nil, nil, err
		}
		added := make(map[string]bool, len(addedHrefs))
		for _, href := range addedHrefs {
			added[href] = true
		}
		for _, obj := range objects {
			if added[obj.Resource.URL] {
				cs.Added = append(cs.Added, obj)
			} else {
				cs.Modified = append(cs.Modified, obj)
			}
		}
	}

	resolveDuplicateUIDs(cs)
	return cs, etags, nil
}

// resolveDuplicateUIDs drops all but the authoritative entry when two objects
// across Added and Modified carry the same UID: the one with the higher
// SEQUENCE wins, earlier entry on a tie.
func resolveDuplicateUIDs(cs *ChangeSet) {
	type slot struct {
		list *[]Object
		idx  int
		seq  int
	}
	best := make(map[string]slot)
	drop := make(map[*[]Object]map[int]bool)

	mark := func(list *[]Object, idx int) {
		if drop[list] == nil {
			drop[list] = make(map[int]bool)
		}
		drop[list][idx] = true
	}

	scan := func(list *[]Object) {
		for i, obj := range *list {
			uid, seq := objectIdentity(obj)
			if uid == "" {
				continue
			}
			prev, seen := best[uid]
			if !seen {
				best[uid] = slot{list: list, idx: i, seq: seq}
				continue
			}
			if seq > prev.seq {
				mark(prev.list, prev.idx)
				best[uid] = slot{list: list, idx: i, seq: seq}
			} else {
				mark(list, i)
			}
		}
	}
	scan(&cs.Added)
	scan(&cs.Modified)

	if len(drop) == 0 {
		return
	}
	prune := func(list *[]Object) {
		dead := drop[list]
		if len(dead) == 0 {
			return
		}
		kept := (*list)[:0]
		for i, obj := range *list {
			if !dead[i] {
				kept = append(kept, obj)
			}
		}
		*list = kept
	}
	prune(&cs.Added)
	prune(&cs.Modified)
}

// objectIdentity extracts the UID and highest SEQUENCE of a fetched object.
func objectIdentity(obj Object) (string, int) {
	if obj.Calendar != nil {
		uid, seq := "", 0
		for _, ent := range obj.Calendar.Entities {
			if uid == "" {
				uid = ent.UID
			}
			if ent.UID == uid && ent.Sequence > seq {
				seq = ent.Sequence
			}
		}
		return uid, seq
	}
	if obj.Card != nil {
		return obj.Card.UID, 0
	}
	return "", 0
}

type stateBlob struct {
	Token string            `json:"token,omitempty"`
	ETags map[string]string `json:"etags,omitempty"`
}

// State serializes the stored token and ETag cache of a collection as an
// opaque blob the caller may persist across restarts. A collection that was
// never synchronized yields a blob that restores to the never-synced state.
func (e *Engine) State(collectionURL string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	blob := stateBlob{}
	if st := e.states[collectionURL]; st != nil {
		blob.Token = st.token.OrElse("")
		blob.ETags = st.etags
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sync state: %w", err)
	}
	return data, nil
}

// Restore replaces the stored state of a collection with a blob previously
// produced by State. It refuses to replace state while a cycle is in flight.
func (e *Engine) Restore(collectionURL string, data []byte) error {
	var blob stateBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to restore sync state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[collectionURL]
	if st == nil {
		st = &collectionState{}
		e.states[collectionURL] = st
	}
	if st.syncing {
		return daverr.Conflict(fmt.Sprintf("sync in progress for %s", collectionURL))
	}
	if blob.Token != "" {
		st.token = mo.Some(blob.Token)
	} else {
		st.token = mo.None[string]()
	}
	st.etags = blob.ETags
	if st.etags == nil {
		st.etags = make(map[string]string)
	}
	return nil
}
