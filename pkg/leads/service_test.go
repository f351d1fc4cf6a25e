package leads

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/store"
)

// fakeStore is an in-memory document store keyed by collection name.
// Collections listed in orderedFails reject ordered reads, collections
// in readFails reject all reads.
type fakeStore struct {
	mu           sync.Mutex
	docs         map[string][]store.Document
	orderedFails map[string]bool
	readFails    map[string]bool
	updateFails  map[string]bool
	deleteFails  map[string]bool

	updates   []writeOp
	deletes   []writeOp
	orderedBy map[string]string
}

type writeOp struct {
	collection string
	id         string
	fields     map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:         map[string][]store.Document{},
		orderedFails: map[string]bool{},
		readFails:    map[string]bool{},
		updateFails:  map[string]bool{},
		deleteFails:  map[string]bool{},
		orderedBy:    map[string]string{},
	}
}

// ReadOrdered mimics mongo: a sort on a field the documents do not
// carry still succeeds, returning natural order.
func (f *fakeStore) ReadOrdered(_ context.Context, collection, field string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readFails[collection] || f.orderedFails[collection] {
		return nil, errors.New("index missing")
	}
	f.orderedBy[collection] = field
	return f.docs[collection], nil
}

func (f *fakeStore) Read(_ context.Context, collection string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readFails[collection] {
		return nil, errors.New("permission denied")
	}
	return f.docs[collection], nil
}

func (f *fakeStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, writeOp{collection: collection, id: id, fields: fields})
	if f.updateFails[collection] {
		return errors.New("update failed")
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, writeOp{collection: collection, id: id})
	if f.deleteFails[collection] {
		return errors.New("delete failed")
	}
	return nil
}

func doc(id string, fields map[string]any) store.Document {
	return store.Document{ID: id, Fields: fields}
}

func TestFetchStopsAtFirstNonEmptyCollection(t *testing.T) {
	fs := newFakeStore()
	fs.docs["forms"] = []store.Document{
		doc("f1", map[string]any{"name": "Asha", "createdAt": int64(2000)}),
	}
	fs.docs["submissions"] = []store.Document{
		doc("s1", map[string]any{"name": "Never Seen", "createdAt": int64(9000)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	leads := svc.Leads()
	require.Len(t, leads, 1)
	assert.Equal(t, "f1", leads[0].ID)
	assert.Equal(t, "forms", leads[0].Collection)
}

func TestFetchTagsProvenance(t *testing.T) {
	fs := newFakeStore()
	fs.docs["contacts"] = []store.Document{
		doc("c1", map[string]any{"name": "A", "createdAt": int64(1)}),
		doc("c2", map[string]any{"name": "B", "createdAt": int64(2)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	for _, l := range svc.Leads() {
		assert.Equal(t, "contacts", l.Collection)
	}
}

func TestFetchFallsBackToUnorderedAndSorts(t *testing.T) {
	fs := newFakeStore()
	fs.orderedFails["leads"] = true
	fs.docs["leads"] = []store.Document{
		doc("old", map[string]any{"name": "Old", "createdAt": int64(1_000)}),
		doc("new", map[string]any{"name": "New", "createdAt": int64(3_000)}),
		doc("mid", map[string]any{"name": "Mid", "createdAt": int64(2_000)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	leads := svc.Leads()
	require.Len(t, leads, 3)
	assert.Equal(t, "new", leads[0].ID)
	assert.Equal(t, "mid", leads[1].ID)
	assert.Equal(t, "old", leads[2].ID)
}

func TestFetchReordersWhenOrderFieldAbsent(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("old", map[string]any{"name": "Old", "submittedAt": int64(1_000)}),
		doc("new", map[string]any{"name": "New", "submittedAt": int64(3_000)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	leads := svc.Leads()
	require.Len(t, leads, 2)
	assert.Equal(t, "new", leads[0].ID)
	assert.Equal(t, "old", leads[1].ID)
}

func TestFetchSkipsUnreadableCollections(t *testing.T) {
	fs := newFakeStore()
	fs.readFails["leads"] = true
	fs.readFails["forms"] = true
	fs.docs["submissions"] = []store.Document{
		doc("s1", map[string]any{"name": "Found", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	leads := svc.Leads()
	require.Len(t, leads, 1)
	assert.Equal(t, "submissions", leads[0].Collection)
}

func TestFetchAllEmptyReturnsErrNoLeads(t *testing.T) {
	fs := newFakeStore()

	svc := NewService(fs, nil, nil, nil)
	err := svc.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoLeads)
	assert.ErrorIs(t, svc.LastFetchError(), ErrNoLeads)
	assert.Empty(t, svc.Leads())
}

func TestFetchClearsPreviousError(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, nil, nil, nil)

	require.Error(t, svc.Fetch(context.Background()))

	fs.mu.Lock()
	fs.docs["leads"] = []store.Document{doc("l1", map[string]any{"name": "X"})}
	fs.mu.Unlock()

	require.NoError(t, svc.Fetch(context.Background()))
	assert.NoError(t, svc.LastFetchError())
}

func TestSetStatusOptimisticAndPersistsProvenanceFirst(t *testing.T) {
	fs := newFakeStore()
	fs.docs["forms"] = []store.Document{
		doc("f1", map[string]any{"name": "Asha", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	ok := svc.SetStatus("f1", models.StatusContacted)
	require.True(t, ok)

	// The session list updates before the remote write settles.
	got, found := svc.Get("f1")
	require.True(t, found)
	assert.Equal(t, models.StatusContacted, got.Status)

	svc.Wait()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.updates, 1)
	assert.Equal(t, "forms", fs.updates[0].collection)
	assert.Equal(t, map[string]any{"status": "contacted"}, fs.updates[0].fields)
}

func TestSetStatusProbesFallbackCollections(t *testing.T) {
	fs := newFakeStore()
	fs.docs["forms"] = []store.Document{
		doc("f1", map[string]any{"name": "Asha", "createdAt": int64(1)}),
	}
	fs.updateFails["forms"] = true
	fs.updateFails["leads"] = true

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))
	require.True(t, svc.SetStatus("f1", models.StatusWon))
	svc.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.GreaterOrEqual(t, len(fs.updates), 3)
	assert.Equal(t, "forms", fs.updates[0].collection)
	assert.Equal(t, "leads", fs.updates[1].collection)
	assert.Equal(t, "submissions", fs.updates[2].collection)
}

func TestSetStatusNoRollbackOnPersistFailure(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "Asha", "createdAt": int64(1)}),
	}
	for _, name := range store.DefaultCandidates {
		fs.updateFails[name] = true
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))
	require.True(t, svc.SetStatus("l1", models.StatusLost))
	svc.Wait()

	got, found := svc.Get("l1")
	require.True(t, found)
	assert.Equal(t, models.StatusLost, got.Status)
}

func TestSetStatusSameValueDoesNotWrite(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "Asha", "status": "contacted", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))
	require.True(t, svc.SetStatus("l1", models.StatusContacted))
	svc.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Empty(t, fs.updates)
}

func TestSetStatusUnknownID(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "Asha", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))
	assert.False(t, svc.SetStatus("missing", models.StatusWon))
}

func TestDeleteRemovesLocallyAndRemotely(t *testing.T) {
	fs := newFakeStore()
	fs.docs["submissions"] = []store.Document{
		doc("s1", map[string]any{"name": "A", "createdAt": int64(2)}),
		doc("s2", map[string]any{"name": "B", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	require.True(t, svc.Delete("s1"))
	_, found := svc.Get("s1")
	assert.False(t, found)
	require.Len(t, svc.Leads(), 1)

	svc.Wait()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.deletes, 1)
	assert.Equal(t, "submissions", fs.deletes[0].collection)
	assert.Equal(t, "s1", fs.deletes[0].id)
}

func TestDeleteIsLocallyIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "A", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	require.True(t, svc.Delete("l1"))
	assert.False(t, svc.Delete("l1"))
	svc.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Len(t, fs.deletes, 1)
}

func TestCompanionLeadsReadsOnlyContacts(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "Session", "createdAt": int64(5)}),
	}
	fs.docs["contacts"] = []store.Document{
		doc("c1", map[string]any{"name": "Call Sheet", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)

	got, err := svc.CompanionLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "contacts", got[0].Collection)

	// the session list is untouched
	assert.Empty(t, svc.Leads())
}

func TestCompanionLeadsNewestFirst(t *testing.T) {
	fs := newFakeStore()
	fs.docs["contacts"] = []store.Document{
		doc("old", map[string]any{"name": "Old", "submittedAt": int64(1_000)}),
		doc("new", map[string]any{"name": "New", "submittedAt": int64(3_000)}),
		doc("mid", map[string]any{"name": "Mid", "submittedAt": int64(2_000)}),
	}

	svc := NewService(fs, nil, nil, nil)
	got, err := svc.CompanionLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", got[2].ID)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "submittedAt", fs.orderedBy["contacts"])
}

func TestCompanionLeadsEmptyCollection(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "Session", "createdAt": int64(5)}),
	}

	svc := NewService(fs, nil, nil, nil)
	_, err := svc.CompanionLeads(context.Background())
	assert.ErrorIs(t, err, ErrNoLeads)
}

func TestLeadsReturnsCopy(t *testing.T) {
	fs := newFakeStore()
	fs.docs["leads"] = []store.Document{
		doc("l1", map[string]any{"name": "A", "createdAt": int64(1)}),
	}

	svc := NewService(fs, nil, nil, nil)
	require.NoError(t, svc.Fetch(context.Background()))

	leads := svc.Leads()
	leads[0].Name = "mutated"

	fresh := svc.Leads()
	assert.Equal(t, "A", fresh[0].Name)
}
