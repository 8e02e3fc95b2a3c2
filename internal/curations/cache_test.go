package curations

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator/internal/models"
	"curator/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records   []models.CurationRecord
	nextID    int64
	knownHash map[int64]bool
	listCalls int
}

func newFakeStore(known ...int64) *fakeStore {
	s := &fakeStore{nextID: 1, knownHash: make(map[int64]bool)}
	for _, h := range known {
		s.knownHash[h] = true
	}
	return s
}

func (s *fakeStore) ListAll(context.Context) ([]models.CurationRecord, error) {
	s.listCalls++
	out := make([]models.CurationRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, rec models.CurationRecord) (int64, error) {
	if !s.knownHash[rec.StmtHash] {
		return 0, &storage.BadHashError{Hash: rec.StmtHash}
	}
	id := s.nextID
	s.nextID++
	rec.ID = id
	s.records = append(s.records, rec)
	return id, nil
}

func newTestCache(store Store) (*Cache, *time.Time) {
	c := New(store, time.Hour, "test-tag", "curator@example.org")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetRefreshesWhenNeverLoaded(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestCache(store)

	records, err := c.Get(context.Background(), models.CurationKey{StmtHash: 1, SourceHash: 2})
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, 1, store.listCalls)
}

func TestGetTTL(t *testing.T) {
	store := newFakeStore()
	c, now := newTestCache(store)

	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.Equal(t, 1, store.listCalls)

	// Fresh cache: no refresh on read.
	*now = now.Add(30 * time.Minute)
	_, err := c.Get(ctx, models.CurationKey{StmtHash: 1, SourceHash: 2})
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)

	// Stale cache: exactly one refresh before answering.
	*now = now.Add(31 * time.Minute)
	_, err = c.Get(ctx, models.CurationKey{StmtHash: 1, SourceHash: 2})
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls)

	_, err = c.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls)
}

func TestSubmitImmediatelyVisible(t *testing.T) {
	store := newFakeStore(111)
	c, _ := newTestCache(store)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	id, err := c.Submit(ctx, 111, 222, "grounding", "wrong grounding", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	// Visible without any further refresh.
	records, err := c.Get(ctx, models.CurationKey{StmtHash: 111, SourceHash: 222})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(1), records[0].ID)
	require.Equal(t, "grounding", records[0].ErrorType)
	require.Equal(t, "test-tag", records[0].Source)
	require.Equal(t, "curator@example.org", records[0].Email)
	require.Equal(t, "10.0.0.1", records[0].IP)
	require.Equal(t, 1, store.listCalls)
}

func TestSubmitBadHashLeavesCacheUntouched(t *testing.T) {
	store := newFakeStore(111)
	c, _ := newTestCache(store)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	_, err := c.Submit(ctx, 999, 222, "grounding", "", "10.0.0.1")
	var badHash *storage.BadHashError
	require.True(t, errors.As(err, &badHash))
	require.Equal(t, int64(999), badHash.Hash)

	records, err := c.Get(ctx, models.CurationKey{StmtHash: 999, SourceHash: 222})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRefreshGroupsByKey(t *testing.T) {
	store := newFakeStore(1, 2)
	ctx := context.Background()
	for _, rec := range []models.CurationRecord{
		{StmtHash: 1, SourceHash: 10, ErrorType: "a"},
		{StmtHash: 2, SourceHash: 20, ErrorType: "b"},
		{StmtHash: 1, SourceHash: 10, ErrorType: "c"},
	} {
		_, err := store.Insert(ctx, rec)
		require.NoError(t, err)
	}

	c, _ := newTestCache(store)
	entries, err := c.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, models.CurationKey{StmtHash: 1, SourceHash: 10}, entries[0].Key)
	require.Len(t, entries[0].Records, 2)
	// Query-return order within a key.
	require.Equal(t, "a", entries[0].Records[0].ErrorType)
	require.Equal(t, "c", entries[0].Records[1].ErrorType)
	require.Len(t, entries[1].Records, 1)
}

func TestRefreshReplacesWholesale(t *testing.T) {
	store := newFakeStore(111)
	c, _ := newTestCache(store)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	_, err := c.Submit(ctx, 111, 222, "grounding", "", "10.0.0.1")
	require.NoError(t, err)

	// The submit was persisted, so it survives a full rebuild.
	require.NoError(t, c.Refresh(ctx))
	records, err := c.Get(ctx, models.CurationKey{StmtHash: 111, SourceHash: 222})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// An entry present only in memory does not.
	store.records = nil
	require.NoError(t, c.Refresh(ctx))
	records, err = c.Get(ctx, models.CurationKey{StmtHash: 111, SourceHash: 222})
	require.NoError(t, err)
	require.Empty(t, records)
}
