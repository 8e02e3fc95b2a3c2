package curations

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"curator/internal/models"
)

// Store is the relational collaborator behind the cache.
type Store interface {
	ListAll(ctx context.Context) ([]models.CurationRecord, error)
	Insert(ctx context.Context, rec models.CurationRecord) (int64, error)
}

// Entry pairs a curation key with its records, for full-cache listings.
type Entry struct {
	Key     models.CurationKey
	Records []models.CurationRecord
}

// Cache is a process-wide pull-through cache of curation records. A
// read older than the TTL triggers a full synchronous refresh first.
// One mutex covers both the wholesale replace on refresh and the
// per-key append on submit.
type Cache struct {
	store Store
	ttl   time.Duration
	tag   string
	email string
	now   func() time.Time

	mu          sync.Mutex
	lastUpdated time.Time
	entries     map[models.CurationKey][]models.CurationRecord
}

func New(store Store, ttl time.Duration, tag, email string) *Cache {
	return &Cache{
		store:   store,
		ttl:     ttl,
		tag:     tag,
		email:   email,
		now:     time.Now,
		entries: make(map[models.CurationKey][]models.CurationRecord),
	}
}

// Get returns the records for key, refreshing first when stale. An
// unknown key yields an empty slice, not an error.
func (c *Cache) Get(ctx context.Context, key models.CurationKey) ([]models.CurationRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeRefreshLocked(ctx); err != nil {
		return nil, err
	}
	records := c.entries[key]
	if records == nil {
		return []models.CurationRecord{}, nil
	}
	return records, nil
}

// ListAll returns the whole cache as entries sorted by key, refreshing
// first when stale.
func (c *Cache) ListAll(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeRefreshLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(c.entries))
	for key, records := range c.entries {
		out = append(out, Entry{Key: key, Records: records})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.StmtHash != out[j].Key.StmtHash {
			return out[i].Key.StmtHash < out[j].Key.StmtHash
		}
		return out[i].Key.SourceHash < out[j].Key.SourceHash
	})
	return out, nil
}

// Submit persists a new curation through the store and appends the
// resulting record to the in-memory sequence for its key, making it
// visible to readers of this process before the next refresh. A
// storage.BadHashError propagates untouched and leaves the cache
// unmodified.
func (c *Cache) Submit(ctx context.Context, stmtHash, sourceHash int64, errorType, comment, ip string) (int64, error) {
	rec := models.CurationRecord{
		StmtHash:   stmtHash,
		SourceHash: sourceHash,
		ErrorType:  errorType,
		Comment:    comment,
		Email:      c.email,
		IP:         ip,
		Source:     c.tag,
		Date:       c.now(),
	}
	id, err := c.store.Insert(ctx, rec)
	if err != nil {
		return 0, err
	}
	rec.ID = id

	c.mu.Lock()
	defer c.mu.Unlock()
	key := rec.Key()
	c.entries[key] = append(c.entries[key], rec)
	return id, nil
}

// Refresh forces an immediate full rebuild of the cache from the
// store, regardless of age.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) maybeRefreshLocked(ctx context.Context) error {
	if !c.lastUpdated.IsZero() && c.now().Sub(c.lastUpdated) <= c.ttl {
		return nil
	}
	return c.refreshLocked(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	records, err := c.store.ListAll(ctx)
	if err != nil {
		return err
	}
	entries := make(map[models.CurationKey][]models.CurationRecord)
	for _, rec := range records {
		key := rec.Key()
		entries[key] = append(entries[key], rec)
	}
	c.entries = entries
	c.lastUpdated = c.now()
	log.Printf("loaded %d curation keys into cache", len(entries))
	return nil
}
