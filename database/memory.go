package database

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. It backs tests and
// SPEARMINT_STORE=memory; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]document
	feed        *changeFeed
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]document),
		feed:        newChangeFeed(),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for server timestamps.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Insert adds a document and returns its generated id.
func (s *MemoryStore) Insert(ctx context.Context, collection string, doc any, stamp ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	d, id, err := prepareInsert(doc, s.now(), stamp)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.collections[collection] = append(s.collections[collection], d)
	s.mu.Unlock()

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

// InsertUnique checks for a matching document and inserts under the same lock.
func (s *MemoryStore) InsertUnique(ctx context.Context, collection string, doc any, unique Query, stamp ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	nq, err := normalizeQuery(unique)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	for _, existing := range s.collections[collection] {
		if existing.matches(nq) {
			s.mu.Unlock()
			return "", ErrConflict
		}
	}
	d, id, err := prepareInsert(doc, s.now(), stamp)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.collections[collection] = append(s.collections[collection], d)
	s.mu.Unlock()

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

// Get decodes the document with the given id into out.
func (s *MemoryStore) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.collections[collection] {
		if d["id"] == id {
			return decodeDocument(d, out)
		}
	}
	return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
}

// Find decodes every document matching q into out.
func (s *MemoryStore) Find(ctx context.Context, collection string, q Query, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nq, err := normalizeQuery(q)
	if err != nil {
		return err
	}
	s.mu.RLock()
	docs := selectDocuments(s.collections[collection], nq)
	err = decodeDocuments(docs, out)
	s.mu.RUnlock()
	return err
}

// Update merges fields into an existing document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	var target document
	for _, d := range s.collections[collection] {
		if d["id"] == id {
			target = d
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	// Apply to a copy so a bad field leaves the stored document untouched.
	updated := make(document, len(target))
	for k, v := range target {
		updated[k] = v
	}
	if err := applyFields(updated, fields, s.now()); err != nil {
		s.mu.Unlock()
		return err
	}
	for k, v := range updated {
		target[k] = v
	}
	s.mu.Unlock()

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeUpdate})
	return nil
}

// Delete removes a document.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	docs := s.collections[collection]
	found := false
	for i, d := range docs {
		if d["id"] == id {
			s.collections[collection] = append(docs[:i], docs[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeDelete})
	return nil
}

// Changes subscribes to mutations of collection.
func (s *MemoryStore) Changes(collection string) (<-chan Change, func()) {
	return s.feed.Subscribe(collection)
}

// Close releases every change subscription.
func (s *MemoryStore) Close() error {
	s.feed.closeAll()
	return nil
}
