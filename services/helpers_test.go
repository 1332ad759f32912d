package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CrowderSoup/spearmint/database"
)

var errStoreDown = errors.New("store unavailable")

// spyStore wraps a store, counting calls and optionally failing them.
type spyStore struct {
	database.Store

	mu       sync.Mutex
	reads    int
	writes   int
	updates  []database.Fields
	failRead bool
	failMut  bool
}

func newSpyStore() *spyStore {
	return &spyStore{Store: database.NewMemoryStore()}
}

func (s *spyStore) read() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.failRead {
		return errStoreDown
	}
	return nil
}

func (s *spyStore) write() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failMut {
		return errStoreDown
	}
	return nil
}

func (s *spyStore) counts() (reads, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.writes
}

func (s *spyStore) setFailRead(v bool) {
	s.mu.Lock()
	s.failRead = v
	s.mu.Unlock()
}

func (s *spyStore) setFailMut(v bool) {
	s.mu.Lock()
	s.failMut = v
	s.mu.Unlock()
}

func (s *spyStore) Insert(ctx context.Context, collection string, doc any, stamp ...string) (string, error) {
	if err := s.write(); err != nil {
		return "", err
	}
	return s.Store.Insert(ctx, collection, doc, stamp...)
}

func (s *spyStore) InsertUnique(ctx context.Context, collection string, doc any, unique database.Query, stamp ...string) (string, error) {
	if err := s.write(); err != nil {
		return "", err
	}
	return s.Store.InsertUnique(ctx, collection, doc, unique, stamp...)
}

func (s *spyStore) Update(ctx context.Context, collection, id string, fields database.Fields) error {
	if err := s.write(); err != nil {
		return err
	}
	s.mu.Lock()
	s.updates = append(s.updates, fields)
	s.mu.Unlock()
	return s.Store.Update(ctx, collection, id, fields)
}

func (s *spyStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *spyStore) Get(ctx context.Context, collection, id string, out any) error {
	if err := s.read(); err != nil {
		return err
	}
	return s.Store.Get(ctx, collection, id, out)
}

func (s *spyStore) Find(ctx context.Context, collection string, q database.Query, out any) error {
	if err := s.read(); err != nil {
		return err
	}
	return s.Store.Find(ctx, collection, q, out)
}

var alice = Session{Username: "alice", Fullname: "Alice Mint", Email: "alice@example.com"}

func fixedToday(date string) func() string {
	return func() string { return date }
}

// seedTask inserts a task directly, bypassing validation.
func seedTask(t *testing.T, store database.Store, owner, title string, lane database.Lane, priority database.Priority, start string) string {
	t.Helper()
	id, err := store.Insert(context.Background(), database.KanbanTasksCollection, database.Task{
		OwnerID:   owner,
		Title:     title,
		Priority:  priority,
		StartDate: start,
		Status:    lane,
	}, "createdAt")
	if err != nil {
		t.Fatalf("seed task %q: %v", title, err)
	}
	return id
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
