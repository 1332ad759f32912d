package database

import (
	"context"
	"sync"
)

// changeFeed fans mutation notifications out to per-collection subscribers.
// Each subscriber gets a buffered channel and Publish never blocks: a full
// buffer already guarantees a pending re-query, so extra notifications are dropped.
type changeFeed struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Change
}

func newChangeFeed() *changeFeed {
	return &changeFeed{subscribers: make(map[string][]chan Change)}
}

// Subscribe registers a channel for collection and returns it with its cancel func.
func (f *changeFeed) Subscribe(collection string) (<-chan Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Change, 64)
	f.subscribers[collection] = append(f.subscribers[collection], ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() { f.unsubscribe(collection, ch) })
	}
}

func (f *changeFeed) unsubscribe(collection string, ch chan Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subscribers[collection]
	for i, sub := range subs {
		if sub == ch {
			f.subscribers[collection] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish notifies every subscriber of the change's collection.
func (f *changeFeed) Publish(change Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subscribers[change.Collection] {
		select {
		case ch <- change:
		default:
		}
	}
}

// closeAll closes every subscriber channel. Used when a store shuts down.
func (f *changeFeed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for collection, subs := range f.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(f.subscribers, collection)
	}
}

// Watch runs q against collection as a live query. onSnapshot receives the
// full result set once immediately and again after every change to the
// collection; snapshots are delivered in order from a single goroutine. A
// failed query is reported to onError and ends the watch. The returned stop
// func releases the subscription and is safe to call more than once.
func Watch[T any](ctx context.Context, s Store, collection string, q Query, onSnapshot func([]T), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe := s.Changes(collection)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			unsubscribe()
		})
	}

	deliver := func() bool {
		var docs []T
		if err := s.Find(ctx, collection, q, &docs); err != nil {
			if ctx.Err() == nil {
				onError(err)
			}
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		onSnapshot(docs)
		return true
	}

	go func() {
		defer stop()
		if !deliver() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				// Coalesce a burst of writes into one snapshot.
				for drained := false; !drained; {
					select {
					case _, ok := <-changes:
						if !ok {
							return
						}
					default:
						drained = true
					}
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return stop
}
