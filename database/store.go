package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by InsertUnique when a matching document already exists.
	ErrConflict = errors.New("document already exists")
	// ErrUnknownDriver is returned by Open for an unsupported backend name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is a document database holding Spearmint collections. Documents are
// structs with json and bson tags; every backend assigns the id on insert.
type Store interface {
	// Insert adds doc to collection and returns the generated id. Fields listed
	// in stamp that are missing from doc are set to the store's clock.
	Insert(ctx context.Context, collection string, doc any, stamp ...string) (string, error)
	// InsertUnique inserts doc only if no document matches unique.
	InsertUnique(ctx context.Context, collection string, doc any, unique Query, stamp ...string) (string, error)
	Get(ctx context.Context, collection, id string, out any) error
	// Find decodes every match into out, which must point to a slice.
	Find(ctx context.Context, collection string, q Query, out any) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	// Changes subscribes to mutation notifications for a collection. The
	// returned cancel func must be called to release the subscription.
	Changes(collection string) (<-chan Change, func())
	Close() error
}

// Fields is a partial document used by Update.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when used as an Update value.
var ServerTimestamp = serverTimestamp{}

type increment struct {
	by int
}

// Increment adds n to a numeric field when used as an Update value. The
// read and the write happen inside the backend's update, so concurrent
// increments are not lost. A missing field counts as zero.
func Increment(n int) any {
	return increment{by: n}
}

// Filter is an equality condition on a document field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents by equality filters with optional ordering.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Where starts a query with a single equality filter.
func Where(field string, value any) Query {
	return Query{Filters: []Filter{{Field: field, Value: value}}}
}

// And adds an equality filter.
func (q Query) And(field string, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// Order sorts results by field.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = field
	q.Desc = desc
	return q
}

// Take limits the number of results.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// ChangeKind names the mutation behind a Change.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change notifies subscribers that a document in Collection was mutated.
type Change struct {
	Collection string
	ID         string
	Kind       ChangeKind
}

// Options selects and configures a backend for Open.
type Options struct {
	Driver        string // sqlite, mongo or memory
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return OpenSQLite(opts.SQLitePath)
	case "mongo":
		return ConnectMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}

// NewID generates a document id.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Today returns the current calendar date in local time.
func Today() string {
	return time.Now().Format(DateLayout)
}
