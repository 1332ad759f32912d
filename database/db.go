package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps every collection in a single JSON document table.
type SQLiteStore struct {
	db   *sql.DB
	feed *changeFeed
	now  func() time.Time
}

// OpenSQLite opens or creates the document database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "./spearmint.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes transactions, which makes InsertUnique atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (collection, id)
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	log.Printf("Document database ready at %s", path)
	return &SQLiteStore{db: db, feed: newChangeFeed(), now: time.Now}, nil
}

// Insert adds a document and returns its generated id.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, doc any, stamp ...string) (string, error) {
	d, id, err := prepareInsert(doc, s.now(), stamp)
	if err != nil {
		return "", err
	}
	if err := s.insert(ctx, s.db, collection, id, d); err != nil {
		return "", err
	}
	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insert(ctx context.Context, ex execer, collection, id string, d document) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

// InsertUnique runs the existence check and the insert in one transaction.
func (s *SQLiteStore) InsertUnique(ctx context.Context, collection string, doc any, unique Query, stamp ...string) (string, error) {
	d, id, err := prepareInsert(doc, s.now(), stamp)
	if err != nil {
		return "", err
	}
	where, args, err := whereClause(collection, unique)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE "+where+" LIMIT 1", args...).Scan(&one)
	if err == nil {
		return "", ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to check %s: %w", collection, err)
	}

	if err := s.insert(ctx, tx, collection, id, d); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

// Get decodes the document with the given id into out.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return nil
}

// Find filters in SQL and orders in Go so timestamps compare chronologically.
func (s *SQLiteStore) Find(ctx context.Context, collection string, q Query, out any) error {
	where, args, err := whereClause(collection, q)
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM documents WHERE "+where+" ORDER BY seq ASC", args...)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []document
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		var d document
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read %s rows: %w", collection, err)
	}

	// Filters already applied in SQL; selectDocuments only orders and limits here.
	return decodeDocuments(selectDocuments(docs, Query{OrderBy: q.OrderBy, Desc: q.Desc, Limit: q.Limit}), out)
}

// Update merges fields into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}

	var d document
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if err := applyFields(d, fields, s.now()); err != nil {
		return err
	}
	updated, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND id = ?`, string(updated), collection, id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeUpdate})
	return nil
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.feed.Publish(Change{Collection: collection, ID: id, Kind: ChangeDelete})
	return nil
}

// Changes subscribes to mutations made through this store.
func (s *SQLiteStore) Changes(collection string) (<-chan Change, func()) {
	return s.feed.Subscribe(collection)
}

// Close releases subscriptions and the database handle.
func (s *SQLiteStore) Close() error {
	s.feed.closeAll()
	return s.db.Close()
}

// whereClause renders the collection and equality filters of q as SQL.
func whereClause(collection string, q Query) (string, []any, error) {
	nq, err := normalizeQuery(q)
	if err != nil {
		return "", nil, err
	}
	clauses := []string{"collection = ?"}
	args := []any{collection}
	for _, f := range nq.Filters {
		if !validField(f.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", f.Field)
		}
		path := "json_extract(data, '$." + f.Field + "')"
		if f.Value == nil {
			clauses = append(clauses, path+" IS NULL")
			continue
		}
		clauses = append(clauses, path+" = ?")
		args = append(args, f.Value)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func validField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
