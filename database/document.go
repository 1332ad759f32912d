package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// document is the decoded JSON form used by the memory and SQLite backends.
type document map[string]any

// toDocument converts a tagged struct (or map) into its JSON document form.
func toDocument(doc any) (document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("document must encode as an object: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("document must encode as an object")
	}
	return d, nil
}

// normalize converts a Go value into the shape it takes inside a JSON document.
func normalize(v any) (any, error) {
	if _, ok := v.(serverTimestamp); ok {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return out, nil
}

// stampTime formats the store clock the way JSON encodes time.Time.
func stampTime(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

// prepareInsert assigns id and server timestamps to a fresh document.
func prepareInsert(doc any, now time.Time, stamp []string) (document, string, error) {
	d, err := toDocument(doc)
	if err != nil {
		return nil, "", err
	}
	id := NewID()
	d["id"] = id
	for _, field := range stamp {
		if v, ok := d[field]; !ok || v == nil {
			d[field] = stampTime(now)
		}
	}
	return d, id, nil
}

// applyFields merges an update into d, resolving ServerTimestamp values.
func applyFields(d document, fields Fields, now time.Time) error {
	for field, value := range fields {
		if field == "id" {
			return fmt.Errorf("cannot update document id")
		}
		if _, ok := value.(serverTimestamp); ok {
			d[field] = stampTime(now)
			continue
		}
		if inc, ok := value.(increment); ok {
			var current float64
			switch n := d[field].(type) {
			case nil:
			case float64:
				current = n
			default:
				return fmt.Errorf("field %s: cannot increment %T", field, n)
			}
			d[field] = current + float64(inc.by)
			continue
		}
		v, err := normalize(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
		d[field] = v
	}
	return nil
}

// normalizeQuery converts filter values to their JSON shapes once per query.
func normalizeQuery(q Query) (Query, error) {
	out := q
	out.Filters = make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := normalize(f.Value)
		if err != nil {
			return q, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		out.Filters[i] = Filter{Field: f.Field, Value: v}
	}
	return out, nil
}

// matches reports whether d satisfies every (normalized) filter in q.
func (d document) matches(q Query) bool {
	for _, f := range q.Filters {
		if !equalValues(d[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// compareValues orders two JSON values. Strings that both parse as
// timestamps compare chronologically.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(av, bv)
	case float64:
		bv, ok := b.(float64)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, ok := b.(bool)
		if !ok || av == bv {
			break
		}
		if !av {
			return -1
		}
		return 1
	}
	// Missing values sort first.
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	return 0
}

// selectDocuments filters, orders and limits docs. Input order is kept for ties.
func selectDocuments(docs []document, q Query) []document {
	var out []document
	for _, d := range docs {
		if d.matches(q) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// decodeDocuments writes docs into out, a pointer to a slice of documents.
func decodeDocuments(docs []document, out any) error {
	if docs == nil {
		docs = []document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	return nil
}

// decodeDocument writes a single document into out.
func decodeDocument(d document, out any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
