package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entity is a row value with a stable id.
type Entity interface {
	EntityID() string
}

// Get loads and decodes one row.
func Get[T any](ctx context.Context, r Reader, table Table, id string) (*T, error) {
	doc, err := r.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return &v, nil
}

// Query loads and decodes every row matching where.
func Query[T any](ctx context.Context, r Reader, table Table, where Where) ([]*T, error) {
	docs, err := r.Query(ctx, table, where)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](table, docs)
}

// All loads and decodes every row of a table.
func All[T any](ctx context.Context, r Reader, table Table) ([]*T, error) {
	docs, err := r.All(ctx, table)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](table, docs)
}

func decodeAll[T any](table Table, docs [][]byte) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Put encodes and stores an entity under its own id.
func Put(ctx context.Context, w Writer, table Table, e Entity) error {
	id := e.EntityID()
	if id == "" {
		return fmt.Errorf("put %s: empty id", table)
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", table, id, err)
	}
	return w.Put(ctx, table, id, doc)
}

// IndexFields extracts the string value of each field from a document.
// Absent and null fields yield "". Non-string scalars use their JSON text.
func IndexFields(doc []byte, fields []string) ([]string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		raw, ok := m[f]
		if !ok || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			out[i] = string(raw)
			continue
		}
		out[i] = s
	}
	return out, nil
}
