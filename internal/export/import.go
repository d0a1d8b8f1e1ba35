package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// requiredArrays must be present in every payload. The other tables are
// optional but must be arrays when present.
var requiredArrays = map[storage.Table]bool{
	storage.TableProjects:    true,
	storage.TableIssues:      true,
	storage.TableSprints:     true,
	storage.TableBoards:      true,
	storage.TableComments:    true,
	storage.TableActivityLog: true,
}

// requiredRefs names the reference fields each row of a table must carry
// besides its id.
var requiredRefs = map[storage.Table][]string{
	storage.TableIssues:       {"projectId"},
	storage.TableSprints:      {"projectId"},
	storage.TableBoards:       {"projectId"},
	storage.TableLabels:       {"projectId"},
	storage.TableComponents:   {"projectId"},
	storage.TableFilters:      {"projectId"},
	storage.TableCustomFields: {"projectId"},
	storage.TableComments:     {"issueId"},
	storage.TableActivityLog:  {"issueId"},
}

// rowDecoders check that a row decodes into its entity type, so a row with a
// mistyped field is rejected before the store is cleared.
var rowDecoders = map[storage.Table]func([]byte) error{
	storage.TableProjects:     decodeAs[types.Project],
	storage.TableIssues:       decodeAs[types.Issue],
	storage.TableSprints:      decodeAs[types.Sprint],
	storage.TableBoards:       decodeAs[types.Board],
	storage.TableLabels:       decodeAs[types.Label],
	storage.TableComponents:   decodeAs[types.Component],
	storage.TableFilters:      decodeAs[types.Filter],
	storage.TableCustomFields: decodeAs[types.CustomField],
	storage.TableComments:     decodeAs[types.Comment],
	storage.TableActivityLog:  decodeAs[types.ActivityLog],
	storage.TableWorkflows:    decodeAs[types.Workflow],
	storage.TableUsers:        decodeAs[types.User],
	storage.TableSettings:     decodeAs[types.Setting],
}

func decodeAs[T any](doc []byte) error {
	var v T
	return json.Unmarshal(doc, &v)
}

// row is one validated document ready to be stored verbatim.
type row struct {
	id  string
	doc json.RawMessage
}

// Result reports what Import loaded.
type Result struct {
	Counts map[storage.Table]int `json:"counts"`
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func formatError(path, format string, args ...any) error {
	return &types.ImportFormatError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// parse validates the whole payload and returns its rows per table. It
// never touches the store.
func parse(payload []byte) (map[storage.Table][]row, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, formatError("", "payload is not a JSON object: %v", err)
	}

	var version int
	raw, ok := top["version"]
	if !ok {
		return nil, formatError("version", "missing")
	}
	if err := json.Unmarshal(raw, &version); err != nil {
		return nil, formatError("version", "must be an integer")
	}
	if version != Version {
		return nil, formatError("version", "unsupported version %d (want %d)", version, Version)
	}

	out := make(map[storage.Table][]row, len(tables))
	for _, table := range tables {
		name := string(table)
		raw, ok := top[name]
		if !ok {
			if requiredArrays[table] {
				return nil, formatError(name, "missing")
			}
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, formatError(name, "must be an array")
		}
		rows, err := parseRows(table, elems)
		if err != nil {
			return nil, err
		}
		out[table] = rows
	}
	return out, nil
}

func parseRows(table storage.Table, elems []json.RawMessage) ([]row, error) {
	rows := make([]row, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for i, elem := range elems {
		path := fmt.Sprintf("%s[%d]", table, i)
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			return nil, formatError(path, "must be an object")
		}
		id, err := stringField(obj, "id")
		if err != nil || id == "" {
			return nil, formatError(path+".id", "required")
		}
		if seen[id] {
			return nil, formatError(path+".id", "duplicate id %q", id)
		}
		seen[id] = true
		for _, ref := range requiredRefs[table] {
			if v, err := stringField(obj, ref); err != nil || v == "" {
				return nil, formatError(path+"."+ref, "required")
			}
		}
		var doc bytes.Buffer
		if err := json.Compact(&doc, elem); err != nil {
			return nil, formatError(path, "%v", err)
		}
		if decode := rowDecoders[table]; decode != nil {
			if err := decode(doc.Bytes()); err != nil {
				return nil, formatError(path, "%v", err)
			}
		}
		rows = append(rows, row{id: id, doc: doc.Bytes()})
	}
	return rows, nil
}

func stringField(obj map[string]json.RawMessage, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", nil
	}
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

// Import replaces the whole store with the payload. The payload is fully
// validated first; only then does one transaction clear every table, insert
// the rows verbatim and re-seed the feed sequence. A payload that fails
// validation is an ImportFormatError and leaves the store untouched.
func Import(ctx context.Context, store storage.Store, payload []byte) (*Result, error) {
	parsed, err := parse(payload)
	if err != nil {
		return nil, err
	}

	scope := append(Tables(), storage.TableMeta)
	result := &Result{Counts: make(map[storage.Table]int, len(tables))}
	err = store.RunInTransaction(ctx, scope, func(tx storage.Transaction) error {
		for _, table := range scope {
			if err := tx.Clear(ctx, table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, table := range tables {
			for _, r := range parsed[table] {
				if err := tx.Put(ctx, table, r.id, r.doc); err != nil {
					return fmt.Errorf("insert %s %s: %w", table, r.id, err)
				}
			}
			result.Counts[table] = len(parsed[table])
		}
		return service.ResetSequence(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	debug.Logf("export: imported %d projects, %d issues\n",
		result.Counts[storage.TableProjects], result.Counts[storage.TableIssues])
	return result, nil
}

// Decode validates payload like Import and returns it as a Snapshot.
func Decode(payload []byte) (*Snapshot, error) {
	if _, err := parse(payload); err != nil {
		return nil, err
	}
	snap := newSnapshot()
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, formatError("", "%v", err)
	}
	return snap, nil
}
