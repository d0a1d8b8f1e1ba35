package storage

import (
	"fmt"
	"strings"
)

// Table names a persisted entity table.
type Table string

// Entity tables.
const (
	TableProjects     Table = "projects"
	TableIssues       Table = "issues"
	TableSprints      Table = "sprints"
	TableBoards       Table = "boards"
	TableComments     Table = "comments"
	TableActivityLog  Table = "activityLog"
	TableLabels       Table = "labels"
	TableComponents   Table = "components"
	TableFilters      Table = "filters"
	TableCustomFields Table = "customFields"
	TableWorkflows    Table = "workflows"
	TableUsers        Table = "users"
	TableSettings     Table = "settings"

	// TableMeta holds internal counters. It is never exported.
	TableMeta Table = "meta"
)

// Index is a secondary index over one or more top-level string fields of a
// document. Composite indexes are written "[projectId+status]".
type Index []string

// Name returns the index in its declared notation.
func (ix Index) Name() string {
	if len(ix) == 1 {
		return ix[0]
	}
	return "[" + strings.Join(ix, "+") + "]"
}

// TableSchema declares the indexes of one table.
type TableSchema struct {
	Name    Table
	Indexes []Index
}

// Schema is the full set of tables, in the order they are created and
// exported.
var Schema = []TableSchema{
	{Name: TableProjects, Indexes: []Index{{"key"}}},
	{Name: TableIssues, Indexes: []Index{
		{"projectId"}, {"status"}, {"priority"}, {"assigneeId"}, {"epicId"},
		{"parentId"}, {"sprintId"},
		{"projectId", "status"},
		{"projectId", "key"},
	}},
	{Name: TableSprints, Indexes: []Index{{"projectId"}, {"status"}, {"projectId", "status"}}},
	{Name: TableBoards, Indexes: []Index{{"projectId"}}},
	{Name: TableComments, Indexes: []Index{{"issueId"}}},
	{Name: TableActivityLog, Indexes: []Index{{"issueId"}}},
	{Name: TableLabels, Indexes: []Index{{"projectId"}}},
	{Name: TableComponents, Indexes: []Index{{"projectId"}}},
	{Name: TableFilters, Indexes: []Index{{"projectId"}}},
	{Name: TableCustomFields, Indexes: []Index{{"projectId"}}},
	{Name: TableWorkflows},
	{Name: TableUsers, Indexes: []Index{{"email"}}},
	{Name: TableSettings},
	{Name: TableMeta},
}

var schemaByName = func() map[Table]*TableSchema {
	m := make(map[Table]*TableSchema, len(Schema))
	for i := range Schema {
		m[Schema[i].Name] = &Schema[i]
	}
	return m
}()

// LookupTable returns the schema of a table, or ErrUnknownTable.
func LookupTable(t Table) (*TableSchema, error) {
	ts, ok := schemaByName[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, t)
	}
	return ts, nil
}

// Tables returns every table name in schema order.
func Tables() []Table {
	out := make([]Table, len(Schema))
	for i, ts := range Schema {
		out[i] = ts.Name
	}
	return out
}

// MatchIndex returns the declared index whose fields are exactly the
// fields of where, in any order. It fails with ErrUnknownIndex otherwise.
func (ts *TableSchema) MatchIndex(where Where) (Index, error) {
	if len(where) == 0 {
		return nil, fmt.Errorf("%w: empty query on %s", ErrUnknownIndex, ts.Name)
	}
	for _, ix := range ts.Indexes {
		if len(ix) != len(where) {
			continue
		}
		matched := true
		for _, f := range ix {
			if _, ok := where.value(f); !ok {
				matched = false
				break
			}
		}
		if matched {
			return ix, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, where, ts.Name)
}

// Cond is one equality condition of a query.
type Cond struct {
	Field string
	Value string
}

// Where is a conjunction of equality conditions.
type Where []Cond

// By starts a query on a single field.
func By(field, value string) Where {
	return Where{{Field: field, Value: value}}
}

// And adds a condition.
func (w Where) And(field, value string) Where {
	out := make(Where, len(w), len(w)+1)
	copy(out, w)
	return append(out, Cond{Field: field, Value: value})
}

func (w Where) value(field string) (string, bool) {
	for _, c := range w {
		if c.Field == field {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns the condition values in the field order of ix.
func (w Where) Values(ix Index) []string {
	out := make([]string, len(ix))
	for i, f := range ix {
		out[i], _ = w.value(f)
	}
	return out
}

func (w Where) String() string {
	parts := make([]string, len(w))
	for i, c := range w {
		parts[i] = fmt.Sprintf("%s=%q", c.Field, c.Value)
	}
	return strings.Join(parts, " AND ")
}
