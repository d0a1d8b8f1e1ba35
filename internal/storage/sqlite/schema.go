package sqlite

import (
	"fmt"
	"strings"

	"github.com/steveyegge/boards/internal/storage"
)

// quoteIdent quotes a table or index name. Table names are camelCase, so
// they must be quoted to keep their spelling.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// fieldExpr is the expression an indexed field is stored and queried under.
// Absent and null fields compare as the empty string.
func fieldExpr(field string) string {
	return fmt.Sprintf("IFNULL(json_extract(data, '$.%s'), '')", field)
}

func indexName(t storage.Table, ix storage.Index) string {
	return "idx_" + string(t) + "_" + strings.Join(ix, "_")
}

// schemaSQL renders the DDL for every table in storage.Schema.
func schemaSQL() string {
	var b strings.Builder
	for _, ts := range storage.Schema {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    id TEXT PRIMARY KEY,\n    data TEXT NOT NULL\n);\n",
			quoteIdent(string(ts.Name)))
		for _, ix := range ts.Indexes {
			exprs := make([]string, len(ix))
			for i, f := range ix {
				exprs[i] = fieldExpr(f)
			}
			fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(%s);\n",
				quoteIdent(indexName(ts.Name, ix)), quoteIdent(string(ts.Name)), strings.Join(exprs, ", "))
		}
	}
	return b.String()
}
