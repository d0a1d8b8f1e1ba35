package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/boards/internal/storage"
)

func getDoc(ctx context.Context, db dbExecutor, t storage.Table, id string) ([]byte, error) {
	if _, err := storage.LookupTable(t); err != nil {
		return nil, err
	}
	var data string
	err := db.QueryRowContext(ctx,
		`SELECT data FROM `+quoteIdent(string(t))+` WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, wrapDBErrorf(err, "get %s %s", t, id)
	}
	return []byte(data), nil
}

func queryDocs(ctx context.Context, db dbExecutor, t storage.Table, where storage.Where) ([][]byte, error) {
	ts, err := storage.LookupTable(t)
	if err != nil {
		return nil, err
	}
	ix, err := ts.MatchIndex(where)
	if err != nil {
		return nil, err
	}
	conds := make([]string, len(ix))
	args := make([]any, len(ix))
	for i, v := range where.Values(ix) {
		conds[i] = fieldExpr(ix[i]) + " = ?"
		args[i] = v
	}
	return scanDocs(ctx, db, t,
		`SELECT data FROM `+quoteIdent(string(t))+` WHERE `+strings.Join(conds, " AND ")+` ORDER BY rowid`,
		args...)
}

func allDocs(ctx context.Context, db dbExecutor, t storage.Table) ([][]byte, error) {
	if _, err := storage.LookupTable(t); err != nil {
		return nil, err
	}
	return scanDocs(ctx, db, t, `SELECT data FROM `+quoteIdent(string(t))+` ORDER BY rowid`)
}

func scanDocs(ctx context.Context, db dbExecutor, t storage.Table, query string, args ...any) ([][]byte, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErrorf(err, "query %s", t)
	}
	defer rows.Close()

	docs := [][]byte{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrapDBErrorf(err, "scan %s", t)
		}
		docs = append(docs, []byte(data))
	}
	return docs, wrapDBErrorf(rows.Err(), "iterate %s", t)
}

// putDoc upserts a row. ON CONFLICT keeps the existing rowid, so an updated
// row keeps its insertion position.
func putDoc(ctx context.Context, db dbExecutor, t storage.Table, id string, doc []byte) error {
	if _, err := storage.LookupTable(t); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("put %s: empty id", t)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO `+quoteIdent(string(t))+` (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		id, string(doc))
	return wrapDBErrorf(err, "put %s %s", t, id)
}

func deleteDoc(ctx context.Context, db dbExecutor, t storage.Table, id string) error {
	if _, err := storage.LookupTable(t); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM `+quoteIdent(string(t))+` WHERE id = ?`, id)
	return wrapDBErrorf(err, "delete %s %s", t, id)
}

func clearTable(ctx context.Context, db dbExecutor, t storage.Table) error {
	if _, err := storage.LookupTable(t); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM `+quoteIdent(string(t)))
	return wrapDBErrorf(err, "clear %s", t)
}
