package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/boards/internal/debug"
)

// dbExecutor is satisfied by *sql.DB and *sql.Conn.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const beginMaxElapsed = 10 * time.Second

func newBeginBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = beginMaxElapsed
	return bo
}

// beginWithRetry starts a transaction on conn, retrying while another
// connection holds the lock. Any other failure stops immediately.
func beginWithRetry(ctx context.Context, conn *sql.Conn, stmt string) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		_, err := conn.ExecContext(ctx, stmt)
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			debug.Logf("sqlite: %s busy (attempt %d), retrying\n", stmt, attempt)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newBeginBackoff(), ctx))
}
