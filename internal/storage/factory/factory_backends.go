package factory

import (
	"context"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/storage/memory"
	"github.com/steveyegge/boards/internal/storage/sqlite"
)

func init() {
	RegisterBackend(BackendSQLite, func(ctx context.Context, path string) (storage.Store, error) {
		return sqlite.New(ctx, path)
	})
	RegisterBackend(BackendMemory, func(ctx context.Context, path string) (storage.Store, error) {
		return memory.New(), nil
	})
}
