// Package factory provides functions for creating storage backends based on configuration.
package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/boards/internal/storage"
)

// Backend names understood by New.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// BackendFactory is a function that creates a storage backend
type BackendFactory func(ctx context.Context, path string) (storage.Store, error)

// backendRegistry holds registered backend factories
var backendRegistry = make(map[string]BackendFactory)

// RegisterBackend registers a storage backend factory
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a storage backend based on the backend type.
// For sqlite, path is the database file; the memory backend ignores it.
func New(ctx context.Context, backend, path string) (storage.Store, error) {
	// Default to sqlite backend
	if backend == "" {
		backend = BackendSQLite
	}
	if factory, ok := backendRegistry[backend]; ok {
		return factory(ctx, path)
	}
	return nil, fmt.Errorf("unknown storage backend: %s (supported: %s)", backend, strings.Join(Backends(), ", "))
}
