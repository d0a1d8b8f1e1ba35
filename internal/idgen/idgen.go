// Package idgen allocates entity identifiers.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator returns a new unique id on every call.
type Generator func() string

// New returns a time-ordered UUIDv7 string. It falls back to a random v4 id
// if the v7 clock source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequential returns a Generator producing prefix-1, prefix-2, ... It is
// meant for tests that need predictable ids.
func Sequential(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
