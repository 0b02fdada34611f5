package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic random number generator for a named analysis.
	// The same (name, seed) pair always yields the same sequence, regardless of
	// which goroutine asks or in what order.
	Stream(ctx context.Context, name string, seed int64) (*rand.Rand, error)
}
