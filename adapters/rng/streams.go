package rng

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// Streams implements ports.RNGPort with FNV-derived per-name seeds
type Streams struct{}

// NewStreams creates a stream provider
func NewStreams() *Streams {
	return &Streams{}
}

// Stream creates a deterministic generator seeded with seed XOR fnv64a(name)
func (s *Streams) Stream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(StreamSeed(seed, name))), nil
}

// StreamSeed derives the seed of a named stream.
func StreamSeed(seed int64, name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}
