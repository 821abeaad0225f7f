package session

import (
	"context"
	"time"
)

// Store keeps per-visitor values keyed by an opaque id.
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, v T) error
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context, maxIdle time.Duration) int
	NewID() string
}
