package application

import "context"

// IdempotencyStore remembers request keys for a bounded time so a retried
// create does not write a second user.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency accepts every key. Used when IDEMPOTENCY_BACKEND=none.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }

func userCreateKey(k string) string { return "idem:user:" + k }
