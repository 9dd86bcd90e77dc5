package state

import "context"

// Store is the durable key/value surface the engine persists through.
// Writes must be visible to a subsequent Get even across process
// restarts.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetBatch(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
