package domain

import "context"

// DataSource is one entry of the source priority chain.
type DataSource interface {
	Name() string
	Remote() bool
	Fetch(ctx context.Context) ([]byte, error)
}

// SnapshotStore holds the durable raw envelope.
type SnapshotStore interface {
	Backend() string
	Load(ctx context.Context) ([]byte, error) // ErrSnapshotNotFound when nothing was saved yet
	Save(ctx context.Context, body []byte) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
