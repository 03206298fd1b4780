package store

import "context"

// CacheStore remembers small derived values, such as whether an
// illustration URL loaded. Entries expire through db.PruneCache.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateStore holds the user's settings between runs as string values.
// A missing key reads as ("", false).
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
}
