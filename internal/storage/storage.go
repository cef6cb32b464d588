package storage

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

// Backend is the type-erased storage primitive that Read/Write/Update/
// Remove/List are built on. MultiSqliteBackend is the production
// implementation; the JSON tree backend exists only to be read during
// migration.
type Backend interface {
	Read(ctx context.Context, key Key) ([]byte, error)
	Write(ctx context.Context, key Key, data []byte) error
	Remove(ctx context.Context, key Key) error
	List(ctx context.Context, prefix Key) ([]Key, error)
	Close() error
}

// Read fetches and JSON-decodes the value stored at key.
func Read[T any](ctx context.Context, b Backend, key Key) (T, error) {
	var zero T
	raw, err := b.Read(ctx, key)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, coreerr.JSON(err)
	}
	return v, nil
}

// Write JSON-encodes v and stores it at key, overwriting any prior value.
func Write[T any](ctx context.Context, b Backend, key Key, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return coreerr.JSON(err)
	}
	return b.Write(ctx, key, raw)
}

// Update reads the value at key, applies mutate in place, and writes the
// result back. It returns NotFound if key is absent; mutate is never called
// in that case.
func Update[T any](ctx context.Context, b Backend, key Key, mutate func(*T)) (T, error) {
	var zero T
	v, err := Read[T](ctx, b, key)
	if err != nil {
		return zero, err
	}
	mutate(&v)
	if err := Write(ctx, b, key, v); err != nil {
		return zero, err
	}
	return v, nil
}

// Remove deletes the value at key and any descendant keys. It is silent if
// key does not exist.
func Remove(ctx context.Context, b Backend, key Key) error {
	return b.Remove(ctx, key)
}

// List returns every key under prefix, sorted.
func List(ctx context.Context, b Backend, prefix Key) ([]Key, error) {
	return b.List(ctx, prefix)
}
