// Package kv provides the durable string key/value substrate that the
// session store and the read-through cache persist into.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is an asynchronous-safe string key/value store. SetMany and
// RemoveMany apply all of their keys or none of them.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, entries map[string]string) error
	RemoveMany(ctx context.Context, keys ...string) error
	Close() error
}

// Set writes a single entry.
func Set(ctx context.Context, s Store, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}
