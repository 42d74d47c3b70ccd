package kv

import (
	"context"
	"fmt"
)

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Options struct {
	Backend  string
	Path     string
	RedisURL string
	// RedisPrefix namespaces keys when several clients share one server.
	RedisPrefix string
	// Passphrase, when set, wraps the backend in a Sealed store.
	Passphrase string
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendSQLite, "":
		s, err = OpenSQLite(opts.Path)
	case BackendRedis:
		s, err = OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}

	if opts.Passphrase == "" {
		return s, nil
	}
	sealed, err := NewSealed(ctx, s, opts.Passphrase)
	if err != nil {
		s.Close()
		return nil, err
	}
	return sealed, nil
}
