package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotReady is returned by the adapter internals when no backend has been
// attached yet. Callers of the public helpers never see it; they get their
// default value instead.
var ErrNotReady = errors.New("storage: backend not ready")

// errNotSequence aborts an append whose existing value is not a JSON array.
var errNotSequence = errors.New("storage: existing value is not a sequence")

// errMalformed aborts an update whose existing value does not decode.
var errMalformed = errors.New("storage: existing value is malformed")

// MutateFunc receives the current raw value of a key (found=false when the
// key is absent) and returns the value to write back.
type MutateFunc func(current []byte, found bool) ([]byte, error)

// Backend is the opaque durable storage the adapter sits on.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	// Mutate runs fn and writes its result atomically with respect to other
	// writers of the same backend. An error from fn aborts without writing.
	Mutate(ctx context.Context, key string, fn MutateFunc) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Structure marks an initialized store.
type Structure struct {
	Version    string `json:"version" validate:"required"`
	LastUpdate int64  `json:"lastUpdate"`
}

// KeyStat describes one stored key.
type KeyStat struct {
	Key   string
	Bytes int
}

// OpenBackend opens the backend for driver ("sqlite", "badger" or "memory").
func OpenBackend(driver, path string) (Backend, error) {
	switch driver {
	case "", "sqlite":
		return Open(path)
	case "badger":
		return OpenBadger(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
