package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/kardiff/pses/pkg/logging"
)

// StructureVersion is written into the structure marker on first use.
const StructureVersion = "1.0.0"

// Adapter is the store every module talks to. All helpers are safe to call
// before a backend is attached: reads return the caller's default and writes
// report false.
type Adapter struct {
	mu      sync.RWMutex
	backend Backend
	log     logging.Logger

	ready     chan struct{}
	readyOnce sync.Once
	initOnce  sync.Once
	initErr   error
}

// NewAdapter returns an adapter with no backend. Attach resolves its
// readiness.
func NewAdapter(log logging.Logger) *Adapter {
	return &Adapter{log: logging.OrNop(log), ready: make(chan struct{})}
}

// NewAdapterWith is NewAdapter followed by Attach.
func NewAdapterWith(b Backend, log logging.Logger) *Adapter {
	a := NewAdapter(log)
	a.Attach(b)
	return a
}

// Attach installs the backend and marks the adapter ready. Only the first
// call has an effect.
func (a *Adapter) Attach(b Backend) {
	a.readyOnce.Do(func() {
		a.mu.Lock()
		a.backend = b
		a.mu.Unlock()
		close(a.ready)
	})
}

// Name identifies the adapter as a leaf utility.
func (a *Adapter) Name() string { return "store" }

// Ready is closed once a backend is attached.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Initialize writes the structure marker the first time a store is used.
// It runs once per process.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.initOnce.Do(func() {
		b, err := a.get()
		if err != nil {
			a.initErr = err
			return
		}
		a.initErr = b.Mutate(ctx, KeyStorageStructure, func(current []byte, found bool) ([]byte, error) {
			if found {
				var s Structure
				if json.Unmarshal(current, &s) == nil && Validate(s) == nil {
					return current, nil
				}
			}
			return json.Marshal(Structure{Version: StructureVersion, LastUpdate: time.Now().UnixMilli()})
		})
	})
	return a.initErr
}

// Close closes the backend, if any.
func (a *Adapter) Close() error {
	b, err := a.get()
	if err != nil {
		return nil
	}
	return b.Close()
}

func (a *Adapter) get() (Backend, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.backend == nil {
		return nil, ErrNotReady
	}
	return a.backend, nil
}

// Delete removes key. It reports false on failure.
func (a *Adapter) Delete(ctx context.Context, key string) bool {
	b, err := a.get()
	if err != nil {
		a.log.Debugf("Store delete %s skipped: %v", key, err)
		return false
	}
	if err := b.Delete(ctx, key); err != nil {
		a.log.Errorf("Storage delete error for %s: %v", key, err)
		return false
	}
	return true
}

// Stats lists stored keys with their encoded sizes.
func (a *Adapter) Stats(ctx context.Context) ([]KeyStat, error) {
	b, err := a.get()
	if err != nil {
		return nil, err
	}
	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]KeyStat, 0, len(keys))
	for _, k := range keys {
		v, _, err := b.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		stats = append(stats, KeyStat{Key: k, Bytes: len(v)})
	}
	return stats, nil
}

// Get reads key into a T. Missing keys, storage errors, undecodable values
// and values failing validation all yield def.
func Get[T any](ctx context.Context, a *Adapter, key string, def T) T {
	b, err := a.get()
	if err != nil {
		a.log.Debugf("Store get %s before ready, using default", key)
		return def
	}
	raw, found, err := b.Get(ctx, key)
	if err != nil {
		a.log.Errorf("Storage get error for %s: %v", key, err)
		return def
	}
	if !found {
		return def
	}
	v, ok := decode[T](raw)
	if !ok {
		a.log.Warnf("Stored value for %s has an unexpected shape, using default", key)
		return def
	}
	return v
}

// Set writes value under key and reports success.
func Set[T any](ctx context.Context, a *Adapter, key string, value T) bool {
	b, err := a.get()
	if err != nil {
		a.log.Debugf("Store set %s before ready, dropped", key)
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		a.log.Errorf("Storage set error for %s: %v", key, err)
		return false
	}
	if err := b.Put(ctx, key, data); err != nil {
		a.log.Errorf("Storage set error for %s: %v", key, err)
		return false
	}
	return true
}

// Append adds value to the sequence stored under key, creating it when the
// key is absent. It is a no-op returning false when the existing value is not
// a sequence.
func Append[T any](ctx context.Context, a *Adapter, key string, value T) bool {
	b, err := a.get()
	if err != nil {
		a.log.Debugf("Store append %s before ready, dropped", key)
		return false
	}
	item, err := json.Marshal(value)
	if err != nil {
		a.log.Errorf("Storage append error for %s: %v", key, err)
		return false
	}
	err = b.Mutate(ctx, key, func(current []byte, found bool) ([]byte, error) {
		var seq []json.RawMessage
		if found {
			if err := json.Unmarshal(current, &seq); err != nil {
				return nil, errNotSequence
			}
		}
		return json.Marshal(append(seq, item))
	})
	if errors.Is(err, errNotSequence) {
		a.log.Warnf("Store append %s: existing value is not a sequence", key)
		return false
	}
	if err != nil {
		a.log.Errorf("Storage append error for %s: %v", key, err)
		return false
	}
	return true
}

// Update replaces the value under key with fn(current) in one atomic step.
// current is def when the key is absent. A stored value that does not decode
// or validate is left untouched and Update reports false.
func Update[T any](ctx context.Context, a *Adapter, key string, def T, fn func(T) T) bool {
	b, err := a.get()
	if err != nil {
		a.log.Debugf("Store update %s before ready, dropped", key)
		return false
	}
	err = b.Mutate(ctx, key, func(current []byte, found bool) ([]byte, error) {
		v := def
		if found {
			decoded, ok := decode[T](current)
			if !ok {
				return nil, errMalformed
			}
			v = decoded
		}
		return json.Marshal(fn(v))
	})
	if errors.Is(err, errMalformed) {
		a.log.Warnf("Store update %s: stored value has an unexpected shape, left as is", key)
		return false
	}
	if err != nil {
		a.log.Errorf("Storage update error for %s: %v", key, err)
		return false
	}
	return true
}

func decode[T any](raw []byte) (T, bool) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	if err := Validate(v); err != nil {
		return v, false
	}
	return v, true
}
