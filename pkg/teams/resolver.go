// Package teams maps observed team names onto canonical names using an alias
// table fetched from an external source and cached in the store.
package teams

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kardiff/pses/pkg/logging"
	"github.com/kardiff/pses/pkg/storage"
)

const (
	Version             = "1.0.0"
	DefaultTTL          = 24 * time.Hour
	DefaultRefreshAfter = 12 * time.Hour

	refreshTimeout = 30 * time.Second
	// a failed blocking fetch is not retried sooner than this
	failureBackoff = time.Minute
	// substring matching ignores fragments shorter than this
	minFragment = 3
)

// Cache is the stored form of the alias table.
type Cache struct {
	Data      []Record `json:"data" validate:"dive"`
	Timestamp int64    `json:"timestamp" validate:"required"`
	Version   string   `json:"version" validate:"required"`
}

type Config struct {
	Source       Source
	Store        *storage.Adapter
	TTL          time.Duration // defaults to DefaultTTL
	RefreshAfter time.Duration // defaults to DefaultRefreshAfter
	Log          logging.Logger
	Now          func() time.Time
}

// Resolver answers Resolve from an in-memory copy of the alias table. It is
// safe for concurrent use; background refreshes swap the table atomically.
type Resolver struct {
	cfg Config
	log logging.Logger

	mu       sync.RWMutex
	records  []Record
	loadedAt time.Time
	lastErr  error
	failedAt time.Time
	updated  bool

	refreshing atomic.Bool
	wg         sync.WaitGroup
}

func New(cfg Config) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RefreshAfter <= 0 {
		cfg.RefreshAfter = DefaultRefreshAfter
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{cfg: cfg, log: logging.OrNop(cfg.Log)}
}

// Load makes the alias table available for this page load.
//
// A cache within its TTL and carrying this version is used as is, refreshed
// in the background once older than RefreshAfter. An expired cache of this
// version is served immediately and refreshed in the background. With no
// usable cache Load fetches and waits. A failed fetch never touches the
// stored cache; the resolver passes names through when it has no table.
func (r *Resolver) Load(ctx context.Context) error {
	now := r.cfg.Now()

	r.mu.RLock()
	have := r.records != nil
	age := now.Sub(r.loadedAt)
	r.mu.RUnlock()

	if !have {
		cache := storage.Get(ctx, r.cfg.Store, storage.KeyTeamAliases, Cache{})
		if cache.Version == Version && len(cache.Data) > 0 {
			r.mu.Lock()
			r.records = cache.Data
			r.loadedAt = time.UnixMilli(cache.Timestamp)
			r.mu.Unlock()
			have = true
			age = now.Sub(time.UnixMilli(cache.Timestamp))
			r.log.Debugf("Loaded %d teams from cache (age %s)", len(cache.Data), age.Round(time.Second))
		}
	}

	if !have {
		r.mu.RLock()
		lastErr, failedAt := r.lastErr, r.failedAt
		r.mu.RUnlock()
		if lastErr != nil && now.Sub(failedAt) < failureBackoff {
			return lastErr
		}
		return r.refresh(ctx)
	}

	if age > r.cfg.RefreshAfter {
		if age > r.cfg.TTL {
			r.log.Infof("Team data expired, serving cached copy while refreshing")
		}
		r.refreshInBackground()
	}
	return nil
}

// refresh fetches, swaps the table in and writes the cache.
func (r *Resolver) refresh(ctx context.Context) error {
	if r.cfg.Source == nil {
		return fmt.Errorf("%w: no source configured", ErrFetch)
	}
	records, err := r.cfg.Source.Fetch(ctx)
	if err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.failedAt = r.cfg.Now()
		r.mu.Unlock()
		return err
	}

	now := r.cfg.Now()
	r.mu.Lock()
	changed := r.records != nil && !sameTable(r.records, records)
	r.records = records
	r.loadedAt = now
	r.lastErr = nil
	if changed {
		r.updated = true
	}
	r.mu.Unlock()

	if !storage.Set(ctx, r.cfg.Store, storage.KeyTeamAliases, Cache{Data: records, Timestamp: now.UnixMilli(), Version: Version}) {
		r.log.Warnf("Could not cache team data")
	}
	r.log.Infof("Fetched %d teams", len(records))
	return nil
}

func (r *Resolver) refreshInBackground() {
	if !r.refreshing.CompareAndSwap(false, true) {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := r.refresh(ctx); err != nil {
			r.log.Warnf("Team data update check failed: %v", err)
		}
	}()
}

// Refresh fetches fresh data now, regardless of cache age.
func (r *Resolver) Refresh(ctx context.Context) error {
	return r.refresh(ctx)
}

// Wait blocks until any background refresh has finished.
func (r *Resolver) Wait() { r.wg.Wait() }

// TakeUpdated reports whether a refresh changed the table since the last
// call.
func (r *Resolver) TakeUpdated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.updated
	r.updated = false
	return u
}

// Resolve returns the canonical name for raw, or raw itself when nothing
// matches. Exact alias matches win over substring matches; within a pass the
// first team in table order wins.
func (r *Resolver) Resolve(raw string) string {
	n := Normalize(raw)
	if n == "" {
		return raw
	}

	r.mu.RLock()
	records := r.records
	r.mu.RUnlock()
	if records == nil {
		return raw
	}

	for _, rec := range records {
		if Normalize(rec.Official) == n {
			return rec.Official
		}
	}
	for _, rec := range records {
		for _, a := range rec.Aliases {
			if a == n {
				return rec.Official
			}
		}
	}
	for _, rec := range records {
		for _, a := range rec.Aliases {
			if len(a) < minFragment || len(n) < minFragment {
				continue
			}
			if strings.Contains(a, n) || strings.Contains(n, a) {
				return rec.Official
			}
		}
	}
	return raw
}

// Teams returns the canonical names in table order.
func (r *Resolver) Teams() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Official)
	}
	return out
}

// Diagnostics describes the resolver's state.
type Diagnostics struct {
	Version     string    `json:"version"`
	CacheStatus string    `json:"cacheStatus"` // "valid", "stale" or "missing"
	TeamCount   int       `json:"teamCount"`
	LastUpdate  time.Time `json:"lastUpdate"` // zero when never loaded
	LastError   string    `json:"lastError,omitempty"`
}

func (r *Resolver) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{Version: Version, CacheStatus: "missing"}

	cache := storage.Get(ctx, r.cfg.Store, storage.KeyTeamAliases, Cache{})
	if cache.Version == Version && len(cache.Data) > 0 {
		d.CacheStatus = "valid"
		if r.cfg.Now().Sub(time.UnixMilli(cache.Timestamp)) > r.cfg.TTL {
			d.CacheStatus = "stale"
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	d.TeamCount = len(r.records)
	if r.records != nil {
		d.LastUpdate = r.loadedAt
	}
	if r.lastErr != nil {
		d.LastError = r.lastErr.Error()
	}
	return d
}

func sameTable(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Official != b[i].Official || !reflect.DeepEqual(a[i].Aliases, b[i].Aliases) {
			return false
		}
	}
	return true
}
