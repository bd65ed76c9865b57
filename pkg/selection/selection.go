// Package selection captures the picks form as a selection set and keeps the
// per-week history of submitted sets.
package selection

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/storage"
)

const (
	Source  = "Pigskin-Enhancement-Suite"
	Version = "1.0.0"
)

// Selection is the team picked in one game control.
type Selection struct {
	Team     string `json:"team" validate:"required"`
	Value    string `json:"value"`
	IsLocked bool   `json:"isLocked"`
	Spread   string `json:"spread,omitempty"`
	// Won is unset until a result is known.
	Won *bool `json:"won,omitempty"`
}

// Set is one submission of the picks form. Selections are keyed by control
// name.
type Set struct {
	Timestamp  int64                `json:"timestamp" validate:"required"`
	Week       string               `json:"week" validate:"required"`
	Selections map[string]Selection `json:"selections" validate:"dive"`
	Source     string               `json:"source,omitempty"`
	Version    string               `json:"version,omitempty"`
}

// Time returns the submission time.
func (s Set) Time() time.Time { return time.UnixMilli(s.Timestamp) }

// Locked returns the key and selection flagged as the lock, if any.
func (s Set) Locked() (string, Selection, bool) {
	for _, k := range s.Keys() {
		if sel := s.Selections[k]; sel.IsLocked {
			return k, sel, true
		}
	}
	return "", Selection{}, false
}

// Keys returns the selection keys ordered by game number, then name.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s.Selections))
	for k := range s.Selections {
		keys = append(keys, k)
	}
	sortGameKeys(keys)
	return keys
}

// Capture reads the current selections of p's picks form. A selection is
// locked when the lock control's value is its game number; at most one is,
// the first in document order. ok is false when the page has no form.
func Capture(p *page.Page) (set Set, ok bool) {
	f := p.Form()
	if f == nil {
		return Set{}, false
	}
	lockValue := ""
	if lock := f.LockSelect(); lock != nil {
		lockValue = lock.Value()
	}

	set = Set{
		Timestamp:  p.Now().UnixMilli(),
		Week:       p.Week(),
		Selections: map[string]Selection{},
		Source:     Source,
		Version:    Version,
	}
	locked := false
	for _, s := range f.GameSelects() {
		o := s.Selected()
		if o == nil || o.Value() == "" {
			continue
		}
		team := page.CleanTeamName(o.Text())
		if team == "" {
			team = o.Value()
		}
		sel := Selection{
			Team:   team,
			Value:  o.Value(),
			Spread: page.SpreadText(o.Text()),
		}
		if n, ok := s.GameNumber(); ok && !locked && lockValue != "" && n == lockValue {
			sel.IsLocked = true
			locked = true
		}
		set.Selections[s.Key()] = sel
	}
	return set, true
}

// History maps a week to its submissions in the order they were made.
type History map[string][]Set

// stored is the persisted form of a History. Sets are decoded one by one so
// a malformed submission never hides the others.
type stored map[string][]json.RawMessage

// history decodes every valid set, dropping the rest.
func (st stored) history() History {
	h := History{}
	for week, raws := range st {
		for _, raw := range raws {
			var set Set
			if json.Unmarshal(raw, &set) != nil || storage.Validate(set) != nil {
				continue
			}
			h[week] = append(h[week], set)
		}
	}
	return h
}

// Store appends set to its week's history. Earlier submissions are never
// replaced or removed; a set that fails validation is not stored.
func Store(ctx context.Context, store *storage.Adapter, set Set) bool {
	if err := storage.Validate(set); err != nil {
		return false
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return false
	}
	return storage.Update(ctx, store, storage.KeyPicksHistory, stored{}, func(st stored) stored {
		if st == nil {
			st = stored{}
		}
		st[set.Week] = append(st[set.Week], raw)
		return st
	})
}

// Load returns the stored history, empty when none was stored. Submissions
// that no longer decode are skipped.
func Load(ctx context.Context, store *storage.Adapter) History {
	return storage.Get(ctx, store, storage.KeyPicksHistory, stored{}).history()
}

// Clear removes every stored submission.
func Clear(ctx context.Context, store *storage.Adapter) bool {
	return storage.Set(ctx, store, storage.KeyPicksHistory, History{})
}

// Weeks returns the weeks with submissions, highest week number first.
// Weeks that are not numbers sort last.
func (h History) Weeks() []string {
	return h.sortedWeeks(true)
}

// sortedWeeks orders numbered weeks ascending or descending, followed by
// the others in lexical order.
func (h History) sortedWeeks(desc bool) []string {
	weeks := make([]string, 0, len(h))
	for w := range h {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool {
		a, errA := strconv.Atoi(weeks[i])
		b, errB := strconv.Atoi(weeks[j])
		switch {
		case errA == nil && errB == nil:
			if desc {
				return a > b
			}
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return weeks[i] < weeks[j]
	})
	return weeks
}

// Week returns the submissions of week, newest first.
func (h History) Week(week string) []Set {
	sets := append([]Set(nil), h[week]...)
	sort.SliceStable(sets, func(i, j int) bool { return sets[i].Timestamp > sets[j].Timestamp })
	return sets
}

type Stats struct {
	TotalPicks  int
	WeeksPlayed int
	TotalLocks  int
	LocksWon    int
}

// LockSuccessRate is the percentage of locks won, 0 without locks.
func (s Stats) LockSuccessRate() float64 {
	if s.TotalLocks == 0 {
		return 0
	}
	return float64(s.LocksWon) / float64(s.TotalLocks) * 100
}

func (h History) Stats() Stats {
	st := Stats{WeeksPlayed: len(h)}
	for _, sets := range h {
		for _, set := range sets {
			st.TotalPicks += len(set.Selections)
			if _, sel, ok := set.Locked(); ok {
				st.TotalLocks++
				if sel.Won != nil && *sel.Won {
					st.LocksWon++
				}
			}
		}
	}
	return st
}

func sortGameKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, okA := page.GameNumber(keys[i], "")
		b, okB := page.GameNumber(keys[j], "")
		if okA && okB && a != b {
			na, _ := strconv.Atoi(a)
			nb, _ := strconv.Atoi(b)
			return na < nb
		}
		if okA != okB {
			return okA
		}
		return keys[i] < keys[j]
	})
}
