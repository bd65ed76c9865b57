package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sq, err := Open(filepath.Join(t.TempDir(), "pses.sqlite"))
	require.NoError(t, err)
	bg, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sq.Close()
		_ = bg.Close()
	})
	return map[string]Backend{
		"memory": NewMemory(),
		"sqlite": sq,
		"badger": bg,
	}
}

func TestAdapterBeforeAttach(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(nil)

	if got := Get(ctx, a, "k", "fallback"); got != "fallback" {
		t.Fatalf("expected default before attach, got %q", got)
	}
	if Set(ctx, a, "k", "v") {
		t.Fatalf("set should report false before attach")
	}
	if Append(ctx, a, "k", 1) {
		t.Fatalf("append should report false before attach")
	}
	if Update(ctx, a, "k", 0, func(n int) int { return n + 1 }) {
		t.Fatalf("update should report false before attach")
	}
	select {
	case <-a.Ready():
		t.Fatalf("adapter should not be ready before attach")
	default:
	}

	a.Attach(NewMemory())
	<-a.Ready()
	assert.True(t, Set(ctx, a, "k", "v"))
	assert.Equal(t, "v", Get(ctx, a, "k", ""))
}

func TestAdapterOperations(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := NewAdapterWith(b, nil)
			require.NoError(t, a.Initialize(ctx))

			s := Get(ctx, a, KeyStorageStructure, Structure{})
			assert.Equal(t, StructureVersion, s.Version)

			assert.Equal(t, 7, Get(ctx, a, "missing", 7))

			require.True(t, Set(ctx, a, "rec", record{Name: "a", Count: 1}))
			assert.Equal(t, record{Name: "a", Count: 1}, Get(ctx, a, "rec", record{}))

			for i := 0; i < 3; i++ {
				require.True(t, Append(ctx, a, "seq", i))
			}
			assert.Equal(t, []int{0, 1, 2}, Get[[]int](ctx, a, "seq", nil))

			require.True(t, Update(ctx, a, "counter", 10, func(n int) int { return n + 5 }))
			require.True(t, Update(ctx, a, "counter", 10, func(n int) int { return n + 5 }))
			assert.Equal(t, 20, Get(ctx, a, "counter", 0))

			require.True(t, a.Delete(ctx, "counter"))
			assert.Equal(t, -1, Get(ctx, a, "counter", -1))

			stats, err := a.Stats(ctx)
			require.NoError(t, err)
			keys := make([]string, 0, len(stats))
			for _, st := range stats {
				keys = append(keys, st.Key)
				assert.Positive(t, st.Bytes)
			}
			assert.ElementsMatch(t, []string{KeyStorageStructure, "rec", "seq"}, keys)
		})
	}
}

func TestAppendRejectsNonSequence(t *testing.T) {
	ctx := context.Background()
	a := NewAdapterWith(NewMemory(), nil)

	require.True(t, Set(ctx, a, "obj", map[string]int{"a": 1}))
	if Append(ctx, a, "obj", 2) {
		t.Fatalf("append onto an object should report false")
	}
	assert.Equal(t, map[string]int{"a": 1}, Get[map[string]int](ctx, a, "obj", nil))
}

func TestGetFallsBackOnInvalidRecord(t *testing.T) {
	ctx := context.Background()
	a := NewAdapterWith(NewMemory(), nil)

	require.True(t, Set(ctx, a, "rec", map[string]any{"count": 3}))
	got := Get(ctx, a, "rec", record{Name: "default"})
	if got.Name != "default" {
		t.Fatalf("record missing a required field should yield the default, got %+v", got)
	}

	require.True(t, Set(ctx, a, "rec", "not an object"))
	assert.Equal(t, record{Name: "default"}, Get(ctx, a, "rec", record{Name: "default"}))
}

func TestUpdateLeavesInvalidRecord(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := NewAdapterWith(b, nil)
			require.NoError(t, b.Put(ctx, "rec", []byte(`{"count":3}`)))

			called := false
			if Update(ctx, a, "rec", record{Name: "default"}, func(r record) record {
				called = true
				return r
			}) {
				t.Fatalf("update over a record failing validation should report false")
			}
			assert.False(t, called)

			raw, found, err := b.Get(ctx, "rec")
			require.NoError(t, err)
			require.True(t, found)
			assert.JSONEq(t, `{"count":3}`, string(raw))
		})
	}
}

func TestAppendIsMonotonicUnderConcurrency(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := NewAdapterWith(b, nil)

			const n = 20
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					Append(ctx, a, "seq", i)
				}(i)
			}
			wg.Wait()

			assert.Len(t, Get[[]int](ctx, a, "seq", nil), n)
		})
	}
}

func TestInitializeKeepsExistingMarker(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, KeyStorageStructure, []byte(`{"version":"0.9.0","lastUpdate":42}`)))

	a := NewAdapterWith(m, nil)
	require.NoError(t, a.Initialize(ctx))

	s := Get(ctx, a, KeyStorageStructure, Structure{})
	assert.Equal(t, "0.9.0", s.Version)
	assert.EqualValues(t, 42, s.LastUpdate)
}

func TestOpenBackendUnknownDriver(t *testing.T) {
	if _, err := OpenBackend("redis", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestValidateWalksContainers(t *testing.T) {
	good := []record{{Name: "a"}}
	bad := map[string]record{"x": {}}

	assert.NoError(t, Validate(good))
	assert.Error(t, Validate(bad))
	assert.NoError(t, Validate(42))
	assert.NoError(t, Validate((*record)(nil)))
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("pses", "week", "3"); got != "pses_week_3" {
		t.Fatalf("unexpected key %q", got)
	}
}
