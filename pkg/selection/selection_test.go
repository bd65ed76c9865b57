package selection

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/storage"
)

const picksHTML = `<html><body><h2>Week 7 Picks</h2>
<form action="fbpicks.cgi">
<select name="game1"><option value="">--</option><option value="A">Team A (-3.5)</option><option value="B">Team B (+3.5)</option></select>
<select name="game2"><option value="">--</option><option value="C">Team C</option><option value="D">Team D (+7)</option></select>
<select name="game3"><option value="">--</option><option value="E">Team E</option></select>
<select name="lock"><option value="">--</option><option value="1">Game 1</option><option value="2">Game 2</option></select>
</form></body></html>`

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newPage(t *testing.T, values url.Values) *page.Page {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(picksHTML))
	require.NoError(t, err)
	u, _ := url.Parse("http://pool.example/forms/fbpicks.html")
	p := page.New(u, doc)
	p.Now = func() time.Time { return fixedNow }
	p.Form().Apply(values)
	return p
}

func TestCapture(t *testing.T) {
	p := newPage(t, url.Values{"game1": {"B"}, "game2": {"D"}, "lock": {"2"}})

	set, ok := Capture(p)
	require.True(t, ok)
	assert.Equal(t, "7", set.Week)
	assert.Equal(t, fixedNow.UnixMilli(), set.Timestamp)
	assert.Equal(t, Source, set.Source)
	assert.Equal(t, Version, set.Version)
	require.Len(t, set.Selections, 2)
	assert.Equal(t, Selection{Team: "Team B", Value: "B", Spread: "+3.5"}, set.Selections["game1"])
	assert.Equal(t, Selection{Team: "Team D", Value: "D", Spread: "+7", IsLocked: true}, set.Selections["game2"])

	key, sel, ok := set.Locked()
	require.True(t, ok)
	assert.Equal(t, "game2", key)
	assert.Equal(t, "Team D", sel.Team)
}

func TestCaptureWithoutLock(t *testing.T) {
	set, ok := Capture(newPage(t, url.Values{"game1": {"A"}}))
	require.True(t, ok)
	_, _, locked := set.Locked()
	assert.False(t, locked)
	assert.Len(t, set.Selections, 1)
}

func TestStoreIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := storage.NewAdapterWith(storage.NewMemory(), nil)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set := Set{Timestamp: int64(i + 1), Week: "3", Selections: map[string]Selection{"game1": {Team: "Team A"}}}
			assert.True(t, Store(ctx, store, set))
		}(i)
	}
	wg.Wait()

	require.True(t, Store(ctx, store, Set{Timestamp: 99, Week: "4", Selections: map[string]Selection{}}))
	h := Load(ctx, store)
	assert.Len(t, h["3"], n)
	assert.Len(t, h["4"], 1)

	require.True(t, Clear(ctx, store))
	assert.Empty(t, Load(ctx, store))
}

func TestCaptureFallsBackToOptionValue(t *testing.T) {
	doc, err := page.Parse(strings.NewReader(`<html><body><form>
<select name="game1"><option value="">--</option><option value="Team X" selected>(+3.5)</option></select>
<select name="game2"><option value="">--</option><option value="7" selected>7</option></select>
</form></body></html>`))
	require.NoError(t, err)
	u, _ := url.Parse("http://pool.example/forms/fbpicks.html")
	p := page.New(u, doc)
	p.Now = func() time.Time { return fixedNow }

	set, ok := Capture(p)
	require.True(t, ok)
	assert.Equal(t, "Team X", set.Selections["game1"].Team)
	assert.Equal(t, "+3.5", set.Selections["game1"].Spread)
	assert.Equal(t, "7", set.Selections["game2"].Team)
	require.NoError(t, storage.Validate(set))
}

func TestStoreKeepsHistoryAroundInvalidSet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewAdapterWith(storage.NewMemory(), nil)
	good := func(ts int64) Set {
		return Set{Timestamp: ts, Week: "5", Selections: map[string]Selection{"game1": {Team: "Team A"}}}
	}
	bad := Set{Timestamp: 2, Week: "5", Selections: map[string]Selection{"game1": {Team: ""}}}

	require.True(t, Store(ctx, store, good(1)))
	if Store(ctx, store, bad) {
		t.Fatalf("a set failing validation should not be stored")
	}
	require.True(t, Store(ctx, store, good(3)))
	assert.Len(t, Load(ctx, store)["5"], 2)

	// a bad set written by an older build is skipped, not allowed to wipe the rest
	require.True(t, storage.Set(ctx, store, storage.KeyPicksHistory, History{
		"4": {good(1)},
		"5": {good(2), bad},
	}))
	require.True(t, Store(ctx, store, good(4)))
	h := Load(ctx, store)
	assert.Len(t, h["4"], 1)
	require.Len(t, h["5"], 2)
	assert.Equal(t, int64(2), h["5"][0].Timestamp)
	assert.Equal(t, int64(4), h["5"][1].Timestamp)
}

func TestWeeksAndStats(t *testing.T) {
	won, lost := true, false
	h := History{
		"2":       {{Timestamp: 1, Week: "2", Selections: map[string]Selection{"game1": {Team: "A", IsLocked: true, Won: &won}, "game2": {Team: "B"}}}},
		"10":      {{Timestamp: 2, Week: "10", Selections: map[string]Selection{"game1": {Team: "C", IsLocked: true, Won: &lost}}}},
		"unknown": {{Timestamp: 3, Week: "unknown", Selections: map[string]Selection{"game1": {Team: "D"}}}},
	}

	assert.Equal(t, []string{"10", "2", "unknown"}, h.Weeks())

	st := h.Stats()
	assert.Equal(t, 4, st.TotalPicks)
	assert.Equal(t, 3, st.WeeksPlayed)
	assert.Equal(t, 2, st.TotalLocks)
	assert.Equal(t, 1, st.LocksWon)
	assert.InDelta(t, 50.0, st.LockSuccessRate(), 0.001)
	assert.Zero(t, Stats{}.LockSuccessRate())
}

func TestWeekNewestFirst(t *testing.T) {
	h := History{"1": {{Timestamp: 1, Week: "1"}, {Timestamp: 3, Week: "1"}, {Timestamp: 2, Week: "1"}}}
	var got []int64
	for _, s := range h.Week("1") {
		got = append(got, s.Timestamp)
	}
	assert.Equal(t, []int64{3, 2, 1}, got)
	assert.Equal(t, int64(1), h["1"][0].Timestamp)
}

func TestWriteCSV(t *testing.T) {
	stamp := time.Date(2026, 10, 11, 17, 30, 0, 0, time.UTC).UnixMilli()
	h := History{"7": {{
		Timestamp: stamp,
		Week:      "7",
		Selections: map[string]Selection{
			"game10": {Team: `The "Bears"`, Value: "X"},
			"game2":  {Team: "Team D", Value: "D", IsLocked: true, Spread: "+7"},
		},
	}}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, h))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Week","Timestamp","Game","Team","Locked","Spread","Result","Source","Version"`, lines[0])
	assert.Equal(t, `"7","2026-10-11T17:30:00.000Z","game2","Team D","Yes","+7","Unknown","Pigskin-Enhancement-Suite","1.0.0"`, lines[1])
	assert.Equal(t, `"7","2026-10-11T17:30:00.000Z","game10","The ""Bears""","No","","Unknown","Pigskin-Enhancement-Suite","1.0.0"`, lines[2])
}

func TestWriteJSON(t *testing.T) {
	h := History{"7": {{Timestamp: 5, Week: "7", Selections: map[string]Selection{"game1": {Team: "A", Value: "A"}}}}}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, h, FormatJSON))
	assert.Contains(t, buf.String(), "\n  \"7\": [")

	var back History
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, h, back)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "{}", buf.String())
}

func TestFormatAndFilename(t *testing.T) {
	f, ok := ParseFormat(" CSV ")
	require.True(t, ok)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "text/csv", f.ContentType())
	_, ok = ParseFormat("xml")
	assert.False(t, ok)

	at := time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("X", -5*3600))
	assert.Equal(t, "pigskin_picks_history_2026-10-19.json", Filename(at, FormatJSON))
}
