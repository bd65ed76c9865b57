package picks

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/snapshot"
	"github.com/kardiff/pses/pkg/storage"
)

const picksHTML = `<html><body><h2>Week 5</h2><form action="fbpicks.cgi">
<select name="game1"><option value="">--</option><option value="A">Team A</option><option value="B">Team B</option></select>
<select name="game2"><option value="">--</option><option value="C">Team C</option><option value="D">Team D</option></select>
<select name="lock"><option value="">--</option><option value="1">Game 1</option><option value="2">Game 2</option></select>
</form></body></html>`

var now = time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC)

func at(h int) *time.Time {
	t := time.Date(2026, 10, 18, h, 0, 0, 0, time.UTC)
	return &t
}

func newPage(t *testing.T, rawURL string, games []snapshot.Game) *page.Page {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(picksHTML))
	require.NoError(t, err)
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	p := page.New(u, doc)
	p.Now = func() time.Time { return now }
	p.Location = time.UTC
	p.Store = storage.NewAdapterWith(storage.NewMemory(), nil)
	p.Surface = notify.New("", nil)
	p.Surface.Bind(doc)
	if games != nil {
		require.True(t, snapshot.Save(context.Background(), p.Store, games))
	}
	return p
}

var games = []snapshot.Game{
	{Team1: "Team A", Team2: "Team B", Spread1: -3.5, Spread2: 3.5, Time: at(13)},
	{Team1: "Team C", Team2: "Team D", Spread1: 0, Spread2: 0, Time: at(20)},
}

func TestInitializeAnnotatesOptions(t *testing.T) {
	p := newPage(t, "http://pool.example/forms/fbpicks.html", games)
	require.NoError(t, New().Initialize(context.Background(), p))

	f := p.Form()
	assert.Equal(t, "Team A (-3.5)", f.Select("game1").Options()[1].Text())
	assert.Equal(t, "Team B (+3.5)", f.Select("game1").Options()[2].Text())
	assert.Equal(t, "Team C (0)", f.Select("game2").Options()[1].Text())
	assert.Equal(t, "Game 1", f.LockSelect().Options()[1].Text())
	assert.Empty(t, p.Surface.Notifications())

	// a second pass does not stack annotations
	assert.Zero(t, Annotate(f, games))
}

func TestInitializeWithoutSnapshotWarns(t *testing.T) {
	p := newPage(t, "http://pool.example/forms/fbpicks.html", nil)
	require.NoError(t, New().Initialize(context.Background(), p))

	notes := p.Surface.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Warning, notes[0].Kind)
	assert.Equal(t, "Team A", p.Form().Select("game1").Options()[1].Text())
}

func TestCurrentPicksPanelFollowsChanges(t *testing.T) {
	p := newPage(t, "http://pool.example/forms/fbpicks.html", games)
	require.NoError(t, New().Initialize(context.Background(), p))
	display := p.Doc.Find("#current-picks-display")
	assert.Equal(t, "Make selections to see them here", display.Find(".empty-state").Text())

	f := p.Form()
	f.Select("game2").SetValue("D")
	f.LockSelect().SetValue("2")

	items := display.Find(".pick-item")
	require.Equal(t, 1, items.Length())
	assert.True(t, items.HasClass("locked"))
	assert.Equal(t, "game2: Team D 🔒", items.Text())
}

func TestPreviewAppliesQueryValues(t *testing.T) {
	p := newPage(t, "http://pool.example/forms/fbpicks.html?psm_preview=1&game1=B&lock=1", games)
	require.NoError(t, New().Initialize(context.Background(), p))

	assert.Equal(t, "B", p.Form().Select("game1").Value())
	assert.Equal(t, "1", p.Form().LockSelect().Value())
	assert.Equal(t, 1, p.Doc.Find("#current-picks-display .pick-item.locked").Length())
}

func TestCheckSubmitHoldsStartedGames(t *testing.T) {
	p := newPage(t, "http://pool.example/forms/fbpicks.html", games)
	m := New()
	require.NoError(t, m.Initialize(context.Background(), p))

	p.Form().Apply(url.Values{"game1": {"A"}, "game2": {"C"}})
	sub := page.NewSubmission(url.Values{"game1": {"A"}, "game2": {"C"}})

	hold, err := m.CheckSubmit(context.Background(), p, sub)
	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, "Warning: Games Already Started", hold.Title)
	assert.Contains(t, hold.Message, "Team A vs Team B")
	assert.NotContains(t, hold.Message, "Team C")
	require.Len(t, hold.Actions, 2)
	assert.Equal(t, "Proceed Anyway", hold.Actions[0].Label)
	assert.Equal(t, "", hold.Actions[1].Value)
}

func TestCheckSubmitIgnoresUnknownTimes(t *testing.T) {
	unknown := []snapshot.Game{{Team1: "Team A", Team2: "Team B", Spread1: -1, Spread2: 1}}
	p := newPage(t, "http://pool.example/forms/fbpicks.html", unknown)
	p.Form().Apply(url.Values{"game1": {"A"}})

	hold, err := New().CheckSubmit(context.Background(), p, page.NewSubmission(nil))
	require.NoError(t, err)
	assert.Nil(t, hold)
}

func TestCommitStoresLastPicks(t *testing.T) {
	ctx := context.Background()
	p := newPage(t, "http://pool.example/forms/fbpicks.html", games)
	m := New()
	require.NoError(t, m.Initialize(ctx, p))
	p.Form().Apply(url.Values{"game1": {"B"}, "lock": {"1"}})

	_, ok := LastPicks(ctx, p.Store)
	assert.False(t, ok)

	require.NoError(t, m.CommitSubmit(ctx, p, page.NewSubmission(nil)))
	set, ok := LastPicks(ctx, p.Store)
	require.True(t, ok)
	assert.Equal(t, "5", set.Week)
	require.Contains(t, set.Selections, "game1")
	assert.Equal(t, "Team B", set.Selections["game1"].Team)
	assert.Equal(t, "+3.5", set.Selections["game1"].Spread)
	assert.True(t, set.Selections["game1"].IsLocked)
}
