package lock

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/snapshot"
	"github.com/kardiff/pses/pkg/storage"
)

const picksHTML = `<html><body><form action="fbpicks.cgi">
<select name="game1"><option value="">--</option><option value="A">Team A</option><option value="B">Team B</option></select>
<select name="game2"><option value="">--</option><option value="C">Team C</option><option value="D">Team D</option></select>
<select name="game3"><option value="">--</option><option value="E">Team E</option><option value="F">Team F</option></select>
<select name="lockgame"><option value="">Pick a lock</option><option value="1">Game 1</option><option value="2">Game 2</option><option value="3">Game 3</option></select>
</form></body></html>`

func newPage(t *testing.T) *page.Page {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(picksHTML))
	require.NoError(t, err)
	u, _ := url.Parse("http://pool.example/forms/fbpicks.html")
	p := page.New(u, doc)
	p.Store = storage.NewAdapterWith(storage.NewMemory(), nil)
	p.Surface = notify.New("", nil)
	p.Surface.Bind(doc)
	require.True(t, snapshot.Save(context.Background(), p.Store, []snapshot.Game{
		{Team1: "Team A", Team2: "Team B", Spread1: -3.5, Spread2: 3.5},
		{Team1: "Team C", Team2: "Team D", Spread1: 7, Spread2: -7},
	}))
	return p
}

// assertInvariant checks that every enabled lock option names a picked game.
func assertInvariant(t *testing.T, p *page.Page) {
	t.Helper()
	f := p.Form()
	picked := map[string]bool{}
	for _, s := range f.GameSelects() {
		if s.Value() != "" {
			n, _ := s.GameNumber()
			picked[n] = true
		}
	}
	for _, o := range f.LockSelect().Options() {
		if o.Value() == "" || o.Disabled() {
			continue
		}
		assert.True(t, picked[o.Value()], "lock option %s enabled without a pick", o.Value())
	}
	if v := f.LockSelect().Value(); v != "" {
		assert.True(t, picked[v], "lock %s points at an unpicked game", v)
	}
}

func TestInitializeDisablesUnpickedGames(t *testing.T) {
	p := newPage(t)
	require.NoError(t, New().Initialize(context.Background(), p))

	opts := p.Form().LockSelect().Options()
	require.Len(t, opts, 4)
	for _, o := range opts[1:] {
		assert.True(t, o.Disabled())
		assert.True(t, o.Sel.HasClass("disabled-option"))
		assert.Contains(t, o.Text(), "(Make selection first)")
	}
	assert.Equal(t, "No lock selected", p.Doc.Find("#lock-status-display .empty-state").Text())
	assertInvariant(t, p)
}

func TestChangesKeepLockConsistent(t *testing.T) {
	p := newPage(t)
	require.NoError(t, New().Initialize(context.Background(), p))
	f := p.Form()
	lock := f.LockSelect()

	f.Select("game1").SetValue("B")
	assertInvariant(t, p)
	assert.Equal(t, "Game 1: Team B (+3.5)", lock.Options()[1].Text())
	assert.False(t, lock.Options()[1].Disabled())

	f.Select("game3").SetValue("E")
	assertInvariant(t, p)
	assert.Equal(t, "Game 3: Team E", lock.Options()[3].Text())

	lock.SetValue("1")
	assertInvariant(t, p)
	status := p.Doc.Find("#lock-status-display")
	assert.Equal(t, "Game 1", status.Find(".lock-game").Text())
	assert.Equal(t, "Team B", status.Find(".lock-team").Text())
	assert.Equal(t, "Spread: +3.5", status.Find(".spread-info").Text())

	// switching the pick relabels the lock without clearing it
	f.Select("game1").SetValue("A")
	assertInvariant(t, p)
	assert.Equal(t, "1", lock.Value())
	assert.Equal(t, "Game 1: Team A (-3.5)", lock.Options()[1].Text())

	// unpicking the locked game resets the lock as a side effect
	f.Select("game1").SetValue("")
	assertInvariant(t, p)
	assert.Equal(t, "", lock.Value())
	assert.True(t, lock.Options()[1].Disabled())
	assert.Equal(t, "No lock selected", p.Doc.Find("#lock-status-display .empty-state").Text())
}

func TestApplySubmittedValuesInAnyOrder(t *testing.T) {
	p := newPage(t)
	require.NoError(t, New().Initialize(context.Background(), p))

	p.Form().Apply(url.Values{"lockgame": {"2"}, "game2": {"D"}})
	assertInvariant(t, p)
	assert.Equal(t, "2", p.Form().LockSelect().Value())
	assert.Equal(t, "Game 2: Team D (-7)", p.Form().LockSelect().Options()[2].Text())
}

func TestPageWithoutLockSelector(t *testing.T) {
	doc, err := page.Parse(strings.NewReader(`<html><body><form><select name="game1"></select></form></body></html>`))
	require.NoError(t, err)
	p := page.New(&url.URL{Path: "/forms/fbpicks.html"}, doc)
	p.Surface = notify.New("", nil)
	p.Surface.Bind(doc)

	require.NoError(t, New().Initialize(context.Background(), p))
	assert.Equal(t, 0, doc.Find(".psm-panel").Length())
}
