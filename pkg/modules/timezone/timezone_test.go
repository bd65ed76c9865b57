package timezone

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

const spreadsHTML = `<html><head></head><body><table>
<tr><td>Team A</td><td>-3.5</td><td>7:00 PM</td></tr>
<tr><td>Team B</td><td>+3.5</td><td>7:00 PM</td></tr>
<tr><td>Team C</td><td>-1</td><td>TBD</td></tr>
</table></body></html>`

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func newPage(t *testing.T, rawURL, raw string, store *storage.Adapter) *page.Page {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	p := page.New(u, doc)
	p.Location = eastern(t)
	p.Now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, p.Location) }
	p.Store = store
	p.Surface = notify.New("", nil)
	p.Surface.Bind(doc)
	return p
}

func TestLookup(t *testing.T) {
	z, ok := Lookup("pt")
	require.True(t, ok)
	assert.Equal(t, "America/Los_Angeles", z.Name)
	_, ok = Lookup("GMT")
	assert.False(t, ok)

	loc, err := Zone{Label: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestSpreadsWithoutChoiceKeepsPublishedTimes(t *testing.T) {
	store := storage.NewAdapterWith(storage.NewMemory(), nil)
	p := newPage(t, "http://pool.example/spreads/index.html", spreadsHTML, store)
	require.NoError(t, New().Initialize(context.Background(), p))

	cells := p.Doc.Find("td:nth-child(3)")
	assert.Equal(t, "7:00 PM", cells.Eq(0).Text())
	assert.Equal(t, "7:00 PM", cells.Eq(0).AttrOr("data-original-time", ""))
	assert.True(t, cells.Eq(0).HasClass("game-time"))

	links := p.Doc.Find(".time-panel a.time-zone-btn")
	require.Equal(t, len(Zones), links.Length())
	assert.Equal(t, "/spreads/index.html?psm_tz=CT", links.Eq(1).AttrOr("href", ""))
	assert.Equal(t, 0, links.Filter(".active").Length())
	assert.Contains(t, p.Doc.Find("#current-time-display").Text(), "Current Time:")
}

func TestSpreadsConvertsAndRemembersZone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewAdapterWith(storage.NewMemory(), nil)
	p := newPage(t, "http://pool.example/spreads/index.html?psm_tz=PT", spreadsHTML, store)
	require.NoError(t, New().Initialize(ctx, p))

	cells := p.Doc.Find("td:nth-child(3)")
	assert.Equal(t, "4:00 PM PT", cells.Eq(0).Text())
	assert.Equal(t, "7:00 PM", cells.Eq(0).AttrOr("data-original-time", ""))
	assert.Equal(t, "TBD", cells.Eq(2).Text())
	assert.Equal(t, "PT", p.Doc.Find("a.time-zone-btn.active").Text())
	assert.Equal(t, "PT", storage.Get(ctx, store, storage.KeyTimeZone, ""))

	// the next load uses the saved zone
	next := newPage(t, "http://pool.example/spreads/index.html", spreadsHTML, store)
	require.NoError(t, New().Initialize(ctx, next))
	assert.Equal(t, "4:00 PM PT", next.Doc.Find("td:nth-child(3)").First().Text())
	assert.True(t, strings.HasSuffix(next.Doc.Find("#current-time-display").Text(), "PT"))
}

func TestConvertCellsIsRepeatable(t *testing.T) {
	doc, err := page.Parse(strings.NewReader(spreadsHTML))
	require.NoError(t, err)
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, eastern(t))
	ct, _ := Lookup("CT")
	pt, _ := Lookup("PT")

	_, err = ConvertCells(doc.Selection, day, ct, true)
	require.NoError(t, err)
	_, err = ConvertCells(doc.Selection, day, pt, true)
	require.NoError(t, err)
	assert.Equal(t, "4:00 PM PT", doc.Find("td:nth-child(3)").First().Text())
}

func TestPicksCountdowns(t *testing.T) {
	ctx := context.Background()
	store := storage.NewAdapterWith(storage.NewMemory(), nil)
	loc := eastern(t)
	later := time.Date(2026, 10, 18, 13, 30, 15, 0, loc)
	earlier := time.Date(2026, 10, 18, 9, 0, 0, 0, loc)
	require.True(t, snapshot.Save(ctx, store, []snapshot.Game{
		{Team1: "Team A", Team2: "Team B", Time: &later},
		{Team1: "Team C", Team2: "Team D", Time: &earlier},
	}))

	p := newPage(t, "http://pool.example/forms/fbpicks.html", `<html><body><form>
<div><select name="game1"><option value="">--</option><option value="A" selected>Team A (-3)</option></select></div>
<div><select name="game2"><option value="">--</option><option value="C">Team C</option></select></div>
<div><select name="lock"><option value="">--</option><option value="1">Game 1</option></select></div>
</form></body></html>`, store)
	require.NoError(t, New().Initialize(ctx, p))

	timers := p.Doc.Find(".countdown-timer")
	require.Equal(t, 1, timers.Length())
	assert.Equal(t, "game1", timers.AttrOr("data-psm-for", ""))
	assert.Equal(t, "Time until game: 1h 30m 15s", timers.Text())

	p.Form().Select("game2").SetValue("C")
	started := p.Doc.Find(`.countdown-timer[data-psm-for="game2"]`)
	require.Equal(t, 1, started.Length())
	assert.Equal(t, "Game has started", strings.TrimSpace(started.Text()))

	p.Form().Select("game2").SetValue("")
	assert.Equal(t, 0, p.Doc.Find(`.countdown-timer[data-psm-for="game2"]`).Length())
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "Time until game: 26h 0m 5s", FormatRemaining(26*time.Hour+5*time.Second))
	assert.Contains(t, FormatRemaining(-time.Second), "Game has started")
}
