package spreads

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/selection"
	"github.com/kardiff/pses/pkg/snapshot"
	"github.com/kardiff/pses/pkg/storage"
)

const spreadsHTML = `<html><head></head><body><table>
<tr><th>Team</th><th>Spread</th><th>Time</th></tr>
<tr><td>Team A</td><td>-3.5</td><td>7:00 PM</td></tr>
<tr><td>Team B</td><td>+3.5</td><td>7:00 PM</td></tr>
<tr><td>Team C</td><td>-1</td><td>1:00 PM</td></tr>
<tr><td>Team D</td><td>+1</td><td>1:00 PM</td></tr>
</table></body></html>`

func newPage(t *testing.T, raw string) *page.Page {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	p := page.New(&url.URL{Path: "/spreads/index.html"}, doc)
	p.Location = time.UTC
	p.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	p.Store = storage.NewAdapterWith(storage.NewMemory(), nil)
	p.Surface = notify.New("", nil)
	p.Surface.Bind(doc)
	return p
}

func TestInitializeSavesSnapshot(t *testing.T) {
	ctx := context.Background()
	p := newPage(t, spreadsHTML)
	require.NoError(t, New().Initialize(ctx, p))

	games, ok := snapshot.Load(ctx, p.Store)
	require.True(t, ok)
	require.Len(t, games, 2)
	assert.Equal(t, "Team A", games[0].Team1)
	assert.Equal(t, "Team B", games[0].Team2)
	assert.Equal(t, -3.5, games[0].Spread1)
	require.NotNil(t, games[0].Time)
	assert.Equal(t, 19, games[0].Time.Hour())
	assert.Equal(t, 0, p.Doc.Find(".psm-last-pick").Length())
}

func TestInitializeHighlightsLastPicks(t *testing.T) {
	ctx := context.Background()
	p := newPage(t, spreadsHTML)
	require.True(t, storage.Set(ctx, p.Store, storage.KeyLastPicks, selection.Set{
		Timestamp:  1,
		Week:       "3",
		Selections: map[string]selection.Selection{"game1": {Team: "Team B"}, "game2": {Team: "Team C"}},
	}))

	require.NoError(t, New().Initialize(ctx, p))

	var marked []string
	p.Doc.Find("td.psm-last-pick").Each(func(_ int, s *goquery.Selection) { marked = append(marked, s.Text()) })
	assert.Equal(t, []string{"Team B", "Team C"}, marked)
	assert.Equal(t, 1, p.Doc.Find("style#psm-styles-spreads").Length())
}

func TestInitializeWithoutGamesKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	p := newPage(t, `<html><body><p>No games this week</p></body></html>`)
	prev := []snapshot.Game{{Team1: "X", Team2: "Y"}}
	require.True(t, snapshot.Save(ctx, p.Store, prev))

	require.NoError(t, New().Initialize(ctx, p))
	games, _ := snapshot.Load(ctx, p.Store)
	assert.Equal(t, prev, games)
}
