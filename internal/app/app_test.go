package app

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kardiff/pses/pkg/bootstrap"
	"github.com/kardiff/pses/pkg/storage"
	"github.com/kardiff/pses/pkg/teams"
)

type noTeams struct{}

func (noTeams) Load(context.Context) error { return nil }
func (noTeams) Resolve(raw string) string  { return raw }
func (noTeams) TakeUpdated() bool          { return false }

func TestRegistryOrder(t *testing.T) {
	r, err := NewRegistry(noTeams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"teamnames", "spreads", "picks", "lock", "timezone", "standings", "history", "userid"}, r.Names())

	names := func(path string) []string {
		var out []string
		for _, reg := range r.Relevant(path) {
			out = append(out, reg.Name)
		}
		return out
	}
	assert.Equal(t, []string{"teamnames", "spreads", "timezone"}, names("/spreads/index.html"))
	assert.Equal(t, []string{"teamnames", "picks", "lock", "timezone", "history", "userid"}, names("/forms/fbpicks.html"))
	assert.Equal(t, []string{"standings"}, names("/standings/index.html"))
	assert.Empty(t, names("/index.html"))
}

func TestConfigFrom(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("teams.ttl", "2h")
	cfg := ConfigFrom(v)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.TeamsTTL)
	assert.Equal(t, teams.DefaultRefreshAfter, cfg.TeamsRefreshAfter)
	assert.Equal(t, bootstrap.DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, "America/New_York", cfg.SiteTimezone)
}

func TestEnhanceStandings(t *testing.T) {
	a, err := NewWith(Config{}, storage.NewMemory(), nil, time.UTC)
	require.NoError(t, err)

	u, _ := url.Parse("/standings/index.html?psm_flash=Hello&psm_flash_kind=success")
	p, run, err := a.Enhance(context.Background(), u, strings.NewReader(`<html><body><table><tr><td>Al</td></tr></table></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Ready, run.State("standings"))
	assert.Equal(t, 1, p.Doc.Find("a.bookmark-btn").Length())
	assert.Equal(t, Badge, p.Doc.Find(".psm-status-badge").Text())

	notes := p.Surface.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, "Hello", notes[len(notes)-1].Message)
}
