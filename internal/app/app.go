// Package app wires the store, the team resolver, the module registry and
// page construction from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/viper"

	"github.com/kardiff/pses/internal/utils"
	"github.com/kardiff/pses/pkg/bootstrap"
	"github.com/kardiff/pses/pkg/modules/history"
	"github.com/kardiff/pses/pkg/modules/lock"
	"github.com/kardiff/pses/pkg/modules/picks"
	"github.com/kardiff/pses/pkg/modules/spreads"
	"github.com/kardiff/pses/pkg/modules/standings"
	"github.com/kardiff/pses/pkg/modules/teamnames"
	"github.com/kardiff/pses/pkg/modules/timezone"
	"github.com/kardiff/pses/pkg/modules/userid"
	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/selection"
	"github.com/kardiff/pses/pkg/storage"
	"github.com/kardiff/pses/pkg/teams"
	"github.com/kardiff/pses/pkg/whttp"
)

// Badge is the status badge shown on every enhanced page.
const Badge = "PigSkin Suite v" + selection.Version

// Page path fragments each module is relevant to.
const (
	SpreadsPath   = "spreads"
	PicksPath     = "fbpicks"
	StandingsPath = "standings"
)

type Config struct {
	Upstream string
	Listen   string
	Username string
	Password string

	StoreDriver string
	StorePath   string

	SiteTimezone string

	TeamsEndpoint     string
	TeamsPage         string
	TeamsTTL          time.Duration
	TeamsRefreshAfter time.Duration

	PollInterval time.Duration
	MaxAttempts  int

	Rate  float64
	Proxy string
}

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("upstream", "")
	v.SetDefault("listen", "127.0.0.1:8787")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "")
	v.SetDefault("site.timezone", "America/New_York")
	v.SetDefault("teams.endpoint", teams.DefaultEndpoint)
	v.SetDefault("teams.page", teams.DefaultPage)
	v.SetDefault("teams.ttl", teams.DefaultTTL)
	v.SetDefault("teams.refresh_after", teams.DefaultRefreshAfter)
	v.SetDefault("bootstrap.poll_interval", bootstrap.DefaultPollInterval)
	v.SetDefault("bootstrap.max_attempts", bootstrap.DefaultMaxAttempts)
	v.SetDefault("http.rate", 5.0)
}

// ConfigFrom reads the configuration from v.
func ConfigFrom(v *viper.Viper) Config {
	return Config{
		Upstream:          v.GetString("upstream"),
		Listen:            v.GetString("listen"),
		Username:          v.GetString("auth.username"),
		Password:          v.GetString("auth.password"),
		StoreDriver:       v.GetString("store.driver"),
		StorePath:         v.GetString("store.path"),
		SiteTimezone:      v.GetString("site.timezone"),
		TeamsEndpoint:     v.GetString("teams.endpoint"),
		TeamsPage:         v.GetString("teams.page"),
		TeamsTTL:          v.GetDuration("teams.ttl"),
		TeamsRefreshAfter: v.GetDuration("teams.refresh_after"),
		PollInterval:      v.GetDuration("bootstrap.poll_interval"),
		MaxAttempts:       v.GetInt("bootstrap.max_attempts"),
		Rate:              v.GetFloat64("http.rate"),
		Proxy:             v.GetString("proxy"),
	}
}

// NewRegistry registers every feature module. Registration order is the
// initialization order within a page.
func NewRegistry(resolver teamnames.Resolver) (*bootstrap.Registry, error) {
	r := bootstrap.NewRegistry()
	regs := []bootstrap.Registration{
		{Name: teamnames.Name, RelevantPaths: []string{SpreadsPath, PicksPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapSurface, bootstrap.CapDocument},
			Module:        teamnames.New(resolver)},
		{Name: spreads.Name, RelevantPaths: []string{SpreadsPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapDocument},
			Module:        spreads.New()},
		{Name: picks.Name, RelevantPaths: []string{PicksPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapSurface, bootstrap.CapDocument},
			Module:        picks.New()},
		{Name: lock.Name, RelevantPaths: []string{PicksPath},
			Prerequisites: []string{picks.Name},
			Module:        lock.New()},
		{Name: timezone.Name, RelevantPaths: []string{SpreadsPath, PicksPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapSurface},
			Module:        timezone.New()},
		{Name: standings.Name, RelevantPaths: []string{StandingsPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapSurface},
			Module:        standings.New()},
		{Name: history.Name, RelevantPaths: []string{PicksPath},
			Prerequisites: []string{picks.Name},
			Module:        history.New()},
		{Name: userid.Name, RelevantPaths: []string{PicksPath},
			Prerequisites: []string{bootstrap.CapStore, bootstrap.CapSurface},
			Module:        userid.New()},
	}
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// App holds the process-wide collaborators shared by every page load.
type App struct {
	Config   Config
	Store    *storage.Adapter
	Client   *whttp.Client
	Resolver *teams.Resolver
	Boot     *bootstrap.Bootstrapper
	Location *time.Location
	Upstream *url.URL
	Now      func() time.Time
}

// New opens the store and builds the resolver, registry and bootstrapper.
func New(cfg Config) (*App, error) {
	loc, err := time.LoadLocation(cfg.SiteTimezone)
	if err != nil {
		return nil, fmt.Errorf("app: site timezone %q: %w", cfg.SiteTimezone, err)
	}
	var upstream *url.URL
	if cfg.Upstream != "" {
		upstream, err = url.Parse(cfg.Upstream)
		if err != nil || upstream.Host == "" {
			return nil, fmt.Errorf("app: bad upstream %q", cfg.Upstream)
		}
	}

	path := cfg.StorePath
	if cfg.StoreDriver != "memory" {
		path, err = utils.GetAbsStorePath(cfg.StorePath, cfg.StoreDriver)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("app: creating store directory: %w", err)
		}
	}
	backend, err := storage.OpenBackend(cfg.StoreDriver, path)
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("Opened %s store at %s", or(cfg.StoreDriver, "sqlite"), path)
	return NewWith(cfg, backend, upstream, loc)
}

// NewWith builds an app around an already opened backend.
func NewWith(cfg Config, backend storage.Backend, upstream *url.URL, loc *time.Location) (*App, error) {
	client, err := whttp.NewClient(cfg.Proxy, cfg.Rate)
	if err != nil {
		return nil, err
	}
	store := storage.NewAdapterWith(backend, utils.Log)
	resolver := teams.New(teams.Config{
		Source: &teams.WikiSource{
			Client:   client,
			Endpoint: cfg.TeamsEndpoint,
			Page:     cfg.TeamsPage,
		},
		Store:        store,
		TTL:          cfg.TeamsTTL,
		RefreshAfter: cfg.TeamsRefreshAfter,
		Log:          utils.Log.WithField("component", "teams"),
	})
	registry, err := NewRegistry(resolver)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Store:    store,
		Client:   client,
		Resolver: resolver,
		Boot: bootstrap.New(bootstrap.Config{
			Registry:     registry,
			PollInterval: cfg.PollInterval,
			MaxAttempts:  cfg.MaxAttempts,
			Log:          utils.Log,
		}),
		Location: loc,
		Upstream: upstream,
		Now:      time.Now,
	}, nil
}

// Close waits for background refreshes and closes the store.
func (a *App) Close() error {
	a.Resolver.Wait()
	return a.Store.Close()
}

// NewPage parses body as the page at u and attaches a fresh surface and the
// shared store.
func (a *App) NewPage(u *url.URL, body io.Reader) (*page.Page, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("app: parsing %s: %w", u.Path, err)
	}
	p := page.New(u, doc)
	log := utils.Log.WithField("load", p.ID)
	p.Log = log
	p.Location = a.Location
	p.Now = a.Now
	p.Store = a.Store
	p.Surface = notify.New(Badge, log)
	p.Surface.Bind(doc)
	return p, nil
}

// Enhance builds the page and runs every relevant module on it.
func (a *App) Enhance(ctx context.Context, u *url.URL, body io.Reader) (*page.Page, *bootstrap.Run, error) {
	p, err := a.NewPage(u, body)
	if err != nil {
		return nil, nil, err
	}
	run := a.Boot.Start(p)
	res := run.Initialize(ctx)
	if res.Aborted {
		p.Log.Warnf("Enhancement aborted: %v", res.Err)
	} else if len(res.Initialized)+len(res.Failed) > 0 {
		p.Log.Debugf("Initialized %v, failed %v", res.Initialized, res.Failed)
	}
	p.ShowFlash()
	return p, run, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
