// Package lock keeps the lock selector of the picks form consistent with the
// games picked so far.
package lock

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/snapshot"
)

const Name = "lock"

type Module struct{}

func New() *Module { return &Module{} }

// Initialize attaches a Coordinator to the page's lock selector and adds the
// lock status panel. Pages without a lock selector are left alone.
func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	f := p.Form()
	if f == nil {
		return nil
	}
	lock := f.LockSelect()
	if lock == nil {
		p.Log.Debugf("No lock selector on %s", p.Path())
		return nil
	}
	games, _ := snapshot.Load(ctx, p.Store)

	lock.Sel.AddClass("psm-select psm-lock-select")
	panel := p.Surface.CreatePanel(notify.Position{Left: "20px", Bottom: "20px", Width: "250px"}, "Lock Status")
	panel.Content.SetAttr("id", "lock-status-display")

	c := &Coordinator{form: f, lock: lock, games: games, display: panel.Content}
	f.OnChange(func(s *page.Select) {
		if s.IsLock() {
			c.renderStatus()
			return
		}
		c.Recompute()
	})
	c.Recompute()
	return nil
}

// Coordinator derives the lock selector's options from the game selects.
type Coordinator struct {
	form    *page.Form
	lock    *page.Select
	games   []snapshot.Game
	display *goquery.Selection
}

// Selected returns the team picked in each game select, keyed by game
// number.
func (c *Coordinator) Selected() map[string]string {
	teams := map[string]string{}
	for _, s := range c.form.GameSelects() {
		o := s.Selected()
		if o == nil || o.Value() == "" {
			continue
		}
		if n, ok := s.GameNumber(); ok {
			teams[n] = page.CleanTeamName(o.Text())
		}
	}
	return teams
}

// Recompute enables and labels the lock options of picked games, disables
// the rest and clears a lock that points at a game no longer picked.
func (c *Coordinator) Recompute() {
	teams := c.Selected()
	for _, o := range c.lock.Options() {
		game := o.Value()
		if game == "" {
			continue
		}
		team, ok := teams[game]
		if !ok {
			o.SetDisabled(true)
			o.SetText(fmt.Sprintf("Game %s: (Make selection first)", game))
			continue
		}
		o.SetDisabled(false)
		o.SetText(c.label(game, team))
	}

	if v := c.lock.Value(); v != "" {
		if _, ok := teams[v]; !ok {
			// fires the change handlers, which render the status
			c.lock.SetValue("")
			return
		}
	}
	c.renderStatus()
}

func (c *Coordinator) label(game, team string) string {
	label := fmt.Sprintf("Game %s: %s", game, team)
	if spread, ok := snapshot.SpreadFor(c.games, team); ok {
		label += " (" + snapshot.FormatSpread(spread) + ")"
	}
	return label
}

func (c *Coordinator) renderStatus() {
	if c.display == nil {
		return
	}
	game := c.lock.Value()
	team, ok := c.Selected()[game]
	if game == "" || !ok {
		c.display.SetHtml(`<div class="empty-state">No lock selected</div>`)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="lock-status">`)
	b.WriteString(`<div class="lock-icon">🔒</div>`)
	fmt.Fprintf(&b, `<div class="lock-game">Game %s</div>`, notify.Escape(game))
	fmt.Fprintf(&b, `<div class="lock-team">%s</div>`, notify.Escape(team))
	if spread, ok := snapshot.SpreadFor(c.games, team); ok {
		fmt.Fprintf(&b, `<div class="spread-info">Spread: %s</div>`, snapshot.FormatSpread(spread))
	}
	b.WriteString(`</div>`)
	c.display.SetHtml(b.String())
}
