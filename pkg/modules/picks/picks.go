// Package picks is the core module of the picks page: it annotates the game
// selects with spreads, shows the current picks and guards submissions of
// games that have already kicked off.
package picks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/selection"
	"github.com/kardiff/pses/pkg/snapshot"
	"github.com/kardiff/pses/pkg/storage"
)

const Name = "picks"

// PreviewParam marks a GET of the picks page that carries unsubmitted select
// values to apply before rendering.
const PreviewParam = page.FieldPrefix + "preview"

const confirmProceed = "proceed"

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	f := p.Form()
	if f == nil {
		return nil
	}

	games, ok := snapshot.Load(ctx, p.Store)
	if ok {
		n := Annotate(f, games)
		p.Log.Debugf("Annotated %d options with spreads", n)
	} else {
		p.Surface.ShowNotification("Please visit spreads page first to load current spreads", notify.Warning, 0)
	}

	panel := p.Surface.CreatePanel(notify.Position{Right: "20px", Top: "20px"}, "Current Picks")
	panel.Content.SetAttr("id", "current-picks-display")
	render := func() { renderPicks(panel.Content, f) }
	f.OnChange(func(*page.Select) { render() })
	render()

	if q := p.Query(); q.Get(PreviewParam) != "" {
		applied := f.Apply(preview(q))
		p.Log.Debugf("Applied %d previewed values", applied)
	}
	return nil
}

// Annotate appends each team's spread to its option text, as in
// "Team A (-3.5)". Options already carrying a spread are left alone. It
// returns the number of options changed.
func Annotate(f *page.Form, games []snapshot.Game) int {
	n := 0
	for _, s := range f.GameSelects() {
		for _, o := range s.Options() {
			if o.Value() == "" || page.SpreadText(o.Text()) != "" {
				continue
			}
			team := page.CleanTeamName(o.Text())
			spread, ok := snapshot.SpreadFor(games, team)
			if !ok {
				continue
			}
			o.SetText(fmt.Sprintf("%s (%s)", team, snapshot.FormatSpread(spread)))
			n++
		}
	}
	return n
}

func renderPicks(display *goquery.Selection, f *page.Form) {
	lockValue := ""
	if lock := f.LockSelect(); lock != nil {
		lockValue = lock.Value()
	}
	var b strings.Builder
	for _, s := range f.GameSelects() {
		o := s.Selected()
		if o == nil || o.Value() == "" {
			continue
		}
		n, _ := s.GameNumber()
		locked := lockValue != "" && n == lockValue
		class := "pick-item"
		mark := ""
		if locked {
			class += " locked"
			mark = " 🔒"
		}
		fmt.Fprintf(&b, `<div class="%s">%s: %s%s</div>`, class, notify.Escape(s.Key()), notify.Escape(page.CleanTeamName(o.Text())), mark)
	}
	if b.Len() == 0 {
		display.SetHtml(`<div class="empty-state">Make selections to see them here</div>`)
		return
	}
	display.SetHtml(b.String())
}

func preview(q url.Values) url.Values {
	out := url.Values{}
	for k, vs := range q {
		if !strings.HasPrefix(k, page.FieldPrefix) {
			out[k] = vs
		}
	}
	return out
}

// Started is a picked game whose kickoff has passed.
type Started struct {
	Game snapshot.Game
	Team string
}

// StartedGames returns the picked games that kicked off before now, in the
// order of the selects. Games without a known time never count.
func StartedGames(f *page.Form, games []snapshot.Game, now time.Time) []Started {
	var out []Started
	for _, s := range f.GameSelects() {
		o := s.Selected()
		if o == nil || o.Value() == "" {
			continue
		}
		team := page.CleanTeamName(o.Text())
		g, ok := snapshot.FindTeam(games, team)
		if !ok || g.Time == nil || !g.Time.Before(now) {
			continue
		}
		out = append(out, Started{Game: g, Team: team})
	}
	return out
}

// CheckSubmit holds a submission that includes games already under way.
func (m *Module) CheckSubmit(ctx context.Context, p *page.Page, _ *page.Submission) (*page.Hold, error) {
	f := p.Form()
	if f == nil {
		return nil, nil
	}
	games, ok := snapshot.Load(ctx, p.Store)
	if !ok {
		return nil, nil
	}
	started := StartedGames(f, games, p.Now())
	if len(started) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(`<p>The following games have already begun:</p><ul>`)
	for _, s := range started {
		fmt.Fprintf(&b, `<li>%s vs %s - Started: %s</li>`,
			notify.Escape(s.Game.Team1), notify.Escape(s.Game.Team2),
			notify.Escape(s.Game.Time.In(p.Location).Format("Jan 2, 3:04 PM")))
	}
	b.WriteString(`</ul><p>Unless these games were cancelled, you cannot change picks for these games.</p>`)

	return &page.Hold{
		Title:   "Warning: Games Already Started",
		Message: b.String(),
		Actions: []page.HoldAction{
			{Label: "Proceed Anyway", Value: confirmProceed},
			{Label: "Modify Picks"},
		},
	}, nil
}

// CommitSubmit records the forwarded picks as the last submission.
func (m *Module) CommitSubmit(ctx context.Context, p *page.Page, _ *page.Submission) error {
	set, ok := selection.Capture(p)
	if !ok {
		return nil
	}
	if !storage.Set(ctx, p.Store, storage.KeyLastPicks, set) {
		return fmt.Errorf("picks: saving last picks failed")
	}
	return nil
}

// LastPicks returns the most recent submission, if any.
func LastPicks(ctx context.Context, store *storage.Adapter) (selection.Set, bool) {
	set := storage.Get(ctx, store, storage.KeyLastPicks, selection.Set{})
	return set, set.Timestamp != 0
}
