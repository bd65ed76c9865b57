// Package history records every forwarded picks submission and shows the
// per-week history with stats and export links.
package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/selection"
)

const Name = "history"

// WeekParam selects the week shown in the panel.
const WeekParam = page.FieldPrefix + "week"

// Endpoints served by the proxy.
const (
	ExportPath = page.EndpointPrefix + "export"
	ClearPath  = page.EndpointPrefix + "history/clear"
)

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	p.Surface.AddStyles(Name, styles)
	h := selection.Load(ctx, p.Store)

	panel := p.Surface.CreatePanel(notify.Position{Right: "20px", Top: "20px", Width: "400px"}, "Picks History")
	panel.Root.AddClass("picks-history-panel")
	panel.Content.SetHtml(Render(h, p.Query().Get(WeekParam), p.URL))
	return nil
}

// CommitSubmit appends the forwarded picks to their week.
func (m *Module) CommitSubmit(ctx context.Context, p *page.Page, _ *page.Submission) error {
	set, ok := selection.Capture(p)
	if !ok {
		return nil
	}
	if !selection.Store(ctx, p.Store, set) {
		return fmt.Errorf("history: storing picks for week %s failed", set.Week)
	}
	p.Log.Infof("Stored %d picks for week %s", len(set.Selections), set.Week)
	return nil
}

// Render builds the panel body: stats, week links, the chosen week and the
// export and clear controls.
func Render(h selection.History, week string, current *url.URL) string {
	st := h.Stats()
	var b strings.Builder

	b.WriteString(`<div class="picks-history-stats">`)
	fmt.Fprintf(&b, `<div class="stat-item"><span>Total Picks:</span><strong>%d</strong></div>`, st.TotalPicks)
	fmt.Fprintf(&b, `<div class="stat-item"><span>Weeks Played:</span><strong>%d</strong></div>`, st.WeeksPlayed)
	fmt.Fprintf(&b, `<div class="stat-item"><span>Lock Success Rate:</span><strong>%s%%</strong></div>`, formatRate(st.LockSuccessRate()))
	b.WriteString(`</div>`)

	b.WriteString(`<div class="week-selector">`)
	for _, w := range h.Weeks() {
		class := "week-link"
		if w == week {
			class += " active"
		}
		fmt.Fprintf(&b, `<a class="%s" href="%s">Week %s</a> `, class, notify.Escape(weekLink(current, w)), notify.Escape(w))
	}
	b.WriteString(`</div>`)

	b.WriteString(`<div class="picks-history-content">`)
	switch {
	case len(h) == 0:
		b.WriteString(`<div class="history-empty-state">No picks history</div>`)
	case week == "":
	case len(h[week]) == 0:
		fmt.Fprintf(&b, `<div class="history-empty-state">No picks found for Week %s</div>`, notify.Escape(week))
	default:
		for _, set := range h.Week(week) {
			renderSet(&b, set)
		}
	}
	b.WriteString(`</div>`)

	back := ""
	if current != nil {
		back = current.RequestURI()
	}
	b.WriteString(`<div class="picks-controls">`)
	fmt.Fprintf(&b, `<a class="psm-button export-option-btn" href="%s?format=json">Export JSON</a>`, ExportPath)
	fmt.Fprintf(&b, `<a class="psm-button export-option-btn" href="%s?format=csv">Export CSV</a>`, ExportPath)
	fmt.Fprintf(&b, `<form method="post" action="%s" class="psm-clear-history" onsubmit="return confirm('Are you sure you want to clear all picks history? This cannot be undone.');">`, ClearPath)
	fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, page.ReturnParam, notify.Escape(back))
	b.WriteString(`<button type="submit" class="psm-button psm-danger">Clear History</button></form>`)
	b.WriteString(`</div>`)
	return b.String()
}

func renderSet(b *strings.Builder, set selection.Set) {
	b.WriteString(`<div class="pick-set">`)
	fmt.Fprintf(b, `<div class="pick-details">Submitted: %s</div>`, set.Time().Format("Jan 2, 2006 3:04 PM"))
	for _, game := range set.Keys() {
		sel := set.Selections[game]
		class := "pick-item"
		if sel.IsLocked {
			class += " locked"
		}
		if sel.Won != nil {
			if *sel.Won {
				class += " winner"
			} else {
				class += " loser"
			}
		}
		label := game
		if n, ok := page.GameNumber(game, ""); ok {
			label = n
		}
		fmt.Fprintf(b, `<div class="%s"><div>Game %s: %s</div>`, class, notify.Escape(label), notify.Escape(sel.Team))
		if sel.IsLocked {
			b.WriteString(`<span>🔒 Lock</span>`)
		}
		if sel.Spread != "" {
			fmt.Fprintf(b, `<div>Spread: %s</div>`, notify.Escape(sel.Spread))
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
}

func weekLink(u *url.URL, week string) string {
	if u == nil {
		return "?" + WeekParam + "=" + url.QueryEscape(week)
	}
	q := u.Query()
	q.Set(WeekParam, week)
	return u.Path + "?" + q.Encode()
}

func formatRate(r float64) string {
	if r == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", r)
}

const styles = `
.picks-history-panel { max-height: 80vh; overflow: hidden; }
.picks-history-content { overflow-y: auto; max-height: calc(80vh - 50px); }
.week-selector { margin-bottom: 10px; }
.week-link.active { font-weight: bold; }
.pick-item { background: white; border-radius: 4px; padding: 10px; margin-bottom: 8px; border-left: 3px solid transparent; }
.pick-item.locked { border-left-color: #28a745; }
.pick-item.winner { background-color: #d4edda; }
.pick-item.loser { background-color: #f8d7da; }
.pick-details { font-size: 0.9em; color: #6c757d; margin-top: 5px; }
.picks-controls { display: flex; gap: 10px; margin-top: 10px; padding-top: 10px; border-top: 1px solid #dee2e6; }
.picks-history-stats { background: #f8f9fa; border-radius: 4px; padding: 10px; margin-bottom: 10px; }
.stat-item { display: flex; justify-content: space-between; margin-bottom: 5px; }
.history-empty-state { text-align: center; padding: 20px; color: #6c757d; }
.psm-danger { background: #dc3545; }
`
