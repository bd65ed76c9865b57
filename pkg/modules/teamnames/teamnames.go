// Package teamnames rewrites the team names shown on the spreads and picks
// pages to their canonical form.
package teamnames

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/teams"
)

const Name = "teamnames"

// Resolver is the part of teams.Resolver the module needs.
type Resolver interface {
	Load(ctx context.Context) error
	Resolve(raw string) string
	TakeUpdated() bool
}

type Module struct {
	resolver Resolver
}

func New(r Resolver) *Module { return &Module{resolver: r} }

var _ Resolver = (*teams.Resolver)(nil)

// Initialize loads the alias table and standardizes the page. A failed load
// is reported and leaves the page as it is.
func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	if err := m.resolver.Load(ctx); err != nil {
		p.Log.Warnf("Team data unavailable: %v", err)
		p.Surface.ShowNotification("Could not load team data. Team names are shown as published.", notify.Warning, 0)
		return nil
	}
	if m.resolver.TakeUpdated() {
		p.Surface.ShowNotification("Team data updated", notify.Info, 0)
	}

	switch path := p.Path(); {
	case strings.Contains(path, "spreads"):
		if n := m.StandardizeCells(p.Doc.Selection); n > 0 {
			p.Surface.ShowNotification(fmt.Sprintf("Standardized %d team names", n), notify.Success, 0)
		}
	case strings.Contains(path, "fbpicks"):
		if f := p.Form(); f != nil {
			if n := m.StandardizeOptions(f); n > 0 {
				p.Surface.ShowNotification(fmt.Sprintf("Standardized %d team names in dropdowns", n), notify.Success, 0)
			}
		}
	}
	return nil
}

// StandardizeCells rewrites the first cell of every table row. The original
// name is kept in the cell's title.
func (m *Module) StandardizeCells(root *goquery.Selection) int {
	n := 0
	root.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.ChildrenFiltered("td").First()
		if cell.Length() == 0 {
			return
		}
		if text, ok := m.rewrite(cell.Text()); ok {
			cell.SetAttr("title", "Original: "+page.CleanTeamName(cell.Text()))
			cell.SetText(text)
			n++
		}
	})
	return n
}

// StandardizeOptions rewrites the team options of the game selects.
func (m *Module) StandardizeOptions(f *page.Form) int {
	n := 0
	for _, s := range f.GameSelects() {
		for _, o := range s.Options() {
			if o.Value() == "" {
				continue
			}
			if text, ok := m.rewrite(o.Text()); ok {
				o.Sel.SetAttr("title", "Original: "+page.CleanTeamName(o.Text()))
				o.SetText(text)
				n++
			}
		}
	}
	return n
}

// rewrite replaces the team name within text, keeping any annotations.
func (m *Module) rewrite(text string) (string, bool) {
	name := page.CleanTeamName(text)
	if name == "" {
		return "", false
	}
	canonical := m.resolver.Resolve(name)
	if canonical == name {
		return "", false
	}
	collapsed := strings.Join(strings.Fields(text), " ")
	if strings.Contains(collapsed, name) {
		return strings.Replace(collapsed, name, canonical, 1), true
	}
	return canonical, true
}
