// Package spreads publishes the spreads table as the current game snapshot
// and marks the teams of the last submission.
package spreads

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/modules/picks"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/snapshot"
)

const Name = "spreads"

const highlightStyles = `
.psm-last-pick { background-color: #e6ffe6; border-left: 3px solid #00cc00; }
`

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	games := snapshot.Build(p.Doc, p.Today())
	if len(games) == 0 {
		p.Log.Debugf("No games found on %s", p.Path())
		return nil
	}
	if !snapshot.Save(ctx, p.Store, games) {
		return fmt.Errorf("spreads: saving %d games failed", len(games))
	}
	p.Log.Infof("Saved snapshot of %d games", len(games))

	if n := highlightLastPicks(ctx, p); n > 0 {
		p.Log.Debugf("Highlighted %d picked teams", n)
	}
	return nil
}

func highlightLastPicks(ctx context.Context, p *page.Page) int {
	last, ok := picks.LastPicks(ctx, p.Store)
	if !ok || len(last.Selections) == 0 {
		return 0
	}
	p.Surface.AddStyles("spreads", highlightStyles)

	n := 0
	p.Doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.ChildrenFiltered("td").First()
		name := strings.TrimSpace(cell.Text())
		if name == "" {
			return
		}
		for _, sel := range last.Selections {
			if strings.Contains(sel.Team, name) {
				cell.AddClass("psm-last-pick")
				n++
				return
			}
		}
	})
	return n
}
