// Package standings adds player bookmarks and a name filter to the standings
// table.
package standings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/storage"
)

const Name = "standings"

// TogglePath adds or removes the bookmark of PlayerParam.
const TogglePath = page.EndpointPrefix + "bookmarks/toggle"

const PlayerParam = "player"

// FilterParam hides the players whose name does not contain it.
const FilterParam = page.FieldPrefix + "q"

const star = "★"

// Bookmarks returns the bookmarked players in the order they were added.
func Bookmarks(ctx context.Context, store *storage.Adapter) []string {
	return storage.Get(ctx, store, storage.KeyPlayerBookmarks, []string{})
}

// Toggle bookmarks player, or removes the bookmark when it exists. added
// reports which happened.
func Toggle(ctx context.Context, store *storage.Adapter, player string) (added bool, err error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return false, fmt.Errorf("standings: empty player name")
	}
	ok := storage.Update(ctx, store, storage.KeyPlayerBookmarks, []string{}, func(list []string) []string {
		out, removed := remove(list, player)
		if removed {
			added = false
			return out
		}
		added = true
		return append(out, player)
	})
	if !ok {
		return false, fmt.Errorf("standings: saving bookmarks failed")
	}
	return added, nil
}

// ToggleMessage is the notification text for a toggle outcome.
func ToggleMessage(player string, added bool) (string, notify.Kind) {
	if added {
		return "Bookmarked: " + player, notify.Success
	}
	return "Removed bookmark: " + player, notify.Info
}

func remove(list []string, player string) ([]string, bool) {
	out := make([]string, 0, len(list))
	removed := false
	for _, p := range list {
		if p == player {
			removed = true
			continue
		}
		out = append(out, p)
	}
	return out, removed
}

// PlayerName is the name in a row's first cell, without the bookmark star.
func PlayerName(row *goquery.Selection) string {
	cell := row.ChildrenFiltered("td").First()
	if cell.Length() == 0 {
		return ""
	}
	text := cell.Clone()
	text.Find(".bookmark-btn").Remove()
	return strings.TrimSpace(strings.ReplaceAll(text.Text(), star, ""))
}

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	p.Surface.AddStyles(Name, styles)
	bookmarks := Bookmarks(ctx, p.Store)
	marked := map[string]bool{}
	for _, b := range bookmarks {
		marked[b] = true
	}
	back := ""
	if p.URL != nil {
		back = p.URL.RequestURI()
	}
	filter := strings.ToLower(strings.TrimSpace(p.Query().Get(FilterParam)))

	anchors := map[string]string{}
	players := 0
	p.Doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		name := PlayerName(row)
		if name == "" {
			return
		}
		players++
		id := "psm-player-" + strconv.Itoa(i)
		row.SetAttr("id", id)
		for _, b := range bookmarks {
			if _, seen := anchors[b]; !seen && strings.Contains(name, b) {
				anchors[b] = id
			}
		}

		class := "bookmark-btn"
		if marked[name] {
			class += " active"
			row.AddClass("bookmarked-player")
		}
		row.ChildrenFiltered("td").First().AppendHtml(fmt.Sprintf(
			`<a class="%s" href="%s" title="Bookmark this player">%s</a>`,
			class, notify.Escape(toggleLink(name, back)), star))

		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			row.SetAttr("style", "display: none;")
		}
	})
	p.Log.Debugf("Found %d player rows", players)

	panel := p.Surface.CreatePanel(notify.Position{Top: "20px", Right: "20px"}, "Bookmarked Players")
	panel.Root.AddClass("standings-controls")
	panel.Content.SetHtml(renderControls(bookmarks, anchors, p.Query().Get(FilterParam), p.Path(), back))
	return nil
}

func toggleLink(player, back string) string {
	q := url.Values{PlayerParam: {player}, page.ReturnParam: {back}}
	return TogglePath + "?" + q.Encode()
}

func renderControls(bookmarks []string, anchors map[string]string, filter, path, back string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<form method="get" action="%s" class="standings-search">`, notify.Escape(path))
	fmt.Fprintf(&b, `<input type="text" class="search-box" name="%s" placeholder="Search players..." value="%s">`,
		FilterParam, notify.Escape(filter))
	b.WriteString(`</form><div class="bookmark-list">`)
	if len(bookmarks) == 0 {
		b.WriteString(`<div class="bookmark-item">No bookmarked players</div>`)
	}
	for _, player := range bookmarks {
		fmt.Fprintf(&b, `<div class="bookmark-item"><span>%s</span><div class="bookmark-item-controls">`, notify.Escape(player))
		if id, ok := anchors[player]; ok {
			fmt.Fprintf(&b, `<a class="jump-btn" href="#%s">Jump</a>`, id)
		}
		fmt.Fprintf(&b, `<a class="remove-bookmark" href="%s">✕</a></div></div>`, notify.Escape(toggleLink(player, back)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

const styles = `
.standings-controls { min-width: 250px; max-width: 300px; }
.bookmarked-player { background-color: #fff3cd !important; transition: background-color 0.3s; }
.bookmark-btn { margin-left: 5px; color: #6c757d; text-decoration: none; cursor: pointer; }
.bookmark-btn.active { color: #ffc107; }
.bookmark-list { max-height: 300px; overflow-y: auto; }
.bookmark-item { display: flex; justify-content: space-between; align-items: center; padding: 5px; margin: 2px 0; background: #f8f9fa; border-radius: 4px; }
.bookmark-item-controls { display: flex; gap: 5px; }
.jump-btn, .remove-bookmark { padding: 2px 6px; border-radius: 3px; color: white; text-decoration: none; }
.jump-btn { background: #007bff; }
.remove-bookmark { background: #dc3545; }
.search-box { width: 100%; padding: 5px; margin-bottom: 10px; border: 1px solid #dee2e6; border-radius: 4px; }
tr:target { animation: psm-flash 1s; }
@keyframes psm-flash { 0% { background-color: #ffc107; } 100% { background-color: transparent; } }
`
