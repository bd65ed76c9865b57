// Package timezone converts kickoff times on the spreads page to a chosen
// zone and shows countdowns for the picked games on the picks page.
package timezone

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/PuerkitoBio/goquery"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/snapshot"
	"github.com/kardiff/pses/pkg/storage"
)

const Name = "timezone"

// Param selects a zone by label.
const Param = page.FieldPrefix + "tz"

type Zone struct {
	Label string
	Name  string // IANA name, empty for the local zone
}

var Zones = []Zone{
	{"ET", "America/New_York"},
	{"CT", "America/Chicago"},
	{"MT", "America/Denver"},
	{"AZ", "America/Phoenix"},
	{"PT", "America/Los_Angeles"},
	{"Local", ""},
}

// Lookup finds a zone by label, case-insensitively.
func Lookup(label string) (Zone, bool) {
	for _, z := range Zones {
		if strings.EqualFold(z.Label, label) {
			return z, true
		}
	}
	return Zone{}, false
}

// Location loads the zone. The local zone is the process's.
func (z Zone) Location() (*time.Location, error) {
	if z.Name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(z.Name)
}

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	p.Surface.AddStyles(Name, styles)
	p.Surface.AddScript(Name, tickScript)

	switch path := p.Path(); {
	case strings.Contains(path, "spreads"):
		return m.spreads(ctx, p)
	case strings.Contains(path, "fbpicks"):
		return m.picks(ctx, p)
	}
	return nil
}

// Selected returns the zone chosen through the query, saving it, or else the
// saved one. ok is false when no zone was ever chosen.
func Selected(ctx context.Context, p *page.Page) (Zone, bool) {
	if label := p.Query().Get(Param); label != "" {
		if z, ok := Lookup(label); ok {
			if !storage.Set(ctx, p.Store, storage.KeyTimeZone, z.Label) {
				p.Log.Warnf("Could not save time zone %s", z.Label)
			}
			return z, true
		}
		p.Log.Debugf("Ignoring unknown time zone %q", label)
	}
	return Lookup(storage.Get(ctx, p.Store, storage.KeyTimeZone, ""))
}

func (m *Module) spreads(ctx context.Context, p *page.Page) error {
	zone, chosen := Selected(ctx, p)

	panel := p.Surface.CreatePanel(notify.Position{Top: "20px", Right: "20px"}, "Time Zones")
	panel.Root.AddClass("time-panel")
	var b strings.Builder
	b.WriteString(`<div class="time-zone-buttons">`)
	for _, z := range Zones {
		class := "time-zone-btn"
		if chosen && z.Label == zone.Label {
			class += " active"
		}
		fmt.Fprintf(&b, `<a class="%s" href="%s" data-zone="%s">%s</a>`,
			class, notify.Escape(zoneLink(p.URL, z)), notify.Escape(z.Name), notify.Escape(z.Label))
	}
	b.WriteString(`</div>`)

	display := zone
	if !chosen {
		display = Zone{Label: "Local"}
	}
	loc, err := display.Location()
	if err != nil {
		return fmt.Errorf("timezone: loading %s: %w", display.Label, err)
	}
	now := p.Now().In(loc)
	fmt.Fprintf(&b, `<div id="current-time-display" data-psm-clock="%d" data-psm-zone="%s">Current Time: %s %s</div>`,
		now.UnixMilli(), notify.Escape(display.Name), now.Format("3:04:05 PM"), notify.Escape(display.Label))
	panel.Content.SetHtml(b.String())

	n, err := ConvertCells(p.Doc.Selection, p.Today(), zone, chosen)
	if err != nil {
		return err
	}
	p.Log.Debugf("Prepared %d time cells", n)
	return nil
}

// ConvertCells records the published time of every third cell in
// data-original-time and, when convert is set, rewrites it in zone. Times
// are read in day's location. Cells that do not parse are left as they are.
func ConvertCells(root *goquery.Selection, day time.Time, zone Zone, convert bool) (int, error) {
	loc, err := zone.Location()
	if err != nil {
		return 0, fmt.Errorf("timezone: loading %s: %w", zone.Label, err)
	}
	n := 0
	root.Find("td:nth-child(3)").Each(func(_ int, cell *goquery.Selection) {
		original, ok := cell.Attr("data-original-time")
		if !ok {
			original = strings.TrimSpace(cell.Text())
			cell.SetAttr("data-original-time", original)
		}
		cell.AddClass("game-time")
		n++
		if !convert {
			return
		}
		t := snapshot.ParseGameTime(original, day)
		if t == nil {
			return
		}
		cell.SetText(t.In(loc).Format("3:04 PM") + " " + zone.Label)
	})
	return n, nil
}

func zoneLink(u *url.URL, z Zone) string {
	if u == nil {
		return "?" + Param + "=" + url.QueryEscape(z.Label)
	}
	q := u.Query()
	q.Set(Param, z.Label)
	return u.Path + "?" + q.Encode()
}

func (m *Module) picks(ctx context.Context, p *page.Page) error {
	f := p.Form()
	if f == nil {
		return nil
	}
	games, ok := snapshot.Load(ctx, p.Store)
	if !ok {
		return nil
	}
	now := p.Now()
	for _, s := range f.GameSelects() {
		Countdown(s, games, now)
	}
	f.OnChange(func(s *page.Select) {
		if !s.IsLock() {
			Countdown(s, games, now)
		}
	})
	return nil
}

// Countdown places, or replaces, the countdown after a game select for the
// kickoff of its picked team. Selects without a pick of known time get none.
func Countdown(s *page.Select, games []snapshot.Game, now time.Time) {
	key := s.Key()
	s.Sel.Parent().Find(`div.countdown-timer[data-psm-for="` + key + `"]`).Remove()

	o := s.Selected()
	if o == nil || o.Value() == "" {
		return
	}
	g, ok := snapshot.FindTeam(games, page.CleanTeamName(o.Text()))
	if !ok || g.Time == nil {
		return
	}
	s.Sel.AfterHtml(fmt.Sprintf(`<div class="countdown-timer" data-psm-for="%s" data-psm-deadline="%d">%s</div>`,
		notify.Escape(key), g.Time.UnixMilli(), FormatRemaining(g.Time.Sub(now))))
}

// FormatRemaining renders the time left before kickoff.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return `<div class="game-time-warning">Game has started</div>`
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("Time until game: %dh %dm %ds", h, m, sec)
}
