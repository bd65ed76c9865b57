// Package snapshot scrapes the spreads table into games and shares the
// result with other pages through the store.
package snapshot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kardiff/pses/pkg/storage"
)

// Game is one scraped matchup. Time is nil when the kickoff could not be
// parsed; callers treat that as unknown.
type Game struct {
	Team1   string     `json:"team1" validate:"required"`
	Team2   string     `json:"team2" validate:"required"`
	Spread1 float64    `json:"spread1"`
	Spread2 float64    `json:"spread2"`
	Time    *time.Time `json:"time"`
}

// Build pairs qualifying rows of every table into games, in document order.
// A row qualifies when it has at least three cells and non-empty team and
// spread text. A trailing unpaired row is dropped. now supplies the date and
// location for kickoff times.
func Build(doc *goquery.Document, now time.Time) []Game {
	games := []Game{}
	var current *Game

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 3 {
			return
		}
		team := strings.TrimSpace(cells.Eq(0).Text())
		spread := strings.TrimSpace(cells.Eq(1).Text())
		if team == "" || spread == "" {
			return
		}

		if current == nil {
			current = &Game{
				Team1:   team,
				Spread1: ParseSpread(spread),
				Time:    ParseGameTime(strings.TrimSpace(cells.Eq(2).Text()), now),
			}
			return
		}
		current.Team2 = team
		current.Spread2 = ParseSpread(spread)
		games = append(games, *current)
		current = nil
	})

	return games
}

var spreadRe = regexp.MustCompile(`-?\d+\.?\d*`)

// ParseSpread returns the first number in text, or 0.
func ParseSpread(text string) float64 {
	m := spreadRe.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0
	}
	return v
}

var timeRe = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)?`)

// ParseGameTime reads "H:MM" or "H:MM AM/PM" as a time on now's date in
// now's location. It returns nil for anything else.
func ParseGameTime(text string, now time.Time) *time.Time {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return nil
	}

	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return &t
}

// FormatSpread renders a spread the way option labels show it: "+3.5",
// "-7" or "0".
func FormatSpread(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v > 0 {
		return "+" + s
	}
	return s
}

// FindTeam returns the first game whose team names contain team.
func FindTeam(games []Game, team string) (Game, bool) {
	if team == "" {
		return Game{}, false
	}
	for _, g := range games {
		if strings.Contains(g.Team1, team) || strings.Contains(g.Team2, team) {
			return g, true
		}
	}
	return Game{}, false
}

// SpreadFor returns team's spread from the first game mentioning it.
func SpreadFor(games []Game, team string) (float64, bool) {
	g, ok := FindTeam(games, team)
	if !ok {
		return 0, false
	}
	if strings.Contains(g.Team1, team) {
		return g.Spread1, true
	}
	return g.Spread2, true
}

// Save publishes games as the current snapshot.
func Save(ctx context.Context, store *storage.Adapter, games []Game) bool {
	return storage.Set(ctx, store, storage.KeyCurrentSpreads, games)
}

// Load returns the most recent snapshot. ok is false when no spreads page
// has been seen yet.
func Load(ctx context.Context, store *storage.Adapter) (games []Game, ok bool) {
	games = storage.Get[[]Game](ctx, store, storage.KeyCurrentSpreads, nil)
	return games, games != nil
}
