package teams

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Record maps one canonical team name to the normalized strings it is known by.
type Record struct {
	Official    string   `json:"official" validate:"required"`
	Aliases     []string `json:"aliases"`
	LastUpdated int64    `json:"lastUpdated"`
}

var abbreviations = []struct{ full, abbr string }{
	{"New York", "NY"},
	{"San Francisco", "SF"},
	{"Los Angeles", "LA"},
	{"New England", "NE"},
}

// ParseTables reads every `table.wikitable` in markup. Rows need a team name
// cell followed by a non-empty alternate names cell; anything else is
// skipped. A team listed twice keeps its first position and its last row.
func ParseTables(markup string, updated int64) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var records []Record
	index := map[string]int{}
	doc.Find("table.wikitable tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		official := strings.TrimSpace(cells.Eq(0).Text())
		alternates := strings.TrimSpace(cells.Eq(1).Text())
		if official == "" || alternates == "" {
			return
		}

		rec := Record{Official: official, Aliases: aliasesFor(official, alternates), LastUpdated: updated}
		if i, ok := index[official]; ok {
			records[i] = rec
			return
		}
		index[official] = len(records)
		records = append(records, rec)
	})
	return records, nil
}

func aliasesFor(official, alternates string) []string {
	names := []string{official}
	for _, alt := range strings.Split(alternates, ",") {
		names = append(names, strings.TrimSpace(alt))
	}
	words := strings.Fields(official)
	if len(words) > 0 {
		names = append(names, words[len(words)-1])
	}
	names = append(names, variants(official)...)

	seen := map[string]bool{}
	var aliases []string
	for _, n := range names {
		a := Normalize(n)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		aliases = append(aliases, a)
	}
	return aliases
}

// variants returns the city-only form and common abbreviations of a name.
func variants(official string) []string {
	var out []string
	words := strings.Fields(official)
	if len(words) > 1 {
		out = append(out, strings.Join(words[:len(words)-1], " "))
	}
	for _, a := range abbreviations {
		if strings.Contains(official, a.full) {
			out = append(out, strings.Replace(official, a.full, a.abbr, 1))
		}
	}
	return out
}
