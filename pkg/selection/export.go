package selection

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" and "csv", case-insensitively.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, true
	case FormatCSV:
		return FormatCSV, true
	}
	return "", false
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Filename is the download name for an export made at now.
func Filename(now time.Time, f Format) string {
	return "pigskin_picks_history_" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Export writes h in format f.
func Export(w io.Writer, h History, f Format) error {
	if f == FormatCSV {
		return WriteCSV(w, h)
	}
	return WriteJSON(w, h)
}

// WriteJSON writes h as indented JSON.
func WriteJSON(w io.Writer, h History) error {
	if h == nil {
		h = History{}
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var csvHeader = []string{"Week", "Timestamp", "Game", "Team", "Locked", "Spread", "Result", "Source", "Version"}

// WriteCSV writes one row per selection of every submission, every field
// quoted. Weeks come in ascending order, submissions in the order they were
// made and games by game number.
func WriteCSV(w io.Writer, h History) error {
	bw := bufio.NewWriter(w)
	writeRow(bw, csvHeader)
	for _, week := range h.sortedWeeks(false) {
		for _, set := range h[week] {
			stamp := set.Time().UTC().Format("2006-01-02T15:04:05.000Z")
			for _, game := range set.Keys() {
				sel := set.Selections[game]
				writeRow(bw, []string{
					week,
					stamp,
					game,
					sel.Team,
					yesNo(sel.IsLocked),
					sel.Spread,
					result(sel.Won),
					or(set.Source, Source),
					or(set.Version, Version),
				})
			}
		}
	}
	return bw.Flush()
}

// writeRow quotes every field, doubling embedded quotes. encoding/csv only
// quotes fields that need it.
func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func result(won *bool) string {
	switch {
	case won == nil:
		return "Unknown"
	case *won:
		return "Won"
	}
	return "Lost"
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
