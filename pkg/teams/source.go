package teams

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kardiff/pses/pkg/whttp"
)

const (
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"
	DefaultPage     = "List_of_current_National_Football_League_team_names"
)

// ErrFetch wraps every failure to obtain or parse external team data.
var ErrFetch = errors.New("teams: fetch failed")

// Source produces a fresh alias table.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// WikiSource reads the team names article through the MediaWiki parse API.
type WikiSource struct {
	Client   *whttp.Client
	Endpoint string
	Page     string
	Now      func() time.Time
}

func (w *WikiSource) Fetch(ctx context.Context) ([]Record, error) {
	endpoint, page := w.Endpoint, w.Page
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if page == "" {
		page = DefaultPage
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	params := url.Values{
		"action": {"parse"},
		"format": {"json"},
		"page":   {page},
		"prop":   {"text"},
	}
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		URL:    endpoint + "?" + params.Encode(),
		Method: http.MethodGet,
		Headers: []whttp.WHTTPHeader{
			{Name: "Accept", Value: "application/json"},
			{Name: "Api-User-Agent", Value: "Pigskin-Enhancement-Suite/" + Version},
		},
	}, w.Client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: wikipedia API returned status %d", ErrFetch, res.StatusCode)
	}
	if !gjson.Valid(res.BodyString) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrFetch)
	}
	if info := gjson.Get(res.BodyString, "error.info"); info.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrFetch, info.String())
	}
	text := gjson.Get(res.BodyString, `parse.text.\*`)
	if !text.Exists() {
		return nil, fmt.Errorf("%w: response has no parse text", ErrFetch)
	}

	records, err := ParseTables(text.String(), now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no team rows found", ErrFetch)
	}
	return records, nil
}
