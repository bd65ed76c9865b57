// Package page models one load of a host page: its location, its parsed
// document and the collaborators modules reach through it.
package page

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/kardiff/pses/pkg/logging"
	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/storage"
	"golang.org/x/net/html"
)

// Page is a single page load. Modules run sequentially against it, so none
// of its methods are safe for concurrent use.
type Page struct {
	ID       string
	URL      *url.URL
	Doc      *goquery.Document
	Surface  *notify.Surface
	Store    *storage.Adapter
	Location *time.Location
	Now      func() time.Time
	Log      logging.Logger

	formOnce sync.Once
	form     *Form
}

// New wraps doc loaded from u. Surface and Store are left for the caller.
func New(u *url.URL, doc *goquery.Document) *Page {
	return &Page{
		ID:       uuid.NewString(),
		URL:      u,
		Doc:      doc,
		Location: time.Local,
		Now:      time.Now,
		Log:      logging.Nop(),
	}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

func (p *Page) Path() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.Path
}

func (p *Page) Query() url.Values {
	if p.URL == nil {
		return url.Values{}
	}
	return p.URL.Query()
}

// Today returns the current time in the site location.
func (p *Page) Today() time.Time {
	return p.Now().In(p.Location)
}

// Render writes the whole document, doctype included.
func (p *Page) Render(w io.Writer) error {
	return html.Render(w, p.Doc.Get(0))
}

// HTML renders the document to a string.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var weekRe = regexp.MustCompile(`(?i)Week (\d+)`)

// Week returns the week number mentioned in the page body, or "unknown".
func (p *Page) Week() string {
	if m := weekRe.FindStringSubmatch(p.Doc.Find("body").Text()); m != nil {
		return m[1]
	}
	return "unknown"
}
