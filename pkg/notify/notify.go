// Package notify renders transient messages and fixed-position containers
// into one page document.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kardiff/pses/pkg/logging"
	"golang.org/x/net/html"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

const DefaultDuration = 3 * time.Second

// Notification is a message shown during one page load.
type Notification struct {
	Kind     Kind
	Message  string
	Duration time.Duration
}

// Position places a panel. Empty fields fall back to top 20px (auto when
// anchored to the bottom), width 300px and "auto" for the rest.
type Position struct {
	Top    string
	Right  string
	Bottom string
	Left   string
	Width  string
}

// Panel is a fixed-position container with a header and a content area.
type Panel struct {
	Root    *goquery.Selection
	Content *goquery.Selection
}

// Modal is an overlay appended to the body.
type Modal struct {
	Root *goquery.Selection
}

// Close removes the modal from the document.
func (m *Modal) Close() {
	if m != nil && m.Root != nil {
		m.Root.Remove()
	}
}

// Surface is the notification and panel surface for a single document.
// Notifications raised before a document is bound are kept and logged, and
// rendered once Bind is called.
type Surface struct {
	mu      sync.Mutex
	doc     *goquery.Document
	log     logging.Logger
	badge   string
	notes   []Notification
	styles  map[string]bool
	pending []Notification

	ready     chan struct{}
	readyOnce sync.Once
}

// New returns an unbound surface. badge, when non-empty, is the status badge
// text rendered by Initialize.
func New(badge string, log logging.Logger) *Surface {
	return &Surface{
		log:    logging.OrNop(log),
		badge:  badge,
		styles: map[string]bool{},
		ready:  make(chan struct{}),
	}
}

// Bind attaches the surface to doc and marks it ready. Only the first call
// has an effect.
func (s *Surface) Bind(doc *goquery.Document) {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.doc = doc
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, n := range pending {
			s.render(n)
		}
		close(s.ready)
	})
}

func (s *Surface) Name() string { return "surface" }

func (s *Surface) Ready() <-chan struct{} { return s.ready }

// Initialize adds the global styles, the dismiss script and the status badge.
func (s *Surface) Initialize(_ context.Context) error {
	if s.document() == nil {
		return fmt.Errorf("notify: surface not bound to a document")
	}
	s.AddStyles("global", globalStyles)
	s.AddScript("dismiss", dismissScript)
	if s.badge != "" {
		body := s.body()
		if body.Find("div.psm-status-badge").Length() == 0 {
			body.AppendHtml(`<div class="psm-status-badge">` + html.EscapeString(s.badge) + `</div>`)
		}
	}
	return nil
}

// ShowNotification renders a transient message. A zero duration means
// DefaultDuration.
func (s *Surface) ShowNotification(message string, kind Kind, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultDuration
	}
	n := Notification{Kind: kind, Message: message, Duration: duration}

	switch kind {
	case Error:
		s.log.Errorf("Notification: %s", message)
	case Warning:
		s.log.Warnf("Notification: %s", message)
	default:
		s.log.Infof("Notification: %s", message)
	}

	s.mu.Lock()
	s.notes = append(s.notes, n)
	if s.doc == nil {
		s.pending = append(s.pending, n)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.render(n)
}

func (s *Surface) render(n Notification) {
	s.body().AppendHtml(fmt.Sprintf(`<div class="psm-notification %s" data-psm-duration="%d">%s</div>`,
		html.EscapeString(string(n.Kind)), n.Duration.Milliseconds(), html.EscapeString(n.Message)))
}

// Notifications returns every notification raised so far.
func (s *Surface) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notes...)
}

// CreatePanel appends a panel to the body and returns it.
func (s *Surface) CreatePanel(pos Position, title string) *Panel {
	top := or(pos.Top, "20px")
	if pos.Top == "" && pos.Bottom != "" {
		top = "auto"
	}
	style := fmt.Sprintf("top: %s; right: %s; bottom: %s; left: %s; width: %s;",
		top, or(pos.Right, "auto"), or(pos.Bottom, "auto"), or(pos.Left, "auto"), or(pos.Width, "300px"))

	body := s.body()
	body.AppendHtml(`<div class="psm-panel" style="` + html.EscapeString(style) + `">` +
		`<div class="psm-panel-header"><strong>` + html.EscapeString(title) + `</strong></div>` +
		`<div class="psm-panel-content"></div></div>`)
	root := body.ChildrenFiltered("div.psm-panel").Last()
	return &Panel{Root: root, Content: root.Find("div.psm-panel-content")}
}

// CreateModal appends a modal holding content, which is trusted markup.
func (s *Surface) CreateModal(content string) *Modal {
	body := s.body()
	body.AppendHtml(`<div class="psm-modal"><div class="psm-modal-content">` + content + `</div></div>`)
	return &Modal{Root: body.ChildrenFiltered("div.psm-modal").Last()}
}

// AddStyles appends a style sheet to the head once per id.
func (s *Surface) AddStyles(id, css string) {
	s.mu.Lock()
	if s.styles[id] || s.doc == nil {
		s.mu.Unlock()
		return
	}
	s.styles[id] = true
	doc := s.doc
	s.mu.Unlock()

	head := doc.Find("head")
	if head.Length() == 0 {
		head = doc.Find("html")
	}
	head.AppendHtml(`<style id="psm-styles-` + html.EscapeString(id) + `">` + css + `</style>`)
}

// AddScript appends a script to the body once per id.
func (s *Surface) AddScript(id, js string) {
	body := s.body()
	if body.Find("script#psm-script-"+id).Length() > 0 {
		return
	}
	body.AppendHtml(`<script id="psm-script-` + id + `">` + js + `</script>`)
}

func (s *Surface) document() *goquery.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *Surface) body() *goquery.Selection {
	doc := s.document()
	if doc == nil {
		return &goquery.Selection{}
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Selection
	}
	return body
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Escape escapes text for inclusion in markup passed to CreateModal or
// AppendHtml.
func Escape(s string) string { return html.EscapeString(s) }
