package page

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/kardiff/pses/pkg/notify"
)

// Fields with this prefix belong to the suite and are never forwarded.
const FieldPrefix = "psm_"

const confirmPrefix = FieldPrefix + "confirm_"

// EndpointPrefix is the path under which the proxy serves its own actions
// instead of forwarding upstream.
const EndpointPrefix = "/psm/"

// ReturnParam names the page an endpoint redirects back to.
const ReturnParam = "return"

// Submission is an intercepted form post.
type Submission struct {
	Values url.Values
}

func NewSubmission(values url.Values) *Submission {
	if values == nil {
		values = url.Values{}
	}
	return &Submission{Values: values}
}

// Confirmation returns the answer a module's hold received, or "".
func (s *Submission) Confirmation(module string) string {
	return s.Values.Get(confirmPrefix + module)
}

// Forwarded returns the values to send upstream, without suite fields.
func (s *Submission) Forwarded() url.Values {
	out := url.Values{}
	for k, vs := range s.Values {
		if strings.HasPrefix(k, FieldPrefix) {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Hold interrupts a submission until the user answers it. Each action
// re-posts the form with the module's confirmation set to the action's
// value; an action with an empty value only closes the dialog.
type Hold struct {
	Module  string
	Title   string
	Message string // trusted markup
	Actions []HoldAction
}

type HoldAction struct {
	Label string
	Value string
}

// Show renders the hold as a modal on p. The modal carries every submitted
// value so answering it replays the original post.
func (h *Hold) Show(p *Page, sub *Submission) *notify.Modal {
	action := p.Path()
	if f := p.Form(); f != nil {
		action = f.Action(p.URL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<h3>%s</h3>%s`, notify.Escape(h.Title), h.Message)
	fmt.Fprintf(&b, `<form method="post" action="%s" class="psm-hold">`, notify.Escape(action))

	keys := make([]string, 0, len(sub.Values))
	for k := range sub.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range sub.Values[k] {
			fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, notify.Escape(k), notify.Escape(v))
		}
	}

	b.WriteString(`<div class="psm-modal-buttons">`)
	for _, a := range h.Actions {
		if a.Value == "" {
			fmt.Fprintf(&b, `<button type="button" class="psm-button" data-psm-close="true">%s</button>`, notify.Escape(a.Label))
			continue
		}
		fmt.Fprintf(&b, `<button type="submit" class="psm-button" name="%s" value="%s">%s</button>`,
			notify.Escape(confirmPrefix+h.Module), notify.Escape(a.Value), notify.Escape(a.Label))
	}
	b.WriteString(`</div></form>`)

	return p.Surface.CreateModal(b.String())
}
