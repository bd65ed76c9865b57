// Package userid remembers the pool user ID, fills it into the picks form and
// offers to save a new ID typed at submission.
package userid

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/storage"
)

const Name = "userid"

// SettingsPath receives the panel's forms.
const SettingsPath = page.EndpointPrefix + "userid"

// MaxRecent bounds the recent ID list.
const MaxRecent = 5

// Field is the picks form input holding the user ID.
const Field = "id"

// Panel form fields.
const (
	OpField       = "op"
	AutoFillField = "autofill"
)

const (
	opSave     = "save"
	opAutoFill = "autofill"
)

// Answers of the save reminder.
const (
	confirmSave = "save"
	confirmSkip = "skip"
)

var ErrEmptyID = errors.New("userid: empty id")

// Saved returns the saved ID, or "".
func Saved(ctx context.Context, store *storage.Adapter) string {
	return storage.Get(ctx, store, storage.KeyUserID, "")
}

// Recent returns the recently saved IDs, most recent first.
func Recent(ctx context.Context, store *storage.Adapter) []string {
	return storage.Get(ctx, store, storage.KeyRecentUserIDs, []string{})
}

// AutoFill reports whether the saved ID is filled into the picks form.
func AutoFill(ctx context.Context, store *storage.Adapter) bool {
	return storage.Get(ctx, store, storage.KeyAutoFillUserID, true)
}

func SetAutoFill(ctx context.Context, store *storage.Adapter, on bool) bool {
	return storage.Set(ctx, store, storage.KeyAutoFillUserID, on)
}

// Save makes id the saved ID and moves it to the front of the recent list.
func Save(ctx context.Context, store *storage.Adapter, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if !storage.Set(ctx, store, storage.KeyUserID, id) {
		return fmt.Errorf("userid: saving %q failed", id)
	}
	ok := storage.Update(ctx, store, storage.KeyRecentUserIDs, []string{}, func(ids []string) []string {
		return PushRecent(ids, id)
	})
	if !ok {
		return fmt.Errorf("userid: updating recent ids failed")
	}
	return nil
}

// PushRecent puts id first, drops its older occurrences and keeps at most
// MaxRecent entries.
func PushRecent(ids []string, id string) []string {
	out := []string{id}
	for _, v := range ids {
		if v != id && len(out) < MaxRecent {
			out = append(out, v)
		}
	}
	return out
}

// ApplySettings handles a post of the panel's forms and returns the message
// to show on the page it came from.
func ApplySettings(ctx context.Context, store *storage.Adapter, form url.Values) (string, error) {
	switch form.Get(OpField) {
	case opAutoFill:
		on, err := strconv.ParseBool(form.Get(AutoFillField))
		if err != nil {
			return "", fmt.Errorf("userid: bad autofill value %q: %w", form.Get(AutoFillField), err)
		}
		if !SetAutoFill(ctx, store, on) {
			return "", fmt.Errorf("userid: saving autofill failed")
		}
		if on {
			return "Auto-fill enabled", nil
		}
		return "Auto-fill disabled", nil
	default:
		id := strings.TrimSpace(form.Get(Field))
		if err := Save(ctx, store, id); err != nil {
			return "", err
		}
		return "ID Saved: " + id, nil
	}
}

type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Initialize(ctx context.Context, p *page.Page) error {
	p.Surface.AddStyles(Name, styles)
	saved := Saved(ctx, p.Store)
	autofill := AutoFill(ctx, p.Store)

	panel := p.Surface.CreatePanel(notify.Position{Top: "20px", Left: "20px"}, "User ID Manager")
	panel.Root.AddClass("userid-panel")
	panel.Content.SetHtml(renderPanel(saved, autofill, Recent(ctx, p.Store), p.URL))

	if !autofill || saved == "" {
		return nil
	}
	if f := p.Form(); f != nil {
		if in := f.Input(Field); in.Length() > 0 {
			in.SetAttr("value", saved)
			p.Log.Debugf("Filled user id into the form")
		}
	}
	return nil
}

// CheckSubmit asks whether to save an ID that differs from the saved one.
func (m *Module) CheckSubmit(ctx context.Context, p *page.Page, sub *page.Submission) (*page.Hold, error) {
	id := strings.TrimSpace(sub.Values.Get(Field))
	if id == "" || id == Saved(ctx, p.Store) {
		return nil, nil
	}
	return &page.Hold{
		Title:   "Save New ID?",
		Message: fmt.Sprintf(`<p>Would you like to save "%s" as your default ID?</p>`, notify.Escape(id)),
		Actions: []page.HoldAction{
			{Label: "Save & Submit", Value: confirmSave},
			{Label: "Just Submit", Value: confirmSkip},
		},
	}, nil
}

// CommitSubmit saves the submitted ID when the reminder was answered with
// save.
func (m *Module) CommitSubmit(ctx context.Context, p *page.Page, sub *page.Submission) error {
	if sub.Confirmation(Name) != confirmSave {
		return nil
	}
	return Save(ctx, p.Store, sub.Values.Get(Field))
}

func renderPanel(saved string, autofill bool, recent []string, current *url.URL) string {
	back := ""
	if current != nil {
		back = current.RequestURI()
	}
	ret := fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`, page.ReturnParam, notify.Escape(back))

	var b strings.Builder
	fmt.Fprintf(&b, `<form method="post" action="%s" class="userid-input-group">%s`, SettingsPath, ret)
	fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, OpField, opSave)
	fmt.Fprintf(&b, `<input type="text" class="psm-input userid-input" name="%s" placeholder="Enter your User ID" value="%s">`, Field, notify.Escape(saved))
	b.WriteString(`<button type="submit" class="psm-button save-btn">Save</button></form>`)

	if saved != "" {
		fmt.Fprintf(&b, `<div class="userid-status success">ID Saved: %s</div>`, notify.Escape(saved))
	} else {
		b.WriteString(`<div class="userid-status warning">No ID saved</div>`)
	}

	label := "Turn on auto-fill"
	if autofill {
		label = "Turn off auto-fill"
	}
	fmt.Fprintf(&b, `<form method="post" action="%s" class="userid-switch-container">%s`, SettingsPath, ret)
	fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, OpField, opAutoFill)
	fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%t">`, AutoFillField, !autofill)
	fmt.Fprintf(&b, `<span class="userid-remember">Auto-fill ID on page load: %s</span> `, onOff(autofill))
	fmt.Fprintf(&b, `<button type="submit" class="psm-button">%s</button></form>`, label)

	if len(recent) > 0 {
		b.WriteString(`<div class="userid-history"><strong>Recent IDs:</strong>`)
		for _, id := range recent {
			fmt.Fprintf(&b, `<form method="post" action="%s" class="userid-history-item">%s`, SettingsPath, ret)
			fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, OpField, opSave)
			fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, Field, notify.Escape(id))
			fmt.Fprintf(&b, `<span>%s</span><button type="submit" class="psm-button">Use</button></form>`, notify.Escape(id))
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

const styles = `
.userid-panel { z-index: 1002; }
.userid-input-group { display: flex; gap: 5px; margin-bottom: 10px; }
.userid-history { margin-top: 10px; font-size: 0.9em; }
.userid-history-item { display: flex; justify-content: space-between; align-items: center; padding: 5px; margin: 2px 0; background: #f8f9fa; border-radius: 4px; }
.userid-status { margin-top: 5px; padding: 5px; border-radius: 4px; font-size: 0.9em; }
.userid-status.success { background: #d4edda; color: #155724; }
.userid-status.warning { background: #fff3cd; color: #856404; }
.userid-switch-container { display: flex; align-items: center; justify-content: space-between; gap: 5px; margin-top: 10px; }
.userid-remember { font-size: 0.9em; }
`
