package page

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Form is the page's form. Controls changed through it fire change handlers,
// mirroring the browser's change event.
type Form struct {
	Sel      *goquery.Selection
	selects  []*Select
	handlers []func(*Select)
}

// Form returns the first form of the page, or nil when there is none.
func (p *Page) Form() *Form {
	p.formOnce.Do(func() {
		sel := p.Doc.Find("form").First()
		if sel.Length() == 0 {
			return
		}
		f := &Form{Sel: sel}
		sel.Find("select").Each(func(_ int, s *goquery.Selection) {
			f.selects = append(f.selects, &Select{Sel: s, form: f})
		})
		p.form = f
	})
	return p.form
}

// Action is the form's action resolved against base.
func (f *Form) Action(base *url.URL) string {
	action, _ := f.Sel.Attr("action")
	if base == nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return base.Path
	}
	resolved := base.ResolveReference(ref)
	return resolved.RequestURI()
}

// Selects returns every select control in document order.
func (f *Form) Selects() []*Select { return f.selects }

// GameSelects returns the selects that are not the lock selector.
func (f *Form) GameSelects() []*Select {
	var out []*Select
	for _, s := range f.selects {
		if !s.IsLock() {
			out = append(out, s)
		}
	}
	return out
}

// LockSelect returns the first lock selector, or nil.
func (f *Form) LockSelect() *Select {
	for _, s := range f.selects {
		if s.IsLock() {
			return s
		}
	}
	return nil
}

// Select returns the control named name, or nil.
func (f *Form) Select(name string) *Select {
	for _, s := range f.selects {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// OnChange registers fn to run after any select changes value.
func (f *Form) OnChange(fn func(*Select)) {
	f.handlers = append(f.handlers, fn)
}

func (f *Form) fire(s *Select) {
	for _, fn := range f.handlers {
		fn(s)
	}
}

// Apply sets controls from submitted values: game selects first, then the
// lock selector, then text inputs. It returns the number of controls changed.
func (f *Form) Apply(values url.Values) int {
	changed := 0
	ordered := f.GameSelects()
	if lock := f.LockSelect(); lock != nil {
		ordered = append(ordered, lock)
	}
	for _, s := range ordered {
		vs, ok := values[s.Name()]
		if !ok || len(vs) == 0 || vs[0] == s.Value() {
			continue
		}
		if s.SetValue(vs[0]) {
			changed++
		}
	}
	f.Sel.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		typ := strings.ToLower(in.AttrOr("type", "text"))
		if name == "" || (typ != "text" && typ != "number" && typ != "") {
			return
		}
		if vs, ok := values[name]; ok && len(vs) > 0 && in.AttrOr("value", "") != vs[0] {
			in.SetAttr("value", vs[0])
			changed++
		}
	})
	return changed
}

// Input returns the input named name.
func (f *Form) Input(name string) *goquery.Selection {
	return f.Sel.Find(`input[name="` + name + `"]`)
}

// Select is one select control.
type Select struct {
	Sel  *goquery.Selection
	form *Form
}

func (s *Select) Name() string { return s.Sel.AttrOr("name", "") }

func (s *Select) ID() string { return s.Sel.AttrOr("id", "") }

// Key identifies the control by name, falling back to id.
func (s *Select) Key() string {
	if n := s.Name(); n != "" {
		return n
	}
	return s.ID()
}

func (s *Select) IsLock() bool { return IsLockControl(s.Name(), s.ID()) }

// GameNumber is the game identifier embedded in the control's name or id.
func (s *Select) GameNumber() (string, bool) { return GameNumber(s.Name(), s.ID()) }

func (s *Select) Options() []*Option {
	var out []*Option
	s.Sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		out = append(out, &Option{Sel: o})
	})
	return out
}

// Selected returns the selected option. With no explicit selection the first
// enabled option is selected, as in a browser.
func (s *Select) Selected() *Option {
	opts := s.Options()
	for _, o := range opts {
		if _, ok := o.Sel.Attr("selected"); ok {
			return o
		}
	}
	if s.Sel.AttrOr("data-psm-cleared", "") != "" {
		return nil
	}
	for _, o := range opts {
		if !o.Disabled() {
			return o
		}
	}
	return nil
}

// Value is the selected option's value, or "".
func (s *Select) Value() string {
	if o := s.Selected(); o != nil {
		return o.Value()
	}
	return ""
}

// SetValue selects the option whose value is v and fires change handlers.
// With no such option the control is left without a selection. It reports
// whether the value changed.
func (s *Select) SetValue(v string) bool {
	if s.Value() == v {
		return false
	}
	found := false
	for _, o := range s.Options() {
		if !found && o.Value() == v {
			o.Sel.SetAttr("selected", "selected")
			found = true
			continue
		}
		o.Sel.RemoveAttr("selected")
	}
	if found {
		s.Sel.RemoveAttr("data-psm-cleared")
	} else {
		s.Sel.SetAttr("data-psm-cleared", "true")
	}
	if s.form != nil {
		s.form.fire(s)
	}
	return true
}

// Option is one option of a select.
type Option struct {
	Sel *goquery.Selection
}

// Value is the value attribute, or the text when the attribute is absent.
func (o *Option) Value() string {
	if v, ok := o.Sel.Attr("value"); ok {
		return v
	}
	return o.Text()
}

func (o *Option) Text() string { return strings.TrimSpace(o.Sel.Text()) }

func (o *Option) SetText(text string) { o.Sel.SetText(text) }

func (o *Option) Disabled() bool {
	_, ok := o.Sel.Attr("disabled")
	return ok
}

// SetDisabled toggles the disabled attribute and the disabled-option class.
func (o *Option) SetDisabled(disabled bool) {
	if disabled {
		o.Sel.SetAttr("disabled", "disabled")
		o.Sel.AddClass("disabled-option")
		return
	}
	o.Sel.RemoveAttr("disabled")
	o.Sel.RemoveClass("disabled-option")
}
