package page

import (
	"net/url"
	"strings"

	"github.com/kardiff/pses/pkg/notify"
)

// A flash is a notification carried in the query of a redirect back from an
// endpoint, shown on the next load of the page.
const (
	FlashParam     = FieldPrefix + "flash"
	FlashKindParam = FieldPrefix + "flash_kind"
)

// WithFlash returns back with the flash parameters set. back must be a local
// request URI; anything else yields "/".
func WithFlash(back, message string, kind notify.Kind) string {
	u, err := url.Parse(back)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(FlashParam, message)
	q.Set(FlashKindParam, string(kind))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// ShowFlash shows the flash carried by the page URL, if any.
func (p *Page) ShowFlash() bool {
	q := p.Query()
	msg := q.Get(FlashParam)
	if msg == "" || p.Surface == nil {
		return false
	}
	kind := notify.Kind(q.Get(FlashKindParam))
	switch kind {
	case notify.Success, notify.Error, notify.Warning, notify.Info:
	default:
		kind = notify.Info
	}
	p.Surface.ShowNotification(msg, kind, 0)
	return true
}
