package server

import (
	"net"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/kardiff/pses/pkg/page"
)

var linkAttrs = []struct{ selector, attr string }{
	{"a[href]", "href"},
	{"form[action]", "action"},
	{"frame[src]", "src"},
	{"iframe[src]", "src"},
}

// rewriteLinks points absolute links to the upstream site, or any host of
// the same registrable domain, back at the proxy. It returns the number of
// links changed.
func (s *Server) rewriteLinks(p *page.Page) int {
	n := 0
	for _, la := range linkAttrs {
		p.Doc.Find(la.selector).Each(func(_ int, sel *goquery.Selection) {
			v, _ := sel.Attr(la.attr)
			if local := s.localize(v); local != v {
				sel.SetAttr(la.attr, local)
				n++
			}
		})
	}
	return n
}

// localize turns an absolute URL on the upstream site into a local request
// URI. Other URLs are returned unchanged.
func (s *Server) localize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return raw
	}
	if s.App.Upstream == nil || !SameSite(u.Hostname(), s.App.Upstream.Hostname()) {
		return raw
	}
	local := u.RequestURI()
	if u.Fragment != "" {
		local += "#" + u.EscapedFragment()
	}
	return local
}

// SameSite reports whether two hosts share a registrable domain. Hosts
// without one, such as IP addresses and single-label names, must be equal.
func SameSite(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return true
	}
	if net.ParseIP(a) != nil || net.ParseIP(b) != nil {
		return false
	}
	da, err := publicsuffix.Domain(a)
	if err != nil {
		return false
	}
	db, err := publicsuffix.Domain(b)
	if err != nil {
		return false
	}
	return da == db
}
