package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kardiff/pses/internal/utils"
	"github.com/kardiff/pses/pkg/bootstrap"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/whttp"
)

// request headers relayed upstream
var forwardHeaders = []string{"Cookie", "Accept", "Accept-Language"}

// response headers relayed to the browser; Set-Cookie and Location are
// rewritten separately
var relayHeaders = []string{"Content-Type", "Cache-Control", "Expires", "Last-Modified", "Pragma"}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.App.Upstream == nil {
		http.Error(w, "no upstream configured", http.StatusBadGateway)
		return
	}
	if strings.HasPrefix(r.URL.Path, page.EndpointPrefix) {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		res, err := s.fetch(r.Context(), r, http.MethodGet, stripSuiteParams(r.URL), "")
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		s.relay(w, r, r.URL, res)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSubmit runs the guards of the page the form was posted from. A held
// submission renders that page with the hold's dialog; otherwise the values,
// without suite fields, are forwarded and the recorders run once upstream
// accepted them.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub := page.NewSubmission(r.PostForm)
	ctx := r.Context()

	var (
		p   *page.Page
		run *bootstrap.Run
	)
	if from := s.referer(r); from != nil && s.App.Boot.Handles(from.Path) {
		res, err := s.fetch(ctx, r, http.MethodGet, stripSuiteParams(from), "")
		if err == nil && res.StatusCode == http.StatusOK && isHTML(res) {
			p, run, err = s.App.Enhance(ctx, from, strings.NewReader(res.BodyString))
		}
		if err != nil {
			s.logf("Could not prepare %s for submit checks: %v", from.Path, err)
		}
	}

	if p != nil {
		if f := p.Form(); f != nil {
			f.Apply(sub.Values)
		}
		if hold := run.Submit(ctx, sub); hold != nil {
			s.render(w, p, http.StatusOK)
			return
		}
	}

	res, err := s.fetch(ctx, r, http.MethodPost, stripSuiteParams(r.URL), sub.Forwarded().Encode())
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	if p != nil && res.StatusCode < http.StatusBadRequest {
		if err := run.Commit(ctx, sub); err != nil {
			p.Log.Errorf("Recording submission failed: %v", err)
		}
	}
	s.relay(w, r, r.URL, res)
}

// referer returns the local page the request came from.
func (s *Server) referer(r *http.Request) *url.URL {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return nil
	}
	return &url.URL{Path: u.Path, RawQuery: u.RawQuery}
}

func (s *Server) fetch(ctx context.Context, r *http.Request, method string, local *url.URL, body string) (*whttp.WHTTPRes, error) {
	target := s.App.Upstream.ResolveReference(&url.URL{Path: local.Path, RawQuery: local.RawQuery})
	req := &whttp.WHTTPReq{
		URL:    target.String(),
		Method: method,
		Body:   body,
	}
	for _, name := range forwardHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: name, Value: v})
		}
	}
	if method == http.MethodPost {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: "Content-Type", Value: "application/x-www-form-urlencoded"})
	}
	res, err := whttp.SendHTTPRequest(ctx, req, s.App.Client)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target.Path, err)
	}
	utils.Log.Debugf("%s %s -> %d %q", method, target.Path, res.StatusCode, res.HTTPTitle)
	return res, nil
}

// relay writes an upstream response for the page at local, enhancing HTML.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, local *url.URL, res *whttp.WHTTPRes) {
	for _, name := range relayHeaders {
		if v := res.Headers.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	relayCookies(w, res.Headers)
	if loc := res.Headers.Get("Location"); loc != "" {
		w.Header().Set("Location", s.localize(loc))
	}

	if res.StatusCode != http.StatusOK || !isHTML(res) || r.Method == http.MethodHead {
		w.WriteHeader(res.StatusCode)
		if r.Method != http.MethodHead {
			io.WriteString(w, res.BodyString)
		}
		return
	}

	p, _, err := s.App.Enhance(r.Context(), local, strings.NewReader(res.BodyString))
	if err != nil {
		s.logf("Serving %s unenhanced: %v", local.Path, err)
		w.WriteHeader(res.StatusCode)
		io.WriteString(w, res.BodyString)
		return
	}
	s.render(w, p, res.StatusCode)
}

func (s *Server) render(w http.ResponseWriter, p *page.Page, status int) {
	n := s.rewriteLinks(p)
	p.Log.Debugf("Localized %d links", n)

	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		p.Log.Errorf("Rendering failed: %v", err)
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Del("Last-Modified")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	s.logf("Upstream request failed: %v", err)
	http.Error(w, "upstream request failed", http.StatusBadGateway)
}

func (s *Server) logf(format string, args ...interface{}) {
	utils.Log.Warnf(format, args...)
}

// stripSuiteParams drops suite parameters from u's query.
func stripSuiteParams(u *url.URL) *url.URL {
	q := u.Query()
	for k := range q {
		if strings.HasPrefix(k, page.FieldPrefix) {
			q.Del(k)
		}
	}
	out := *u
	out.RawQuery = q.Encode()
	return &out
}

func isHTML(res *whttp.WHTTPRes) bool {
	return strings.Contains(res.Headers.Get("Content-Type"), "html")
}

// relayCookies passes upstream cookies on, scoped to the proxy's host.
func relayCookies(w http.ResponseWriter, h http.Header) {
	resp := http.Response{Header: h}
	for _, c := range resp.Cookies() {
		c.Domain = ""
		c.Secure = false
		http.SetCookie(w, c)
	}
}
