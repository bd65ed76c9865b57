package whttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendHTTPRequestRetriesGet(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><head><title>\n Spreads \n</title></head><body></body></html>")
	}))
	defer srv.Close()

	client, err := NewClient("", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if res.HTTPTitle != "Spreads" {
		t.Fatalf("unexpected title %q", res.HTTPTitle)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected one retry, got %d hits", hits)
	}
}

func TestSendHTTPRequestPostIsNotReplayed(t *testing.T) {
	var hits int32
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := NewClient("", 0)
	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Body:    "game1=A&lock=1",
		Headers: []WHTTPHeader{{Name: "Content-Type", Value: "application/x-www-form-urlencoded"}},
	}, client)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusBadGateway || hits != 1 {
		t.Fatalf("expected a single 502, got %d after %d hits", res.StatusCode, hits)
	}
	if gotBody != "game1=A&lock=1" || gotType != "application/x-www-form-urlencoded" {
		t.Fatalf("body or content type not forwarded: %q %q", gotBody, gotType)
	}
}

func TestSendHTTPRequestDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/forms/done.html", http.StatusFound)
	}))
	defer srv.Close()

	client, _ := NewClient("", 0)
	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusFound || res.Headers.Get("Location") != "/forms/done.html" {
		t.Fatalf("expected redirect to be returned, got %d %q", res.StatusCode, res.Headers.Get("Location"))
	}
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	if _, err := NewClient("://bad", 0); err == nil {
		t.Fatalf("expected error for malformed proxy")
	}
}
