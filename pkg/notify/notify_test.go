package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head><title>x</title></head><body><p>hi</p></body></html>`))
	require.NoError(t, err)
	return doc
}

func TestInitializeAddsStylesAndBadge(t *testing.T) {
	doc := newDoc(t)
	s := New("PigSkin Suite v1.0.0", nil)
	s.Bind(doc)

	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.Initialize(context.Background()))

	assert.Equal(t, 1, doc.Find("head style#psm-styles-global").Length())
	assert.Equal(t, 1, doc.Find("body div.psm-status-badge").Length())
	assert.Equal(t, "PigSkin Suite v1.0.0", doc.Find("div.psm-status-badge").Text())
}

func TestInitializeUnbound(t *testing.T) {
	if err := New("", nil).Initialize(context.Background()); err == nil {
		t.Fatalf("expected error for unbound surface")
	}
}

func TestShowNotificationEscapesAndRecords(t *testing.T) {
	doc := newDoc(t)
	s := New("", nil)
	s.Bind(doc)

	s.ShowNotification("<b>Saved</b>", Success, 0)

	n := doc.Find("div.psm-notification.success")
	require.Equal(t, 1, n.Length())
	assert.Equal(t, "<b>Saved</b>", n.Text())
	assert.Equal(t, 0, n.Find("b").Length())
	dur, _ := n.Attr("data-psm-duration")
	assert.Equal(t, "3000", dur)

	notes := s.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, DefaultDuration, notes[0].Duration)
}

func TestNotificationsBeforeBindAreRenderedLater(t *testing.T) {
	s := New("", nil)
	s.ShowNotification("early", Warning, 0)

	select {
	case <-s.Ready():
		t.Fatalf("surface should not be ready before Bind")
	default:
	}

	doc := newDoc(t)
	s.Bind(doc)
	<-s.Ready()
	assert.Equal(t, "early", doc.Find("div.psm-notification.warning").Text())
}

func TestCreatePanelAndModal(t *testing.T) {
	doc := newDoc(t)
	s := New("", nil)
	s.Bind(doc)

	p := s.CreatePanel(Position{Left: "20px", Bottom: "20px", Width: "250px"}, "Lock Status")
	p.Content.AppendHtml(`<div class="empty-state">No lock selected</div>`)
	style, _ := p.Root.Attr("style")
	assert.Contains(t, style, "top: auto")
	assert.Contains(t, style, "width: 250px")
	assert.Equal(t, "Lock Status", p.Root.Find(".psm-panel-header strong").Text())
	assert.Equal(t, 1, doc.Find(".psm-panel .empty-state").Length())

	m := s.CreateModal(`<h3>Games Already Started</h3>`)
	assert.Equal(t, 1, doc.Find(".psm-modal h3").Length())
	m.Close()
	assert.Equal(t, 0, doc.Find(".psm-modal").Length())
}
