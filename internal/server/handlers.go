package server

import (
	"encoding/json"
	"net/http"

	"github.com/kardiff/pses/pkg/modules/standings"
	"github.com/kardiff/pses/pkg/modules/userid"
	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
	"github.com/kardiff/pses/pkg/selection"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := selection.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		http.Error(w, "unknown export format", http.StatusBadRequest)
		return
	}
	h := selection.Load(r.Context(), s.App.Store)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+selection.Filename(s.App.Now(), format)+`"`)
	if err := selection.Export(w, h, format); err != nil {
		s.logf("Export failed: %v", err)
	}
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	back := r.PostForm.Get(page.ReturnParam)
	if !selection.Clear(r.Context(), s.App.Store) {
		redirectBack(w, r, back, "Could not clear picks history", notify.Error)
		return
	}
	redirectBack(w, r, back, "Picks history cleared", notify.Success)
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	player := q.Get(standings.PlayerParam)
	added, err := standings.Toggle(r.Context(), s.App.Store, player)
	if err != nil {
		s.logf("Bookmark toggle failed: %v", err)
		redirectBack(w, r, q.Get(page.ReturnParam), "Could not update bookmarks", notify.Error)
		return
	}
	msg, kind := standings.ToggleMessage(player, added)
	redirectBack(w, r, q.Get(page.ReturnParam), msg, kind)
}

func (s *Server) handleUserID(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	back := r.PostForm.Get(page.ReturnParam)
	msg, err := userid.ApplySettings(r.Context(), s.App.Store, r.PostForm)
	if err != nil {
		s.logf("User ID settings failed: %v", err)
		redirectBack(w, r, back, "Could not save user ID settings", notify.Error)
		return
	}
	redirectBack(w, r, back, msg, notify.Success)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.App.Resolver.Diagnostics(r.Context()))
}

// redirectBack sends the browser to the local page back with a flash.
func redirectBack(w http.ResponseWriter, r *http.Request, back, message string, kind notify.Kind) {
	http.Redirect(w, r, page.WithFlash(back, message, kind), http.StatusSeeOther)
}
