// Package server is the enhancing proxy: it forwards requests to the pool
// site, runs the modules on every HTML page it relays and serves the suite's
// own endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/kardiff/pses/internal/app"
	"github.com/kardiff/pses/internal/utils"
	"github.com/kardiff/pses/pkg/modules/history"
	"github.com/kardiff/pses/pkg/modules/standings"
	"github.com/kardiff/pses/pkg/modules/userid"
	"github.com/kardiff/pses/pkg/page"
)

type Server struct {
	App      *app.App
	Username string
	Password string
}

func New(a *app.App) *Server {
	return &Server{
		App:      a,
		Username: a.Config.Username,
		Password: a.Config.Password,
	}
}

// Handler routes the suite endpoints and proxies everything else.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+history.ExportPath, s.basicAuth(s.handleExport))
	mux.HandleFunc("POST "+history.ClearPath, s.basicAuth(s.handleClearHistory))
	mux.HandleFunc("GET "+standings.TogglePath, s.basicAuth(s.handleToggleBookmark))
	mux.HandleFunc("POST "+userid.SettingsPath, s.basicAuth(s.handleUserID))
	mux.HandleFunc("GET "+page.EndpointPrefix+"teams", s.basicAuth(s.handleTeams))

	mux.HandleFunc("/", s.basicAuth(s.handleProxy))
	return mux
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Log.Infof("Starting proxy for %s on %s", s.App.Upstream, addr)
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
