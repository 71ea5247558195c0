// Package shell is a local preview server that renders a placeholder for
// every page of the storefront route table. Page requests pass through the
// navigation guard, so it shows exactly where a browser would be sent.
package shell

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/storefront/internal/auth"
	"github.com/me/storefront/internal/guard"
	"github.com/me/storefront/internal/notify"
	"github.com/me/storefront/pkg/model"
)

// Shell serves the route table behind the guard.
type Shell struct {
	router    chi.Router
	auth      *auth.Service
	guard     *guard.Guard
	table     *guard.Table
	flash     *notify.Recorder
	logger    *slog.Logger
	homePath  string
	loginPath string
}

// Config holds shell configuration.
type Config struct {
	LoginPath string
	HomePath  string
}

// New creates a Shell. Messages recorded in flash are shown on the next
// rendered page; the caller wires the same recorder into the auth service.
func New(svc *auth.Service, g *guard.Guard, table *guard.Table, flash *notify.Recorder, logger *slog.Logger, cfg Config) *Shell {
	if cfg.LoginPath == "" {
		cfg.LoginPath = guard.DefaultLoginPath
	}
	if cfg.HomePath == "" {
		cfg.HomePath = guard.DefaultHomePath
	}
	if flash == nil {
		flash = &notify.Recorder{}
	}
	s := &Shell{
		router:    chi.NewRouter(),
		auth:      svc,
		guard:     g,
		table:     table,
		flash:     flash,
		logger:    logger.With("component", "shell"),
		homePath:  cfg.HomePath,
		loginPath: cfg.LoginPath,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Shell) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(guard.Middleware(s.guard, s.table))

	r.Post(s.loginPath, s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/logout", s.handleLogout)
	r.Get("/*", s.handlePage)
}

// pageView is what a rendered page shows.
type pageView struct {
	Title     string                  `json:"title"`
	Path      string                  `json:"path"`
	Route     string                  `json:"route,omitempty"`
	Pattern   string                  `json:"pattern,omitempty"`
	Params    map[string]string       `json:"params,omitempty"`
	Matched   []model.RouteDescriptor `json:"matched"`
	Profile   *model.Profile          `json:"profile,omitempty"`
	Scope     model.Scope             `json:"scope,omitempty"`
	ExpiresAt time.Time               `json:"expiresAt,omitzero"`
	Messages  []notify.Message        `json:"messages,omitempty"`
	LoginForm bool                    `json:"-"`
	Redirect  string                  `json:"-"`
	LoginPath string                  `json:"-"`
}

func (s *Shell) handlePage(w http.ResponseWriter, r *http.Request) {
	target, ok := guard.TargetFromContext(r.Context())
	if !ok {
		target = s.table.Resolve(r.URL.Path)
	}

	// Resolved redirects in the table are surfaced to the client.
	if target.Found() && target.Path != cleanRequestPath(r.URL.Path) {
		http.Redirect(w, r, target.Path, http.StatusFound)
		return
	}

	view := pageView{
		Title:     "Not found",
		Path:      target.Path,
		Route:     target.Name,
		Pattern:   target.Pattern,
		Params:    target.Params,
		Matched:   target.Matched,
		LoginPath: s.loginPath,
	}
	switch {
	case target.Name != "":
		view.Title = target.Name
	case target.Found():
		view.Title = target.Path
	}
	if sess, err := s.auth.Session(r.Context()); err == nil && sess != nil {
		view.Profile = sess.Profile
		view.Scope = sess.Scope
		view.ExpiresAt = sess.ExpiresAt
	}
	if target.PublicOnly() && view.Profile == nil {
		view.LoginForm = true
		view.Redirect = localPath(r.URL.Query().Get("redirect"))
	}
	view.Messages = s.flash.Drain()

	status := http.StatusOK
	if !target.Found() {
		status = http.StatusNotFound
	}
	s.render(w, r, status, view)
}

func (s *Shell) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		notify.Warning(r.Context(), s.flash, "Invalid request")
		http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
		return
	}
	creds := auth.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Remember: isChecked(r.PostFormValue("remember")),
	}
	profile, err := s.auth.Login(r.Context(), creds)
	if err != nil {
		// The auth service has already reported the reason.
		s.logger.Info("shell login failed", "error", err)
		http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
		return
	}

	dest := localPath(r.PostFormValue("redirect"))
	if dest == "" {
		dest = s.homePath
	}
	s.logger.Info("shell login", "username", profile.Username, "redirect", dest)
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (s *Shell) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = s.auth.Logout(r.Context())
	http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
}

func (s *Shell) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(view)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, view); err != nil {
		s.logger.Error("render page", "path", view.Path, "error", err)
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// localPath returns p when it is a path on this site, otherwise "".
func localPath(p string) string {
	// Browsers treat a backslash like a slash, so "/\host" is off-site.
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return p
}

func cleanRequestPath(p string) string {
	return path.Clean("/" + p)
}
