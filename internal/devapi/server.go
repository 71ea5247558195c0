// Package devapi is a development backend that speaks the storefront
// response envelope. It issues HS256 tokens and serves a small catalog.
package devapi

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/storefront/internal/config"
	"github.com/me/storefront/pkg/model"
)

const (
	// Version is reported by the health endpoint.
	Version = "0.1.0"
	// Issuer is the "iss" claim of issued tokens.
	Issuer = "storefront-devapi"
)

// Server is the development REST backend.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.DevAPIConfig
	startTime time.Time
	secret    []byte
	users     *Users
	catalog   *Catalog
	revoked   revocations
	now       func() time.Time
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithClock overrides the time source used for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithCatalog replaces the seeded sample catalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.DevAPIConfig, logger *slog.Logger, opts ...Option) (*Server, error) {
	users, err := ParseUsers(cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 2 * time.Hour
	}
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "devapi"),
		config:    cfg,
		startTime: time.Now(),
		users:     users,
		catalog:   NewCatalog(DefaultProducts()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Secret != "" {
		s.secret = []byte(cfg.Secret)
	} else {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		s.logger.Warn("DEVAPI_SECRET not set, tokens will not survive a restart")
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Users returns the configured accounts.
func (s *Server) Users() *Users {
	return s.users
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, model.CodeNotFound, "no such endpoint: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/user/me", s.handleMe)

			r.Get("/products", s.handleListProducts)
			r.Get("/products/{id}", s.handleGetProduct)

			r.Get("/cart", s.handleGetCart)
			r.Put("/cart/{id}", s.handlePutCartItem)
			r.Delete("/cart/{id}", s.handleDeleteCartItem)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/products", s.handleCreateProduct)
			})
		})
	})
}
