// Package guard decides, before every navigation, whether the target route
// may be entered given the current authentication state.
package guard

import (
	"context"
	"log/slog"
)

// Default redirect targets.
const (
	DefaultLoginPath = "/welcome"
	DefaultHomePath  = "/home"
)

// Action is the outcome of a navigation decision.
type Action int

const (
	// Allow lets the navigation proceed unchanged.
	Allow Action = iota
	// RedirectLogin sends a visitor without a session to the public entry route.
	RedirectLogin
	// RedirectHome sends a logged-in user away from a public-only route.
	RedirectHome
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Decision is the guard's answer for one navigation.
type Decision struct {
	Action   Action
	Location string // redirect target, empty for Allow
}

// Authenticator reports whether a session is held.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) bool

// IsAuthenticated implements Authenticator.
func (f AuthenticatorFunc) IsAuthenticated(ctx context.Context) bool {
	return f(ctx)
}

// Guard holds no navigation state; each decision depends only on the
// authentication state at call time and the target's route records.
type Guard struct {
	auth      Authenticator
	loginPath string
	homePath  string
	logger    *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath sets where unauthenticated visitors are sent.
func WithLoginPath(p string) Option {
	return func(g *Guard) { g.loginPath = p }
}

// WithHomePath sets where authenticated users are sent from public-only routes.
func WithHomePath(p string) Option {
	return func(g *Guard) { g.homePath = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a Guard.
func New(auth Authenticator, opts ...Option) *Guard {
	g := &Guard{
		auth:      auth,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "guard")
	return g
}

// Decide returns the decision for navigating from one target to another.
// A route requiring auth is checked before a public-only one, so a route
// carrying both flags sends a visitor without a session to the login page.
func (g *Guard) Decide(ctx context.Context, to, from Target) Decision {
	authenticated := g.auth.IsAuthenticated(ctx)

	var d Decision
	switch {
	case to.RequiresAuth() && !authenticated:
		d = Decision{Action: RedirectLogin, Location: g.loginPath}
	case to.PublicOnly() && authenticated:
		d = Decision{Action: RedirectHome, Location: g.homePath}
	default:
		d = Decision{Action: Allow}
	}
	g.logger.Debug("navigation", "from", from.Path, "to", to.Path, "route", to.Name, "decision", d.Action)
	return d
}
