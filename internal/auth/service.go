// Package auth logs the user in and out against the storefront API and
// answers whether a session is currently held.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/me/storefront/internal/apiclient"
	"github.com/me/storefront/internal/notify"
	"github.com/me/storefront/internal/tokenstore"
	"github.com/me/storefront/pkg/model"
)

// API endpoints, relative to the client's base URL.
const (
	LoginPath  = "/auth/login"
	LogoutPath = "/auth/logout"
)

// DefaultTTL is the session lifetime used when the server reports no expiry
// and the token carries no exp claim.
const DefaultTTL = 30 * 24 * time.Hour

// loginPayload is the data of a successful login envelope.
type loginPayload struct {
	Token    string           `json:"token"`
	Expire   model.Timestamp  `json:"expire"`
	Username string           `json:"username"`
	ID       model.FlexString `json:"id"`
	UserID   model.FlexString `json:"userId"`
	Role     model.UserRole   `json:"role"`
}

// Service implements login, logout and the authenticated check.
type Service struct {
	client     *apiclient.Client
	tokens     *tokenstore.TokenStore
	notifier   notify.Notifier
	logger     *slog.Logger
	now        func() time.Time
	defaultTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where login/logout confirmations are shown.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultTTL overrides DefaultTTL. Non-positive values are ignored.
func WithDefaultTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// NewService creates an auth service.
func NewService(client *apiclient.Client, tokens *tokenstore.TokenStore, opts ...Option) *Service {
	s := &Service{
		client:     client,
		tokens:     tokens,
		notifier:   notify.Discard,
		logger:     slog.Default(),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "auth")
	return s
}

// Login exchanges credentials for a token and persists the session, durably
// when creds.Remember is set. The session is saved before Login returns.
// A failure before the save leaves the stored session untouched; a failed
// save leaves no session.
func (s *Service) Login(ctx context.Context, creds Credentials) (*model.Profile, error) {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		notify.Warning(ctx, s.notifier, err.Error())
		return nil, fmt.Errorf("login: %w", err)
	}

	data, err := s.client.PostForm(ctx, LoginPath, url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}, apiclient.WithoutCredentials())
	if err != nil {
		s.logger.Info("login failed", "username", creds.Username, "error", err)
		return nil, fmt.Errorf("login: %w", err)
	}

	payload, err := apiclient.Decode[loginPayload](data, nil)
	if err == nil && payload.Token == "" {
		err = errors.New("response carries no token")
	}
	if err != nil {
		s.logger.Error("unusable login response", "error", err)
		return nil, fmt.Errorf("login: %w", s.client.ReportError(ctx, &model.TransportError{URL: LoginPath, Cause: err}))
	}

	profile := &model.Profile{
		UserID:   string(payload.ID),
		Username: payload.Username,
		Role:     payload.Role,
	}
	if profile.UserID == "" {
		profile.UserID = string(payload.UserID)
	}
	if profile.Username == "" {
		profile.Username = creds.Username
	}

	expiresAt := s.expiry(payload)
	scope := model.ScopeFor(creds.Remember)
	if err := s.tokens.Save(ctx, payload.Token, expiresAt, scope, profile); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.logger.Info("user logged in", "username", profile.Username, "scope", scope, "expires_at", expiresAt)
	notify.Success(ctx, s.notifier, fmt.Sprintf("Login succeeded, welcome %s", profile.Username))
	return profile, nil
}

// expiry picks the server's expire, then the token's own exp claim, then the fallback TTL.
func (s *Service) expiry(p loginPayload) time.Time {
	if !p.Expire.IsZero() {
		return p.Expire.Time
	}
	if exp, ok := tokenExpiry(p.Token); ok {
		s.logger.Debug("login response has no expiry, using token exp claim", "expires_at", exp)
		return exp
	}
	fallback := s.now().Add(s.defaultTTL)
	s.logger.Warn("login response has no expiry, using fallback", "ttl", s.defaultTTL, "expires_at", fallback)
	return fallback
}

// tokenExpiry reads the exp claim of a JWT without verifying it. The client
// holds no key; the value only schedules local eviction.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Logout ends the remote session and clears the local one. The local session
// is cleared whatever the server answers, so Logout works offline; remote
// failures are reported by the client's handlers and not returned.
func (s *Service) Logout(ctx context.Context) error {
	if _, err := s.client.Get(ctx, LogoutPath, nil); err != nil {
		s.logger.Info("remote logout failed, clearing local session anyway", "error", err)
	}

	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.logger.Info("user logged out")
	notify.Success(ctx, s.notifier, "Logged out")
	return nil
}

// IsAuthenticated reports whether a valid session is stored.
// A storage read error counts as not authenticated.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	sess, err := s.tokens.Current(ctx)
	if err != nil {
		s.logger.Warn("session lookup failed", "error", err)
		return false
	}
	return sess != nil
}

// Session returns the stored session, nil when logged out.
func (s *Service) Session(ctx context.Context) (*model.Session, error) {
	return s.tokens.Current(ctx)
}

// Profile returns the cached user profile, nil when unknown.
func (s *Service) Profile(ctx context.Context) *model.Profile {
	return s.tokens.Profile(ctx)
}

// LoginAsync runs Login in the background.
func (s *Service) LoginAsync(ctx context.Context, creds Credentials) *apiclient.Future[*model.Profile] {
	return apiclient.Go(ctx, func(ctx context.Context) (*model.Profile, error) {
		return s.Login(ctx, creds)
	})
}

// LogoutAsync runs Logout in the background.
func (s *Service) LogoutAsync(ctx context.Context) *apiclient.Future[struct{}] {
	return apiclient.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Logout(ctx)
	})
}
