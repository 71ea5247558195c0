// Package tokenstore owns the persisted session: the bearer token with its
// expiry and the cached user profile, held in one of two storage scopes.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/storefront/internal/notify"
	"github.com/me/storefront/internal/store"
	"github.com/me/storefront/pkg/model"
)

// Storage keys. Each scope holds at most one value per key.
const (
	KeyAccessToken = "access_token"
	KeyUserProfile = "user_profile"
)

// ExpiredMessage is shown when a stored session is found expired.
const ExpiredMessage = "Your session has expired, please log in again"

// readOrder is the order scopes are consulted on read.
var readOrder = []model.Scope{model.ScopeDurable, model.ScopeEphemeral}

// tokenRecord is the stored form of access_token.
type tokenRecord struct {
	Token  string          `json:"token"`
	Expire model.Timestamp `json:"expire"`
}

// TokenStore reads and writes the session across the durable and ephemeral scopes.
// It holds no state of its own; every call goes to storage, so several
// TokenStores over the same backends observe each other's writes (last writer wins).
type TokenStore struct {
	durable   store.Store
	ephemeral store.Store
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a TokenStore.
type Option func(*TokenStore)

// WithNotifier sets where the expiry notice is shown.
func WithNotifier(n notify.Notifier) Option {
	return func(ts *TokenStore) { ts.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ts *TokenStore) { ts.logger = l }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(ts *TokenStore) { ts.now = now }
}

// New creates a TokenStore over the two scope backends.
func New(durable, ephemeral store.Store, opts ...Option) *TokenStore {
	ts := &TokenStore{
		durable:   durable,
		ephemeral: ephemeral,
		notifier:  notify.Discard,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	ts.logger = ts.logger.With("component", "tokenstore")
	return ts
}

func (ts *TokenStore) backend(scope model.Scope) (store.Store, error) {
	switch scope {
	case model.ScopeDurable:
		return ts.durable, nil
	case model.ScopeEphemeral:
		return ts.ephemeral, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

// Save replaces the session. Both scopes are cleared first so a session
// never lingers in the scope that was not chosen. A failed write leaves
// no session at all.
func (ts *TokenStore) Save(ctx context.Context, token string, expiresAt time.Time, scope model.Scope, profile *model.Profile) error {
	if token == "" {
		return errors.New("save session: empty token")
	}
	if expiresAt.IsZero() {
		return errors.New("save session: missing expiry")
	}
	st, err := ts.backend(scope)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	tokenJSON, err := json.Marshal(tokenRecord{Token: token, Expire: model.Timestamp{Time: expiresAt}})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	var profileJSON []byte
	if profile != nil {
		if profileJSON, err = json.Marshal(profile); err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
	}

	if err := ts.Clear(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	// The token key marks a session as present, so it is written last.
	if profileJSON != nil {
		if err := st.Set(ctx, KeyUserProfile, string(profileJSON)); err != nil {
			return ts.rollback(ctx, err)
		}
	}
	if err := st.Set(ctx, KeyAccessToken, string(tokenJSON)); err != nil {
		return ts.rollback(ctx, err)
	}

	ts.logger.Debug("session saved", "scope", scope, "expires_at", expiresAt)
	return nil
}

// rollback clears whatever a failed Save wrote so no partial session is left.
func (ts *TokenStore) rollback(ctx context.Context, cause error) error {
	if err := ts.Clear(ctx); err != nil {
		ts.logger.Error("rollback of partial session failed", "error", err)
		return fmt.Errorf("save session: %w", errors.Join(cause, err))
	}
	return fmt.Errorf("save session: %w", cause)
}

// Current returns the stored session, or nil when there is none.
// The durable scope is read before the ephemeral one. An expired or corrupt
// session is evicted from both scopes and reported as absent.
func (ts *TokenStore) Current(ctx context.Context) (*model.Session, error) {
	for _, scope := range readOrder {
		st, _ := ts.backend(scope)
		raw, ok, err := st.Get(ctx, KeyAccessToken)
		if err != nil {
			return nil, fmt.Errorf("read %s session: %w", scope, err)
		}
		if !ok {
			continue
		}

		var rec tokenRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Token == "" {
			ts.logger.Warn("discarding corrupt token record", "scope", scope, "error", err)
			return nil, ts.evict(ctx)
		}

		sess := &model.Session{Token: rec.Token, ExpiresAt: rec.Expire.Time, Scope: scope}
		if sess.IsExpiredAt(ts.now()) {
			expired := &model.ExpiredSession{Scope: scope, ExpiredAt: sess.ExpiresAt}
			ts.logger.Info("evicting expired session", "reason", expired.Error())
			if err := ts.evict(ctx); err != nil {
				return nil, err
			}
			notify.Warning(ctx, ts.notifier, ExpiredMessage)
			return nil, nil
		}

		sess.Profile = ts.decodeProfile(ctx, st)
		return sess, nil
	}
	return nil, nil
}

func (ts *TokenStore) evict(ctx context.Context) error {
	if err := ts.Clear(ctx); err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	return nil
}

// Clear removes the session from both scopes. Clearing an empty store succeeds.
func (ts *TokenStore) Clear(ctx context.Context) error {
	var errs []error
	for _, st := range []store.Store{ts.durable, ts.ephemeral} {
		for _, key := range []string{KeyAccessToken, KeyUserProfile} {
			if err := st.Remove(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Profile returns the cached user profile, or nil when it is missing or unreadable.
func (ts *TokenStore) Profile(ctx context.Context) *model.Profile {
	for _, scope := range readOrder {
		st, _ := ts.backend(scope)
		if p := ts.decodeProfile(ctx, st); p != nil {
			return p
		}
	}
	return nil
}

func (ts *TokenStore) decodeProfile(ctx context.Context, st store.Store) *model.Profile {
	raw, ok, err := st.Get(ctx, KeyUserProfile)
	if err != nil {
		ts.logger.Debug("profile unavailable", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		ts.logger.Debug("ignoring malformed profile", "error", err)
		return nil
	}
	return &p
}

// Token returns the bearer token of the current session for request signing.
// Read failures are logged and treated as no token.
func (ts *TokenStore) Token(ctx context.Context) (string, bool) {
	sess, err := ts.Current(ctx)
	if err != nil {
		ts.logger.Warn("token lookup failed", "error", err)
		return "", false
	}
	if sess == nil {
		return "", false
	}
	return sess.Token, true
}
