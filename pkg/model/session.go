package model

import (
	"fmt"
	"time"
)

// Scope selects where a Session is persisted.
type Scope string

const (
	// ScopeDurable survives client restarts.
	ScopeDurable Scope = "durable"
	// ScopeEphemeral lives only as long as the terminal session (or process) that created it.
	ScopeEphemeral Scope = "ephemeral"
)

// ParseScope converts a string to a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeDurable, ScopeEphemeral:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// ScopeFor returns the scope a login with the given "remember me" choice persists to.
func ScopeFor(remember bool) Scope {
	if remember {
		return ScopeDurable
	}
	return ScopeEphemeral
}

// Session is the authenticated state held by the client.
type Session struct {
	Token     string    `json:"-"` // bearer credential (never printed)
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile,omitempty"`
	Scope     Scope     `json:"scope"`
}

// IsExpiredAt reports whether the session has expired at the given instant.
// A session expiring exactly at now is already expired.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
