package devapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/me/storefront/pkg/model"
)

// Claims are carried by issued access tokens.
type Claims struct {
	Username string         `json:"username"`
	Role     model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKeyUser).(*User)
	return u
}

type loginResponse struct {
	Token    string           `json:"token"`
	Expire   *model.Timestamp `json:"expire,omitempty"`
	Username string           `json:"username"`
	ID       string           `json:"id"`
	Role     model.UserRole   `json:"role"`
}

// revocations remembers logged-out token ids until they expire.
type revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (r *revocations) add(id string, exp, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		r.ids = make(map[string]time.Time)
	}
	for k, e := range r.ids {
		if !e.After(now) {
			delete(r.ids, k)
		}
	}
	r.ids[id] = exp
}

func (r *revocations) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

func (s *Server) issueToken(u *User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.config.TokenTTL)
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// parseToken validates signature, issuer and expiry.
func (s *Server) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// extractToken returns the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// authMiddleware requires a valid, unrevoked bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			respondFail(w, model.CodeUnauthorized, "authentication required")
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			s.logger.Debug("token rejected", "error", err)
			respondFail(w, model.CodeUnauthorized, msg)
			return
		}
		if s.revoked.has(claims.ID) {
			respondFail(w, model.CodeUnauthorized, "token revoked")
			return
		}
		user, ok := s.users.Lookup(claims.Username)
		if !ok {
			respondFail(w, model.CodeUnauthorized, "unknown user")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects authenticated users without the admin role.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			respondFail(w, model.CodeUnauthorized, "authentication required")
			return
		}
		if u.Role != model.RoleAdmin {
			respondFail(w, model.CodeForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondFail(w, model.CodeBadRequest, "malformed form body")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		respondFail(w, model.CodeBadRequest, "username and password are required")
		return
	}

	user, ok := s.users.Authenticate(username, password)
	if !ok {
		s.logger.Info("login rejected", "username", username)
		respondFail(w, model.CodeUnauthorized, "invalid username or password")
		return
	}

	token, exp, err := s.issueToken(user)
	if err != nil {
		s.logger.Error("sign token", "error", err)
		respondFail(w, model.CodeServerError, "could not issue token")
		return
	}

	resp := loginResponse{
		Token:    token,
		Username: user.Username,
		ID:       user.ID,
		Role:     user.Role,
	}
	if !s.config.OmitExpire {
		resp.Expire = &model.Timestamp{Time: exp}
	}
	s.logger.Info("login", "username", user.Username, "expires", exp)
	respondOK(w, resp)
}

// handleLogout revokes the presented token. It succeeds without one so
// clients can always clear their local session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw := extractToken(r); raw != "" {
		if claims, err := s.parseToken(raw); err == nil {
			s.revoked.add(claims.ID, claims.ExpiresAt.Time, s.now())
			s.logger.Info("logout", "username", claims.Username)
		}
	}
	respondOK(w, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondOK(w, UserFromContext(r.Context()))
}
