package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticAuth(v bool) Authenticator {
	return AuthenticatorFunc(func(context.Context) bool { return v })
}

func TestGuard_Decide(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		path          string
		authenticated bool
		want          Action
		wantLocation  string
	}{
		{"/cart", false, RedirectLogin, "/welcome"},
		{"/admin/products", false, RedirectLogin, "/welcome"},
		{"/admin", false, RedirectLogin, "/welcome"},
		{"/admin", true, Allow, ""},
		{"/", false, RedirectLogin, "/welcome"},
		{"/cart", true, Allow, ""},
		{"/welcome", true, RedirectHome, "/home"},
		{"/welcome/register", true, RedirectHome, "/home"},
		{"/welcome", false, Allow, ""},
		{"/welcome/reset", false, Allow, ""},
		{"/unknown", false, Allow, ""},
		{"/unknown", true, Allow, ""},
	}
	for _, tt := range tests {
		g := New(staticAuth(tt.authenticated), WithLogger(quietLogger()))
		got := g.Decide(context.Background(), table.Resolve(tt.path), Target{})
		if got.Action != tt.want || got.Location != tt.wantLocation {
			t.Errorf("Decide(%s, auth=%v) = %v %q, want %v %q",
				tt.path, tt.authenticated, got.Action, got.Location, tt.want, tt.wantLocation)
		}
	}
}

func TestGuard_RequiresAuthTakesPrecedence(t *testing.T) {
	table, err := ParseTable([]byte(`
- path: /both
  name: both
  meta: {requires_auth: true, public_only: true}
`))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	to := table.Resolve("/both")

	g := New(staticAuth(false), WithLogger(quietLogger()))
	if d := g.Decide(context.Background(), to, Target{}); d.Action != RedirectLogin {
		t.Errorf("unauthenticated: got %v, want redirect-login", d.Action)
	}
	g = New(staticAuth(true), WithLogger(quietLogger()))
	if d := g.Decide(context.Background(), to, Target{}); d.Action != RedirectHome {
		t.Errorf("authenticated: got %v, want redirect-home", d.Action)
	}
}

func TestGuard_CustomPaths(t *testing.T) {
	g := New(staticAuth(false), WithLoginPath("/signin"), WithHomePath("/shop"), WithLogger(quietLogger()))
	d := g.Decide(context.Background(), DefaultTable().Resolve("/checkout"), Target{})
	if d.Location != "/signin" {
		t.Errorf("Location = %q, want /signin", d.Location)
	}
}

func TestMiddleware(t *testing.T) {
	table := DefaultTable()
	authenticated := false
	g := New(AuthenticatorFunc(func(context.Context) bool { return authenticated }), WithLogger(quietLogger()))

	var seen Target
	h := Middleware(g, table)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TargetFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/3", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/welcome" {
		t.Errorf("unauthenticated /orders/3: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	authenticated = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated /orders/3: %d", rec.Code)
	}
	if seen.Name != "order-detail" || seen.Params["id"] != "3" {
		t.Errorf("target in context = %+v", seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/welcome", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/home" {
		t.Errorf("authenticated /welcome: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	authenticated = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/3", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("POST should bypass the guard, got %d", rec.Code)
	}
}
