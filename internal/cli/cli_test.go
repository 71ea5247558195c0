package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/storefront/internal/config"
	"github.com/me/storefront/internal/devapi"
	"github.com/me/storefront/internal/logging"
	"github.com/me/storefront/pkg/model"
)

// startDevAPI starts a development backend and points the CLI at it.
// Session state lives in per-test directories.
func startDevAPI(t *testing.T) string {
	t.Helper()
	srv, err := devapi.New(config.DevAPIConfig{
		Secret:   "cli-test",
		TokenTTL: time.Hour,
		Users:    "alice:secret,admin:admin:admin",
	}, logging.Discard())
	if err != nil {
		t.Fatalf("devapi.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv("STOREFRONT_API_URL", ts.URL+"/api")
	t.Setenv("STOREFRONT_STATE_DIR", t.TempDir())
	t.Setenv("TMPDIR", t.TempDir())
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")
	return ts.URL
}

// run executes the CLI and returns stdout, stderr and the error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func status(t *testing.T) statusView {
	t.Helper()
	var v statusView
	out := mustRun(t, "status", "--json")
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode status %q: %v", out, err)
	}
	return v
}

func TestLoginWhoamiLogout(t *testing.T) {
	startDevAPI(t)

	out, errOut, err := run(t, "", "login", "-u", "alice", "-p", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as alice (user)") {
		t.Errorf("login stdout = %q", out)
	}
	if !strings.Contains(errOut, "success: Login succeeded, welcome alice") {
		t.Errorf("login stderr = %q", errOut)
	}

	out = mustRun(t, "whoami")
	if !strings.HasPrefix(out, "alice\t") || !strings.HasSuffix(out, "\tuser\n") {
		t.Errorf("whoami = %q", out)
	}

	st := status(t)
	if !st.Authenticated || st.Scope != model.ScopeEphemeral || st.Profile == nil {
		t.Errorf("status = %+v", st)
	}

	mustRun(t, "logout")
	if _, _, err := run(t, "", "whoami"); err != errNotLoggedIn {
		t.Errorf("whoami after logout: err = %v, want %v", err, errNotLoggedIn)
	}
}

func TestLoginPrompts(t *testing.T) {
	startDevAPI(t)

	out, errOut, err := run(t, "alice\nsecret\n", "login")
	if err != nil {
		t.Fatalf("login: %v\nstderr: %s", err, errOut)
	}
	if !strings.Contains(errOut, "Username: ") || !strings.Contains(errOut, "Password: ") {
		t.Errorf("prompts missing from stderr: %q", errOut)
	}
	if !strings.Contains(out, "Logged in as alice") {
		t.Errorf("stdout = %q", out)
	}
}

func TestRememberedSessionSurvivesNewTerminal(t *testing.T) {
	startDevAPI(t)

	mustRun(t, "login", "-u", "alice", "-p", "secret", "--remember")
	if st := status(t); st.Scope != model.ScopeDurable {
		t.Fatalf("scope = %q, want durable", st.Scope)
	}

	// A new temp dir stands in for a new terminal.
	t.Setenv("TMPDIR", t.TempDir())
	if st := status(t); !st.Authenticated {
		t.Error("remembered session lost in new terminal")
	}
}

func TestTerminalSessionEndsWithTerminal(t *testing.T) {
	startDevAPI(t)

	mustRun(t, "login", "-u", "alice", "-p", "secret")
	if st := status(t); !st.Authenticated {
		t.Fatal("not authenticated after login")
	}

	t.Setenv("TMPDIR", t.TempDir())
	if st := status(t); st.Authenticated {
		t.Error("terminal session visible in new terminal")
	}
}

func TestLoginBadPassword(t *testing.T) {
	startDevAPI(t)

	_, errOut, err := run(t, "", "login", "-u", "alice", "-p", "wrong")
	if !model.IsBusinessFailure(err, model.CodeUnauthorized) {
		t.Fatalf("err = %v, want business failure 401", err)
	}
	if !strings.Contains(errOut, "warning: invalid username or password") {
		t.Errorf("stderr = %q", errOut)
	}
	if st := status(t); st.Authenticated {
		t.Error("authenticated after failed login")
	}
}

func TestLoginValidation(t *testing.T) {
	startDevAPI(t)

	_, errOut, err := run(t, "", "login", "-u", "   ", "-p", "secret")
	if err == nil {
		t.Fatal("expected error for blank username")
	}
	if model.IsBusinessFailure(err, 0) {
		t.Errorf("err = %v, request should not have been sent", err)
	}
	if !strings.Contains(errOut, "warning: username:") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestGetRequiresSession(t *testing.T) {
	startDevAPI(t)

	_, errOut, err := run(t, "", "get", "/products")
	if !model.IsBusinessFailure(err, model.CodeUnauthorized) {
		t.Fatalf("err = %v, want business failure 401", err)
	}
	if !strings.Contains(errOut, "warning: authentication required") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestAuthenticatedRequests(t *testing.T) {
	startDevAPI(t)
	mustRun(t, "login", "-u", "alice", "-p", "secret")

	out := mustRun(t, "get", "/products", "-q", "category=coffee")
	var products []devapi.Product
	if err := json.Unmarshal([]byte(out), &products); err != nil {
		t.Fatalf("decode products %q: %v", out, err)
	}
	if len(products) != 2 {
		t.Errorf("coffee products = %d, want 2", len(products))
	}

	out = mustRun(t, "put", "/cart/3", "--data", `{"quantity":2}`)
	var cart []devapi.CartItem
	if err := json.Unmarshal([]byte(out), &cart); err != nil {
		t.Fatalf("decode cart %q: %v", out, err)
	}
	if len(cart) != 1 || cart[0].Quantity != 2 {
		t.Errorf("cart = %+v", cart)
	}

	mustRun(t, "delete", "/cart/3")
	out = mustRun(t, "get", "/cart")
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("cart after delete = %q", out)
	}
}

func TestPostForm(t *testing.T) {
	startDevAPI(t)
	out := mustRun(t, "post", "/auth/login", "--form", "username=admin", "--form", "password=admin")
	if !strings.Contains(out, `"role": "admin"`) {
		t.Errorf("stdout = %q", out)
	}
}

func TestRequestFlagErrors(t *testing.T) {
	startDevAPI(t)
	tests := [][]string{
		{"post", "/x", "--data", "{not json"},
		{"post", "/x", "--data", "{}", "--form", "a=b"},
		{"get", "/x", "-q", "novalue"},
		{"get"},
	}
	for _, args := range tests {
		if _, _, err := run(t, "", args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestNavigate(t *testing.T) {
	startDevAPI(t)

	out := mustRun(t, "navigate", "/product/7")
	if out != "/product/7 -> /welcome (redirect-login)\n" {
		t.Errorf("logged out = %q", out)
	}
	out = mustRun(t, "navigate", "/welcome/register")
	if out != "/welcome/register: welcome-register\n" {
		t.Errorf("public page = %q", out)
	}

	mustRun(t, "login", "-u", "alice", "-p", "secret")
	out = mustRun(t, "navigate", "/product/7")
	if out != "/product/7: product-detail id=7\n" {
		t.Errorf("logged in = %q", out)
	}
	out = mustRun(t, "navigate", "/welcome", "--from", "/cart")
	if out != "/welcome -> /home (redirect-home)\n" {
		t.Errorf("public-only = %q", out)
	}
	out = mustRun(t, "navigate", "/nowhere")
	if out != "/nowhere: no such page\n" {
		t.Errorf("unknown = %q", out)
	}
}

func TestRoutes(t *testing.T) {
	startDevAPI(t)
	out := mustRun(t, "routes")
	for _, want := range []string{"PATTERN", "/product/{id}", "product-detail", "public", "/home"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}
}

func TestLogoutOffline(t *testing.T) {
	startDevAPI(t)
	mustRun(t, "login", "-u", "alice", "-p", "secret")

	// Point the client at an address nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := "http://" + ln.Addr().String()
	ln.Close()

	_, errOut, err := run(t, "", "--api-url", dead+"/api", "logout")
	if err != nil {
		t.Fatalf("offline logout: %v", err)
	}
	if !strings.Contains(errOut, "error: Something went wrong") || !strings.Contains(errOut, "success: Logged out") {
		t.Errorf("stderr = %q", errOut)
	}
	if st := status(t); st.Authenticated {
		t.Error("session survived offline logout")
	}
}

func TestInvalidBackend(t *testing.T) {
	startDevAPI(t)
	if _, _, err := run(t, "", "--durable-backend", "etcd", "status"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBackendFlagOverridesEnvironment(t *testing.T) {
	startDevAPI(t)
	t.Setenv("STOREFRONT_DURABLE_BACKEND", "etcd")

	if _, _, err := run(t, "", "status"); err == nil {
		t.Error("expected error for unknown backend from the environment")
	}
	if _, errOut, err := run(t, "", "--durable-backend", "memory", "status"); err != nil {
		t.Errorf("status with --durable-backend memory: %v\nstderr: %s", err, errOut)
	}
}

func TestServeListenerShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveListener(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}), logging.Discard())
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveListener: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
