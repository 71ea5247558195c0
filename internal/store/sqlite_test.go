package store

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// runStoreContract exercises the behavior every Store backend must share.
func runStoreContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "access_token"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v; want absent", ok, err)
	}

	if err := st.Set(ctx, "access_token", `{"token":"abc"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := st.Get(ctx, "access_token")
	if err != nil || !ok {
		t.Fatalf("Get after Set = ok %v, err %v", ok, err)
	}
	if v != `{"token":"abc"}` {
		t.Errorf("value = %q, want %q", v, `{"token":"abc"}`)
	}

	if err := st.Set(ctx, "access_token", `{"token":"def"}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, _ = st.Get(ctx, "access_token")
	if v != `{"token":"def"}` {
		t.Errorf("value after overwrite = %q", v)
	}

	if err := st.Remove(ctx, "access_token"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := st.Get(ctx, "access_token"); ok {
		t.Error("key still present after Remove")
	}
	if err := st.Remove(ctx, "access_token"); err != nil {
		t.Errorf("second Remove should succeed, got %v", err)
	}
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, testStore(t))
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	st, err := OpenSQLiteStore(ctx, path, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Set(ctx, "user_profile", `{"username":"alice"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	st.Close()

	reopened, err := OpenSQLiteStore(ctx, path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "user_profile")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok %v, err %v", ok, err)
	}
	if v != `{"username":"alice"}` {
		t.Errorf("value = %q", v)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %q, want %q", reopened.Path(), path)
	}
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}
