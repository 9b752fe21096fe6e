package badger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil DB should not error: %v", err)
	}
}

func TestKV_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "stocksApp"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(ctx, "stocksApp", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "stocksApp")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"version":2}` {
		t.Errorf("Get = %q", got)
	}

	// overwrite, no merge
	if err := store.Set(ctx, "stocksApp", []byte(`{}`)); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	got, _ = store.Get(ctx, "stocksApp")
	if string(got) != `{}` {
		t.Errorf("Get after overwrite = %q", got)
	}

	if err := store.Delete(ctx, "stocksApp"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "stocksApp"); err != nil {
		t.Fatalf("Delete of missing key should not error: %v", err)
	}
	if _, err := store.Get(ctx, "stocksApp"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Errorf("Get after delete: err = %v", err)
	}
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	store, err := NewStore(common.NewSilentLogger(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.Close()

	reopened, err := NewStore(common.NewSilentLogger(), dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}
