package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalListEmpty(t *testing.T) {
	store := &localStore{root: t.TempDir()}
	locations, err := store.List(context.Background(), "missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locations) != 0 {
		t.Fatalf("expected empty list, got %v", locations)
	}
}

func TestLocalListPrefix(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"batch1.cbor", "batch1.json", "batch2.cbor", "other.cbor"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "batch1.d"), 0o755); err != nil {
		t.Fatal(err)
	}

	store := &localStore{root: root}
	locations, err := store.List(context.Background(), "batch1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("expected 2 locations, got %v", locations)
	}
	for _, loc := range locations {
		if filepath.Dir(loc) != root {
			t.Fatalf("location %s not under root %s", loc, root)
		}
	}
}

func TestLocalReadNotFound(t *testing.T) {
	store := &localStore{root: t.TempDir()}
	_, err := store.Read(context.Background(), filepath.Join(store.root, "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalWriteRead(t *testing.T) {
	store := &localStore{root: t.TempDir()}
	loc := filepath.Join(store.root, "batch1.json")
	if err := store.Write(context.Background(), loc, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := store.Read(context.Background(), loc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", b)
	}
}

func TestOpenSelectsLocal(t *testing.T) {
	store, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*localStore); !ok {
		t.Fatalf("expected local store, got %T", store)
	}
}
