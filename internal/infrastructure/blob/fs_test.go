package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"userhub/internal/domain/repository"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return store
}

func TestFSStore_WriteThenRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	data := []byte("image bytes")

	if err := store.Write(ctx, "avatars/abc.png", data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx, "avatars/abc.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}
}

func TestFSStore_DoubleWriteSameKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	data := []byte("same bytes")

	if err := store.Write(ctx, "avatars/k.png", data); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ctx, "avatars/k.png", data); err != nil {
		t.Fatalf("second write of identical bytes: %v", err)
	}
	got, err := store.Read(ctx, "avatars/k.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("content changed after idempotent rewrite")
	}
}

func TestFSStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Read(context.Background(), "avatars/missing.png"); !errors.Is(err, repository.ErrBlobNotFound) {
		t.Fatalf("err = %v, want ErrBlobNotFound", err)
	}
}

func TestFSStore_DeleteIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "avatars/d.png", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "avatars/d.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read(ctx, "avatars/d.png"); !errors.Is(err, repository.ErrBlobNotFound) {
		t.Error("blob readable after delete")
	}
	if err := store.Delete(ctx, "avatars/d.png"); err != nil {
		t.Fatalf("delete of absent blob: %v", err)
	}
}
