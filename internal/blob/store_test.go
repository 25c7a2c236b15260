package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// storeUnderTest exercises the shared Store contract against a backend.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/a.json", strings.NewReader(`{"version":1}`), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"origin": "test"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/a.json" || info.Size != int64(len(`{"version":1}`)) {
		t.Errorf("unexpected put info: %+v", info)
	}

	if _, err := store.Put(ctx, "snapshots/a.json", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Error("put must refuse to overwrite an existing key")
	}

	head, err := store.Head(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" || head.Metadata["origin"] != "test" {
		t.Errorf("head lost options: %+v", head)
	}

	got, rc, err := store.Get(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"version":1}` {
		t.Errorf("get returned %q", body)
	}
	if got.Key != "snapshots/a.json" {
		t.Errorf("get info key %q", got.Key)
	}

	if _, err := store.Put(ctx, "snapshots/b.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if _, err := store.Put(ctx, "exports/c.csv", strings.NewReader("a,b"), PutOptions{}); err != nil {
		t.Fatalf("third put: %v", err)
	}
	listed, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Key != "snapshots/a.json" || listed[1].Key != "snapshots/b.json" {
		t.Errorf("list by prefix broken: %+v", listed)
	}

	existed, err := store.Delete(ctx, "snapshots/a.json")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "snapshots/a.json")
	if err != nil || existed {
		t.Errorf("second delete should be a no-op: existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, "snapshots/a.json"); err == nil {
		t.Error("head after delete should fail")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	storeUnderTest(t, NewMemory())
}

func TestFilesystemStoreContract(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storeUnderTest(t, store)
}

func TestMemoryPresignUnsupported(t *testing.T) {
	_, err := NewMemory().PresignURL(context.Background(), "k", SignedURLOptions{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestFilesystemPresignURL(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	url, err := store.PresignURL(context.Background(), "snapshots/a.json", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url != "http://local.blob/snapshots/a.json" {
		t.Errorf("unexpected url %q", url)
	}
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("PUT presign should be unsupported, got %v", err)
	}
}

func TestFilesystemRejectsBadKeys(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "a/../../b", "/absolute"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Errorf("key %q should be rejected", key)
		}
	}
}
