package core

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"wellbeingcore/internal/blob"
	"wellbeingcore/internal/infra/persistence/memory"
)

func TestArchiveSnapshotWritesJSON(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	store := blob.NewMemory()

	if _, err := svc.Login(ctx, "Maya"); err != nil {
		t.Fatalf("login: %v", err)
	}

	info, err := svc.ArchiveSnapshot(ctx, store)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !strings.HasPrefix(info.Key, "snapshots/") || !strings.HasSuffix(info.Key, ".json") {
		t.Errorf("unexpected key %q", info.Key)
	}
	if info.ContentType != "application/json" {
		t.Errorf("unexpected content type %q", info.ContentType)
	}

	_, rc, err := store.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Version != memory.SnapshotVersion {
		t.Errorf("archived snapshot version %d", snap.Version)
	}
	if snap.Session.User == nil || snap.Session.User.Name != "Maya" {
		t.Errorf("archived snapshot missing session user: %+v", snap.Session)
	}
}
