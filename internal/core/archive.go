package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"wellbeingcore/internal/blob"
	"wellbeingcore/internal/infra/persistence/memory"
)

// StateExporter is implemented by stores that can export their full state as a
// normalized snapshot. The in-memory store and everything embedding it qualify.
type StateExporter interface {
	ExportState() memory.Snapshot
}

// ArchiveSnapshot serializes the store's current snapshot and writes it to the
// blob store under snapshots/<timestamp>.json. The returned info carries the
// stored key and content hash.
func (s *Service) ArchiveSnapshot(ctx context.Context, store blob.Store) (blob.Info, error) {
	exporter, ok := s.store.(StateExporter)
	if !ok {
		return blob.Info{}, fmt.Errorf("storage backend does not support snapshot export")
	}
	snapshot := exporter.ExportState()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("snapshots/%s.json", s.nowFn().UTC().Format("20060102T150405Z"))
	info, err := store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot: %w", err)
	}
	s.logger.Infof("archived snapshot %s (%d bytes)", key, len(payload))
	return info, nil
}
