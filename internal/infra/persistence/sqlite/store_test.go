package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"wellbeingcore/internal/infra/persistence/memory"
	"wellbeingcore/pkg/domain"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store.SetLogf(t.Logf)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEmptyDatabaseIsSeeded(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "wellbeing.db"))

	snap := store.ExportState()
	if snap.Version != memory.SnapshotVersion {
		t.Errorf("seeded snapshot version %d", snap.Version)
	}
	if len(snap.Students) == 0 {
		t.Error("seed should include starter students")
	}
	if err := store.LastPersistError(); err != nil {
		t.Errorf("seeding should persist cleanly, got %v", err)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wellbeing.db")
	store := newTestStore(t, path)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCheckIn(domain.CheckIn{
			StudentID: "stu_1",
			Feeling:   domain.FeelingHappy,
			Answers:   map[string]string{domain.AnswerKeyNote: "field trip"},
		})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	before := store.ExportState()
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := newTestStore(t, path)
	after := reopened.ExportState()
	if len(after.CheckIns) != len(before.CheckIns) {
		t.Fatalf("check-ins lost across reopen: %d != %d", len(after.CheckIns), len(before.CheckIns))
	}
	if after.CheckIns[0].Answers[domain.AnswerKeyNote] != "field trip" {
		t.Errorf("newest check-in not restored: %+v", after.CheckIns[0])
	}
}

func TestMalformedBucketFallsBackToSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wellbeing.db")
	store := newTestStore(t, path)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCheckIn(domain.CheckIn{StudentID: "stu_1", Feeling: domain.FeelingSad})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if _, err := store.DB().Exec(`UPDATE state SET payload = ? WHERE bucket = 'students'`, []byte(`{not json`)); err != nil {
		t.Fatalf("corrupt bucket: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	recovered := newTestStore(t, path)
	snap := recovered.ExportState()
	if len(snap.Students) == 0 {
		t.Error("fallback should restore the starter dataset")
	}
	if want := len(memory.SeedSnapshot().CheckIns); len(snap.CheckIns) != want {
		t.Errorf("fallback should discard the whole snapshot: %d check-ins, want %d", len(snap.CheckIns), want)
	}
	if err := recovered.LastPersistError(); err != nil {
		t.Errorf("rewritten seed should persist cleanly, got %v", err)
	}
}

func TestPersistErrorIsAbsorbed(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "wellbeing.db"))

	// Dropping the table makes every snapshot write fail while the in-memory
	// commit keeps succeeding.
	if _, err := store.DB().Exec(`DROP TABLE state`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCheckIn(domain.CheckIn{StudentID: "stu_1", Feeling: domain.FeelingNeutral})
		return err
	})
	if err != nil {
		t.Fatalf("commit must not surface snapshot write failures: %v", err)
	}
	pErr := store.LastPersistError()
	if pErr == nil || !strings.Contains(pErr.Error(), "state") {
		t.Errorf("expected a persist error naming the state table, got %v", pErr)
	}
	if len(store.ExportState().CheckIns) == 0 {
		t.Error("in-memory state must keep the committed check-in")
	}
}
