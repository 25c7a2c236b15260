package postgres

import (
	"context"
	"os"
	"testing"

	"wellbeingcore/internal/infra/persistence/memory"
	"wellbeingcore/pkg/domain"
)

// Integration test, gated on a reachable database.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("WELLBEING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WELLBEING_TEST_POSTGRES_DSN not set")
	}
	store, err := NewStore(dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store.SetLogf(t.Logf)
	t.Cleanup(func() {
		_, _ = store.DB().Exec(`DROP TABLE IF EXISTS state`)
		_ = store.Close()
	})

	if store.ExportState().Version != memory.SnapshotVersion {
		t.Errorf("hydrated snapshot version %d", store.ExportState().Version)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCheckIn(domain.CheckIn{StudentID: "stu_1", Feeling: domain.FeelingHappy})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if err := store.LastPersistError(); err != nil {
		t.Errorf("snapshot write failed: %v", err)
	}

	reopened, err := NewStore(dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if got, want := len(reopened.ExportState().CheckIns), len(store.ExportState().CheckIns); got != want {
		t.Errorf("check-ins lost across reopen: %d != %d", got, want)
	}
}
