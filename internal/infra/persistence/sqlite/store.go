// Package sqlite persists the in-memory wellbeing state to a single SQLite
// table as JSON buckets, snapshotting the full state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"wellbeingcore/internal/infra/persistence/memory"
	"wellbeingcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store wraps the in-memory store with SQLite durability. Snapshot write
// failures never abort a committed transaction: the in-memory state is the
// source of truth and the last write error is surfaced via LastPersistError.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string

	mu         sync.Mutex
	persistErr error
	logf       func(format string, args ...any)
}

// NewStore opens or creates the database at path and hydrates the in-memory
// store. An empty database is seeded with the starter dataset; a snapshot that
// fails to decode is discarded in favor of the seed, never a crash.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "wellbeing.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{
		Store: memory.NewStore(engine),
		db:    db,
		path:  path,
		logf:  log.Printf,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogf overrides the diagnostics sink used for absorbed errors.
func (s *Store) SetLogf(fn func(format string, args ...any)) {
	if fn != nil {
		s.logf = fn
	}
}

// snapshotBuckets maps persistence bucket names onto snapshot fields. Load and
// persist iterate the same table, so a field cannot be stored but not read.
func snapshotBuckets(snapshot *memory.Snapshot) []struct {
	Name   string
	Target any
} {
	return []struct {
		Name   string
		Target any
	}{
		{"meta", &snapshot.Version},
		{"session", &snapshot.Session},
		{"school_config", &snapshot.Config},
		{"students", &snapshot.Students},
		{"check_ins", &snapshot.CheckIns},
		{"journals", &snapshot.Journals},
		{"habits", &snapshot.Habits},
		{"messages", &snapshot.Messages},
		{"broadcasts", &snapshot.Broadcasts},
		{"safety_events", &snapshot.SafetyEvents},
		{"reports", &snapshot.Reports},
		{"config_requests", &snapshot.ConfigRequests},
		{"groups", &snapshot.Groups},
	}
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}

	if len(payloads) == 0 {
		s.ImportState(memory.SeedSnapshot())
		return s.persistNow()
	}

	var snapshot memory.Snapshot
	for _, bucket := range snapshotBuckets(&snapshot) {
		payload, ok := payloads[bucket.Name]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, bucket.Target); err != nil {
			// Malformed persisted state falls back to the starter dataset
			// rather than refusing to start.
			s.logf("sqlite: discarding malformed bucket %s: %v", bucket.Name, err)
			s.ImportState(memory.SeedSnapshot())
			return s.persistNow()
		}
	}
	s.ImportState(snapshot)
	return nil
}

// RunInTransaction commits via the in-memory store, then snapshots to SQLite.
// A snapshot write failure is logged and absorbed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persistNow(); pErr != nil {
		s.logf("sqlite: snapshot write failed: %v", pErr)
	}
	return res, nil
}

func (s *Store) persistNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	err := s.writeSnapshot(snapshot)
	s.persistErr = err
	return err
}

func (s *Store) writeSnapshot(snapshot memory.Snapshot) (retErr error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range snapshotBuckets(&snapshot) {
		data, err := json.Marshal(bucket.Target)
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", bucket.Name, err)
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket.Name, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket.Name, err)
			return retErr
		}
	}
	return tx.Commit()
}

// LastPersistError returns the most recent snapshot write error, nil when the
// last write succeeded.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close flushes nothing further and closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
