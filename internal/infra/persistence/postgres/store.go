// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics, snapshotting state as JSONB buckets.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"wellbeingcore/internal/infra/persistence/memory"
	"wellbeingcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/wellbeing?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions. Snapshot write failures are logged and absorbed; the last
// one is surfaced via LastPersistError.
type Store struct {
	*memory.Store
	db *sql.DB

	mu         sync.Mutex
	persistErr error
	logf       func(format string, args ...any)
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the snapshot table exists, and hydrates the in-memory
// store. An empty table is seeded with the starter dataset; a snapshot that
// fails to decode is discarded in favor of the seed.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	s := &Store{
		Store: memory.NewStore(engine),
		db:    db,
		logf:  log.Printf,
	}
	if err := s.load(ctx); err != nil {
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

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
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
		return s.persistNow(ctx)
	}

	var snapshot memory.Snapshot
	for _, bucket := range snapshotBuckets(&snapshot) {
		payload, ok := payloads[bucket.Name]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, bucket.Target); err != nil {
			s.logf("postgres: discarding malformed bucket %s: %v", bucket.Name, err)
			s.ImportState(memory.SeedSnapshot())
			return s.persistNow(ctx)
		}
	}
	s.ImportState(snapshot)
	return nil
}

// RunInTransaction commits via the in-memory store, then snapshots to
// Postgres. A snapshot write failure is logged and absorbed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persistNow(ctx); pErr != nil {
		s.logf("postgres: snapshot write failed: %v", pErr)
	}
	return res, nil
}

func (s *Store) persistNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	err := s.writeSnapshot(ctx, snapshot)
	s.persistErr = err
	return err
}

func (s *Store) writeSnapshot(ctx context.Context, snapshot memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
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
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket.Name, data); err != nil {
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

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
