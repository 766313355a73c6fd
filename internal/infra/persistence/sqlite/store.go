// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics, snapshotting the full state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"creaturecore/internal/infra/persistence/memory"
	"creaturecore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "creaturecore.db"
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
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// ledgerMeta carries the scalar portions of the snapshot in a single bucket.
type ledgerMeta struct {
	AllIDs    []uint64         `json:"all_ids"`
	NextID    uint64           `json:"next_id"`
	Counters  domain.Counters  `json:"counters"`
	Paused    bool             `json:"paused"`
	Authority domain.Authority `json:"authority"`
	NextSeq   uint64           `json:"next_seq"`
}

var sqliteBuckets = []string{"creatures", "owners", "approvals", "operators", "siring", "owned", "credits", "journal", "meta"}

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
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	var snap memory.Snapshot
	var meta ledgerMeta
	for bucket, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		var target any
		switch bucket {
		case "creatures":
			target = &snap.Creatures
		case "owners":
			target = &snap.Owners
		case "approvals":
			target = &snap.Approvals
		case "operators":
			target = &snap.Operators
		case "siring":
			target = &snap.Siring
		case "owned":
			target = &snap.Owned
		case "credits":
			target = &snap.Credits
		case "journal":
			target = &snap.Events
		case "meta":
			target = &meta
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	snap.AllIDs = meta.AllIDs
	snap.NextID = meta.NextID
	snap.Counters = meta.Counters
	snap.Paused = meta.Paused
	snap.Authority = meta.Authority
	snap.NextSeq = meta.NextSeq
	s.ImportState(snap)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	meta := ledgerMeta{
		AllIDs:    snap.AllIDs,
		NextID:    snap.NextID,
		Counters:  snap.Counters,
		Paused:    snap.Paused,
		Authority: snap.Authority,
		NextSeq:   snap.NextSeq,
	}
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "creatures":
			data, err = json.Marshal(snap.Creatures)
		case "owners":
			data, err = json.Marshal(snap.Owners)
		case "approvals":
			data, err = json.Marshal(snap.Approvals)
		case "operators":
			data, err = json.Marshal(snap.Operators)
		case "siring":
			data, err = json.Marshal(snap.Siring)
		case "owned":
			data, err = json.Marshal(snap.Owned)
		case "credits":
			data, err = json.Marshal(snap.Credits)
		case "journal":
			data, err = json.Marshal(snap.Events)
		case "meta":
			data, err = json.Marshal(meta)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
