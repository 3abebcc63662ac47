package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore persists the in-memory state to a single SQLite table as a
// JSON snapshot written after every committed transaction. It gives a
// single-binary deployment durable state without a database server.
type SQLiteStore struct {
	*MemoryStore
	db *sql.DB
}

const snapshotBucket = "catalog"

// NewSQLiteStore opens (or creates) the snapshot file at path and
// hydrates the in-memory state from any existing snapshot.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "museum.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &SQLiteStore{MemoryStore: NewMemoryStore(), db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, snapshotBucket).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.ImportState(snap)
	return nil
}

func (s *SQLiteStore) persistState(ctx context.Context, st memState) error {
	payload, err := json.Marshal(st.snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO state (bucket, payload) VALUES (?, ?)
		ON CONFLICT (bucket) DO UPDATE SET payload = excluded.payload`, snapshotBucket, payload)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// RunInTransaction runs fn against a clone of the in-memory state and
// writes the snapshot before the clone is swapped in, all under the
// store mutex. A failed snapshot write leaves the committed state
// untouched, and snapshots can never land on disk out of commit order.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.persistState(ctx, tx.state); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Close persists a final snapshot and closes the database file.
func (s *SQLiteStore) Close() error {
	s.mu.RLock()
	err := s.persistState(context.Background(), s.state)
	s.mu.RUnlock()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Store = (*SQLiteStore)(nil)
