// Package sqlitestore is the optional persistent backend named in spec §6
// ("drop-in persistence backend"): a SQLite-backed store for idempotency
// records and the dead-letter list, following the teacher's
// internal/store schema-const-plus-CRUD-method convention. The in-memory
// core.Core never imports this package directly — a deployment that wants
// durability across restarts constructs one itself and replays/prunes
// against it out of band.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// Store provides SQLite-backed persistence for idempotency results and
// dead-lettered jobs.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS idempotency_records (
	scope TEXT NOT NULL,
	key TEXT NOT NULL,
	result TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (scope, key)
);

CREATE TABLE IF NOT EXISTS dead_letters (
	job_id TEXT PRIMARY KEY,
	household_id TEXT NOT NULL,
	job TEXT NOT NULL,
	failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_failed_at ON dead_letters (failed_at);
`

// Open opens (creating if necessary) a SQLite database at dbPath and
// applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutIdempotent persists result under (scope, key), overwriting any prior
// value recorded for the same pair.
func (s *Store) PutIdempotent(scope core.IdempotencyScope, key string, result any) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal idempotent result: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO idempotency_records (scope, key, result) VALUES (?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET result = excluded.result, created_at = datetime('now')`,
		string(scope), key, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: put idempotent record: %w", err)
	}
	return nil
}

// GetIdempotent looks up a previously stored result for (scope, key). The
// caller is responsible for unmarshaling raw into the concrete result type
// it expects back, since the store has no notion of the call's return
// shape.
func (s *Store) GetIdempotent(scope core.IdempotencyScope, key string) (raw json.RawMessage, ok bool, err error) {
	row := s.db.QueryRow(
		`SELECT result FROM idempotency_records WHERE scope = ? AND key = ?`,
		string(scope), key,
	)
	var encoded string
	if err := row.Scan(&encoded); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlitestore: get idempotent record: %w", err)
	}
	return json.RawMessage(encoded), true, nil
}

// SaveDeadLetter persists job, replacing any prior record with the same
// JobID (a job re-dead-lettered after a manual requeue attempt overwrites
// the earlier failure).
func (s *Store) SaveDeadLetter(job *core.ReceiptProcessJob) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal dead letter: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO dead_letters (job_id, household_id, job) VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET household_id = excluded.household_id, job = excluded.job, failed_at = datetime('now')`,
		job.JobID, job.HouseholdID, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: save dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns every persisted dead letter, most recently
// failed first.
func (s *Store) ListDeadLetters() ([]*core.ReceiptProcessJob, error) {
	rows, err := s.db.Query(`SELECT job FROM dead_letters ORDER BY failed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list dead letters: %w", err)
	}
	defer rows.Close()

	var out []*core.ReceiptProcessJob
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan dead letter: %w", err)
		}
		var job core.ReceiptProcessJob
		if err := json.Unmarshal([]byte(encoded), &job); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode dead letter: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

// PruneDeadLettersBefore deletes every dead letter that failed before
// cutoff and returns the number of rows removed. Not invoked by the core
// itself (spec §9 Open Question: dead-letter retention is unbounded by
// default); a production deployment schedules this externally.
func (s *Store) PruneDeadLettersBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM dead_letters WHERE failed_at < ?`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: prune dead letters: %w", err)
	}
	return res.RowsAffected()
}
