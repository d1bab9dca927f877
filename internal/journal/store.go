package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"labelsheet/internal/config"
)

// ErrNotFound indicates the requested batch does not exist.
var ErrNotFound = errors.New("batch not found")

// Store manages upload batch persistence backed by SQLite. A file lock
// guards the database so concurrent labelsheet invocations cannot interleave
// journal writes.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the journal database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.JournalDir, "journal.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire journal lock: %w", err)
	}
	if !locked {
		return nil, errors.New("journal is locked by another labelsheet process")
	}

	dbPath := filepath.Join(cfg.Paths.JournalDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, lock: lock, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection and releases the journal lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var dbErr error
	if s.db != nil {
		dbErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	return dbErr
}

// Path returns the journal database path.
func (s *Store) Path() string {
	return s.path
}

// NewBatch inserts a pending batch record and returns it.
func (s *Store) NewBatch(ctx context.Context, kind Kind, targetID, name string, sequence, itemCount int) (*Batch, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO upload_batches (kind, target_id, name, sequence, item_count, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(kind), targetID, name, sequence, itemCount, string(StatusPending), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read batch id: %w", err)
	}

	return &Batch{
		ID:        id,
		Kind:      kind,
		TargetID:  targetID,
		Name:      name,
		Sequence:  sequence,
		ItemCount: itemCount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetStatus transitions a batch to the given status, recording an error
// message for terminal failures.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status, errorMessage string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("unknown batch status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE upload_batches SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), nullableString(errorMessage), now, id,
	)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check batch update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// Get returns a single batch by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, selectBatch+" WHERE id = ?", id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return batch, err
}

// List returns batches filtered by status; an empty status returns everything,
// newest first.
func (s *Store) List(ctx context.Context, status Status) ([]*Batch, error) {
	query := selectBatch
	args := []any{}
	if status != "" {
		if !ValidStatus(status) {
			return nil, fmt.Errorf("unknown batch status %q", status)
		}
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// ResetRunning returns batches stuck in the running state to pending. Called
// on open so an interrupted upload can be resumed.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE upload_batches SET status = ?, updated_at = ? WHERE status = ?`,
		string(StatusPending),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("reset running batches: %w", err)
	}
	return res.RowsAffected()
}

// Summarize aggregates batch counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM upload_batches GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize batches: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		case StatusReview:
			summary.Review = count
		case StatusSkipped:
			summary.Skipped = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

const selectBatch = `SELECT id, kind, target_id, name, sequence, item_count, status, error_message, created_at, updated_at FROM upload_batches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*Batch, error) {
	var batch Batch
	var kind, status, createdAt, updatedAt string
	var errorMessage sql.NullString
	if err := row.Scan(
		&batch.ID, &kind, &batch.TargetID, &batch.Name, &batch.Sequence,
		&batch.ItemCount, &status, &errorMessage, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	batch.Kind = Kind(kind)
	batch.Status = Status(status)
	batch.ErrorMessage = errorMessage.String
	batch.CreatedAt = parseTimestamp(createdAt)
	batch.UpdatedAt = parseTimestamp(updatedAt)
	return &batch, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
