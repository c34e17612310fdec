package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/myuni/internal/event"
)

// SyncRun records one successful sync cycle.
type SyncRun struct {
	ID          string
	Count       int
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ReplaceEvents atomically replaces the whole event table with events.
//
// Returns the stored records with their newly assigned surrogate ids, in
// input order. On error the previous table contents are left in place.
func (s *Store) ReplaceEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	return s.replace(ctx, events, nil)
}

// ReplaceEventsAtomic replaces the event table and records run in the same
// transaction. Either both commit or neither does.
func (s *Store) ReplaceEventsAtomic(ctx context.Context, events []event.Event, run SyncRun) ([]event.Event, error) {
	return s.replace(ctx, events, &run)
}

func (s *Store) replace(ctx context.Context, events []event.Event, run *SyncRun) ([]event.Event, error) {
	const op = "replace events"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return nil, storageErr(op, fmt.Errorf("clear: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (title, time, place, description)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, storageErr(op, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	stored := make([]event.Event, 0, len(events))
	for i, e := range events {
		result, err := stmt.ExecContext(ctx, e.Title, e.Time, e.Place, e.Description)
		if err != nil {
			return nil, storageErr(op, fmt.Errorf("insert [%d]: %w", i, err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, storageErr(op, fmt.Errorf("last insert id [%d]: %w", i, err))
		}
		e.ID = id
		stored = append(stored, e)
	}

	if run != nil {
		if err := insertSyncRun(ctx, tx, *run); err != nil {
			return nil, storageErr(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(op, fmt.Errorf("commit: %w", err))
	}

	// Publish a private copy so callers may keep mutating their result.
	published := make([]event.Event, len(stored))
	copy(published, stored)
	s.snapshot.Set(published)

	return stored, nil
}

// Events returns the whole event table ordered by id.
//
// Returns an empty slice (not nil) if the table is empty.
func (s *Store) Events(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, time, place, description
		FROM events
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, storageErr("read events", fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var e event.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Time, &e.Place, &e.Description); err != nil {
			return nil, storageErr("read events", fmt.Errorf("scan: %w", err))
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("read events", fmt.Errorf("iterate: %w", err))
	}

	return events, nil
}

// Watch returns a channel that receives the event table contents
// immediately and again after every committed replace.
//
// Received slices are shared between subscribers and must not be modified.
// The channel is closed when ctx is done or the store is closed.
func (s *Store) Watch(ctx context.Context) <-chan []event.Event {
	return s.snapshot.Subscribe(ctx)
}

func insertSyncRun(ctx context.Context, tx *sql.Tx, run SyncRun) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, event_count, fingerprint, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Count,
		run.Fingerprint,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// LastSyncRun returns the most recently recorded sync run.
// Returns found=false if no sync has completed yet.
func (s *Store) LastSyncRun(ctx context.Context) (run SyncRun, found bool, err error) {
	var startedAt, finishedAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT run_id, event_count, fingerprint, started_at, finished_at
		FROM sync_runs
		ORDER BY seq DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Count, &run.Fingerprint, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return SyncRun{}, false, nil
	}
	if err != nil {
		return SyncRun{}, false, storageErr("read sync run", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return SyncRun{}, false, storageErr("read sync run", fmt.Errorf("started_at: %w", err))
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return SyncRun{}, false, storageErr("read sync run", fmt.Errorf("finished_at: %w", err))
	}

	return run, true, nil
}

// CountSyncRuns returns the number of recorded sync runs.
func (s *Store) CountSyncRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_runs`).Scan(&n); err != nil {
		return 0, storageErr("count sync runs", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
