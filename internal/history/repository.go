package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists launches.
type Repository interface {
	// Save inserts the launch or replaces the row with the same session.
	Save(ctx context.Context, l *Launch) error

	// Get returns the launch for session, or ErrLaunchNotFound.
	Get(ctx context.Context, session string) (*Launch, error)

	// List returns the most recent launches, newest first.
	List(ctx context.Context, limit int) ([]Launch, error)
}

// SQLiteRepository implements Repository on the launches table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save implements Repository.
func (r *SQLiteRepository) Save(ctx context.Context, l *Launch) error {
	if l == nil || l.Session == "" || l.StartedAt.IsZero() {
		return ErrInvalidLaunch
	}

	var ended any
	if l.EndedAt != nil {
		ended = l.EndedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO launches (
			session, mode, interpreter, host, port, pid, state, outcome,
			ready_after_ms, attempts, error, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session) DO UPDATE SET
			mode = excluded.mode,
			interpreter = excluded.interpreter,
			host = excluded.host,
			port = excluded.port,
			pid = excluded.pid,
			state = excluded.state,
			outcome = excluded.outcome,
			ready_after_ms = excluded.ready_after_ms,
			attempts = excluded.attempts,
			error = excluded.error,
			ended_at = excluded.ended_at`,
		l.Session, l.Mode, l.Interpreter, l.Host, l.Port, l.PID, l.State, l.Outcome,
		l.ReadyAfterMS, l.Attempts, l.Error, l.StartedAt.UTC().Format(time.RFC3339Nano), ended,
	)
	if err != nil {
		return fmt.Errorf("saving launch %s: %w", l.Session, err)
	}
	return nil
}

const selectLaunch = `
	SELECT session, mode, interpreter, host, port, pid, state, outcome,
		ready_after_ms, attempts, error, started_at, ended_at
	FROM launches`

// Get implements Repository.
func (r *SQLiteRepository) Get(ctx context.Context, session string) (*Launch, error) {
	row := r.db.QueryRowContext(ctx, selectLaunch+" WHERE session = ?", session)
	l, err := scanLaunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLaunchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting launch %s: %w", session, err)
	}
	return l, nil
}

// List implements Repository. Limits outside (0, MaxListLimit] are clamped.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Launch, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectLaunch+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing launches: %w", err)
	}
	defer rows.Close()

	launches := make([]Launch, 0)
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning launch: %w", err)
		}
		launches = append(launches, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating launches: %w", err)
	}
	return launches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaunch(s scanner) (*Launch, error) {
	var (
		l       Launch
		started string
		ended   sql.NullString
	)
	if err := s.Scan(&l.Session, &l.Mode, &l.Interpreter, &l.Host, &l.Port, &l.PID,
		&l.State, &l.Outcome, &l.ReadyAfterMS, &l.Attempts, &l.Error, &started, &ended); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	l.StartedAt = t

	if ended.Valid {
		e, err := time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		l.EndedAt = &e
	}
	return &l, nil
}
