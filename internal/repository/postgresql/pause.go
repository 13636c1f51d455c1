package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type pauseRepository struct {
	db *database.DB
}

const pauseColumns = `id, session_id, kind, sequence, started_at, ended_at, duration_minutes, created_at`

func scanPause(row pgx.Row) (session.SessionPause, error) {
	var p session.SessionPause
	err := row.Scan(
		&p.ID, &p.SessionID, &p.Kind, &p.Sequence, &p.StartedAt, &p.EndedAt,
		&p.DurationMinutes, &p.CreatedAt,
	)
	return p, err
}

// Open implements session.PauseRepository. A partial unique index on
// (session_id, kind) WHERE ended_at IS NULL guarantees at most one open
// pause per kind; a concurrent start collapses into the existing row.
func (r *pauseRepository) Open(ctx context.Context, p session.SessionPause) (session.SessionPause, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO session_pauses (id, session_id, kind, sequence, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + pauseColumns

	created, err := scanPause(q.QueryRow(ctx, query, p.ID, p.SessionID, p.Kind, p.Sequence, p.StartedAt))
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := r.GetOpen(ctx, p.SessionID, p.Kind)
			if getErr == nil && existing != nil {
				return *existing, false, nil
			}
		}
		return session.SessionPause{}, false, fmt.Errorf("failed to open pause: %w", err)
	}

	return created, true, nil
}

// GetOpen implements session.PauseRepository.
func (r *pauseRepository) GetOpen(ctx context.Context, sessionID string, kind session.PauseKind) (*session.SessionPause, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + pauseColumns + `
		FROM session_pauses
		WHERE session_id = $1 AND kind = $2 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`

	p, err := scanPause(q.QueryRow(ctx, query, sessionID, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open pause: %w", err)
	}

	return &p, nil
}

// GetAnyOpen implements session.PauseRepository.
func (r *pauseRepository) GetAnyOpen(ctx context.Context, sessionID string) (*session.SessionPause, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + pauseColumns + `
		FROM session_pauses
		WHERE session_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`

	p, err := scanPause(q.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open pause: %w", err)
	}

	return &p, nil
}

// CountByKind implements session.PauseRepository.
func (r *pauseRepository) CountByKind(ctx context.Context, sessionID string, kind session.PauseKind) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COUNT(*) FROM session_pauses WHERE session_id = $1 AND kind = $2`

	var count int
	if err := q.QueryRow(ctx, query, sessionID, kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pauses: %w", err)
	}

	return count, nil
}

// Close implements session.PauseRepository.
func (r *pauseRepository) Close(ctx context.Context, id string, endedAt time.Time, durationMinutes int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE session_pauses
		SET ended_at = $1, duration_minutes = $2
		WHERE id = $3 AND ended_at IS NULL
	`

	tag, err := q.Exec(ctx, query, endedAt, durationMinutes, id)
	if err != nil {
		return fmt.Errorf("failed to close pause: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrPauseNotFound
	}

	return nil
}

// ListBySession implements session.PauseRepository.
func (r *pauseRepository) ListBySession(ctx context.Context, sessionID string) ([]session.SessionPause, error) {
	return r.list(ctx, `session_id = $1`, sessionID)
}

// ListBySessions implements session.PauseRepository.
func (r *pauseRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]session.SessionPause, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `session_id = ANY($1)`, sessionIDs)
}

func (r *pauseRepository) list(ctx context.Context, where string, arg interface{}) ([]session.SessionPause, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + pauseColumns + ` FROM session_pauses WHERE ` + where + ` ORDER BY started_at`

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	defer rows.Close()

	var pauses []session.SessionPause
	for rows.Next() {
		p, err := scanPause(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pause: %w", err)
		}
		pauses = append(pauses, p)
	}

	return pauses, rows.Err()
}

func NewPauseRepository(db *database.DB) session.PauseRepository {
	return &pauseRepository{db: db}
}
