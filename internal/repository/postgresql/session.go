package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

// uniqueViolation is the PostgreSQL error code raised when an insert hits a
// unique index. Sessions carry a partial unique index on (user_id) WHERE
// status = 'active'; pauses carry one on (session_id, kind) WHERE ended_at
// IS NULL. Losing that race is handled by re-reading the surviving row.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type sessionRepository struct {
	db *database.DB
}

const sessionColumns = `id, user_id, device_id, status, started_at, ended_at, presence_plan_count, created_at, updated_at`

func scanSession(row pgx.Row) (session.Session, error) {
	var s session.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.Status, &s.StartedAt, &s.EndedAt,
		&s.PresencePlanCount, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create implements session.SessionRepository.
func (r *sessionRepository) Create(ctx context.Context, s session.Session) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO sessions (id, user_id, device_id, status, started_at, presence_plan_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	created, err := scanSession(q.QueryRow(ctx, query,
		s.ID, s.UserID, s.DeviceID, s.Status, s.StartedAt, s.PresencePlanCount,
	))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent clock-in; return the winner.
			existing, getErr := r.GetActiveByUser(ctx, s.UserID)
			if getErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return session.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

// GetByID implements session.SessionRepository.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrSessionNotFound
		}
		return session.Session{}, fmt.Errorf("failed to get session by ID: %w", err)
	}

	return s, nil
}

// GetActiveByUser implements session.SessionRepository.
func (r *sessionRepository) GetActiveByUser(ctx context.Context, userID string) (*session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY started_at DESC
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return &s, nil
}

// UpdateDevice implements session.SessionRepository.
func (r *sessionRepository) UpdateDevice(ctx context.Context, id string, deviceID string) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE sessions SET device_id = $1, updated_at = $2 WHERE id = $3`

	tag, err := q.Exec(ctx, query, deviceID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update session device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}

	return nil
}

// End implements session.SessionRepository. The status guard makes the
// transition race-safe: only one of two concurrent clock-outs wins.
func (r *sessionRepository) End(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE sessions
		SET status = 'ended', ended_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'active'
	`

	tag, err := q.Exec(ctx, query, endedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetPresencePlanCount implements session.SessionRepository.
func (r *sessionRepository) SetPresencePlanCount(ctx context.Context, id string, count int) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE sessions SET presence_plan_count = $1, updated_at = $2 WHERE id = $3`

	tag, err := q.Exec(ctx, query, count, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set presence plan count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}

	return nil
}

// ListActive implements session.SessionRepository.
func (r *sessionRepository) ListActive(ctx context.Context) ([]session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE status = 'active' ORDER BY started_at`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ListByUserTouching implements session.SessionRepository.
func (r *sessionRepository) ListByUserTouching(ctx context.Context, userID string, from, to time.Time) ([]session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		  AND started_at < $2
		  AND (ended_at IS NULL OR ended_at >= $3)
		ORDER BY started_at
	`

	rows, err := q.Query(ctx, query, userID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions touching window: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func NewSessionRepository(db *database.DB) session.SessionRepository {
	return &sessionRepository{db: db}
}
