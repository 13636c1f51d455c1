package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type eventRepository struct {
	db *database.DB
}

// Append implements session.EventRepository. Events are append-only; the
// bigserial id doubles as the insertion-order tiebreak for equal timestamps.
func (r *eventRepository) Append(ctx context.Context, e session.Event) (session.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO events (session_id, type, timestamp, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := q.QueryRow(ctx, query, e.SessionID, e.Type, e.Timestamp, e.Payload).Scan(&e.ID)
	if err != nil {
		return session.Event{}, fmt.Errorf("failed to append event: %w", err)
	}

	return e, nil
}

// ListBySession implements session.EventRepository.
func (r *eventRepository) ListBySession(ctx context.Context, sessionID string) ([]session.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, session_id, type, timestamp, payload
		FROM events
		WHERE session_id = $1
		ORDER BY timestamp, id
	`

	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBySessionsBetween implements session.EventRepository.
func (r *eventRepository) ListBySessionsBetween(ctx context.Context, sessionIDs []string, types []session.EventType, from, to time.Time) ([]session.Event, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, session_id, type, timestamp, payload
		FROM events
		WHERE session_id = ANY($1)
		  AND timestamp >= $2 AND timestamp < $3
	`
	args := []interface{}{sessionIDs, from, to}

	if len(types) > 0 {
		typeStrs := make([]string, 0, len(types))
		for _, t := range types {
			typeStrs = append(typeStrs, string(t))
		}
		query += ` AND type = ANY($4)`
		args = append(args, typeStrs)
	}

	query += ` ORDER BY timestamp, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events in window: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]session.Event, error) {
	var events []session.Event
	for rows.Next() {
		var e session.Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Timestamp, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func NewEventRepository(db *database.DB) session.EventRepository {
	return &eventRepository{db: db}
}
