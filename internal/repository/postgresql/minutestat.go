package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type minuteStatRepository struct {
	db *database.DB
}

// Upsert implements session.MinuteStatRepository. The ON CONFLICT clause is
// what gives heartbeats their exactly-once-per-minute semantics: replaying a
// minute overwrites flags and counters, never duplicates the row.
func (r *minuteStatRepository) Upsert(ctx context.Context, stat session.MinuteStat) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO minute_stats (session_id, minute_start, active, idle, keys_count, mouse_count, foreground_app, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, minute_start) DO UPDATE SET
			active = EXCLUDED.active,
			idle = EXCLUDED.idle,
			keys_count = EXCLUDED.keys_count,
			mouse_count = EXCLUDED.mouse_count,
			foreground_app = EXCLUDED.foreground_app,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		stat.SessionID, stat.MinuteStart, stat.Active, stat.Idle,
		stat.KeysCount, stat.MouseCount, stat.ForegroundApp, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert minute stat: %w", err)
	}

	return nil
}

// ListBySessionBetween implements session.MinuteStatRepository.
func (r *minuteStatRepository) ListBySessionBetween(ctx context.Context, sessionID string, from, to time.Time) ([]session.MinuteStat, error) {
	return r.list(ctx, `session_id = $1 AND minute_start >= $2 AND minute_start < $3`, sessionID, from, to)
}

// ListBySessionsBetween implements session.MinuteStatRepository.
func (r *minuteStatRepository) ListBySessionsBetween(ctx context.Context, sessionIDs []string, from, to time.Time) ([]session.MinuteStat, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `session_id = ANY($1) AND minute_start >= $2 AND minute_start < $3`, sessionIDs, from, to)
}

func (r *minuteStatRepository) list(ctx context.Context, where string, args ...interface{}) ([]session.MinuteStat, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT session_id, minute_start, active, idle, keys_count, mouse_count, foreground_app, updated_at
		FROM minute_stats
		WHERE ` + where + `
		ORDER BY minute_start
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list minute stats: %w", err)
	}
	defer rows.Close()

	var stats []session.MinuteStat
	for rows.Next() {
		var s session.MinuteStat
		err := rows.Scan(
			&s.SessionID, &s.MinuteStart, &s.Active, &s.Idle,
			&s.KeysCount, &s.MouseCount, &s.ForegroundApp, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan minute stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func NewMinuteStatRepository(db *database.DB) session.MinuteStatRepository {
	return &minuteStatRepository{db: db}
}
