package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type promptRepository struct {
	db *database.DB
}

const promptColumns = `id, session_id, scheduled_at, expires_at, triggered_at, responded_at, status, created_at, updated_at`

func scanPrompt(row pgx.Row) (presence.PresencePrompt, error) {
	var p presence.PresencePrompt
	err := row.Scan(
		&p.ID, &p.SessionID, &p.ScheduledAt, &p.ExpiresAt, &p.TriggeredAt,
		&p.RespondedAt, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreateBatch implements presence.PromptRepository.
func (r *promptRepository) CreateBatch(ctx context.Context, prompts []presence.PresencePrompt) error {
	if len(prompts) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO presence_prompts (id, session_id, scheduled_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, p := range prompts {
		if _, err := q.Exec(ctx, query, p.ID, p.SessionID, p.ScheduledAt, p.ExpiresAt, p.Status); err != nil {
			return fmt.Errorf("failed to create presence prompt: %w", err)
		}
	}

	return nil
}

// GetByID implements presence.PromptRepository.
func (r *promptRepository) GetByID(ctx context.Context, id string) (presence.PresencePrompt, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + promptColumns + ` FROM presence_prompts WHERE id = $1`

	p, err := scanPrompt(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return presence.PresencePrompt{}, presence.ErrPromptNotFound
		}
		return presence.PresencePrompt{}, fmt.Errorf("failed to get prompt by ID: %w", err)
	}

	return p, nil
}

// CountBySession implements presence.PromptRepository.
func (r *promptRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM presence_prompts WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prompts: %w", err)
	}

	return count, nil
}

// GetEarliestDue implements presence.PromptRepository.
func (r *promptRepository) GetEarliestDue(ctx context.Context, sessionID string, now time.Time) (*presence.PresencePrompt, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + promptColumns + `
		FROM presence_prompts
		WHERE session_id = $1 AND status = 'pending' AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT 1
	`

	p, err := scanPrompt(q.QueryRow(ctx, query, sessionID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get due prompt: %w", err)
	}

	return &p, nil
}

// HasTriggeredOutstanding implements presence.PromptRepository.
func (r *promptRepository) HasTriggeredOutstanding(ctx context.Context, sessionID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM presence_prompts
			WHERE session_id = $1 AND status = 'triggered' AND responded_at IS NULL
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check outstanding prompt: %w", err)
	}

	return exists, nil
}

// Defer implements presence.PromptRepository.
func (r *promptRepository) Defer(ctx context.Context, id string, scheduledAt, expiresAt time.Time) (bool, error) {
	return r.conditionalUpdate(ctx, `
		UPDATE presence_prompts
		SET scheduled_at = $1, expires_at = $2, updated_at = $3
		WHERE id = $4 AND status = 'pending'
	`, scheduledAt, expiresAt, time.Now().UTC(), id)
}

// MarkTriggered implements presence.PromptRepository.
func (r *promptRepository) MarkTriggered(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.conditionalUpdate(ctx, `
		UPDATE presence_prompts
		SET status = 'triggered', triggered_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'
	`, at, id)
}

// MarkConfirmed implements presence.PromptRepository.
func (r *promptRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.conditionalUpdate(ctx, `
		UPDATE presence_prompts
		SET status = 'confirmed', responded_at = $1, updated_at = $1
		WHERE id = $2 AND status IN ('pending', 'triggered')
	`, at, id)
}

// MarkMissed implements presence.PromptRepository.
func (r *promptRepository) MarkMissed(ctx context.Context, id string) (bool, error) {
	return r.conditionalUpdate(ctx, `
		UPDATE presence_prompts
		SET status = 'missed', updated_at = $1
		WHERE id = $2 AND status = 'triggered' AND responded_at IS NULL
	`, time.Now().UTC(), id)
}

func (r *promptRepository) conditionalUpdate(ctx context.Context, query string, args ...interface{}) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update prompt: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListExpiredTriggered implements presence.PromptRepository.
func (r *promptRepository) ListExpiredTriggered(ctx context.Context, now time.Time) ([]presence.PresencePrompt, error) {
	return r.list(ctx, `status = 'triggered' AND responded_at IS NULL AND expires_at < $1 ORDER BY expires_at`, now)
}

// ListExpiredTriggeredBySession implements presence.PromptRepository.
func (r *promptRepository) ListExpiredTriggeredBySession(ctx context.Context, sessionID string, now time.Time) ([]presence.PresencePrompt, error) {
	return r.list(ctx, `session_id = $2 AND status = 'triggered' AND responded_at IS NULL AND expires_at < $1 ORDER BY expires_at`, now, sessionID)
}

// ListBySession implements presence.PromptRepository.
func (r *promptRepository) ListBySession(ctx context.Context, sessionID string) ([]presence.PresencePrompt, error) {
	return r.list(ctx, `session_id = $1 ORDER BY scheduled_at`, sessionID)
}

func (r *promptRepository) list(ctx context.Context, where string, args ...interface{}) ([]presence.PresencePrompt, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + promptColumns + ` FROM presence_prompts WHERE ` + where

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []presence.PresencePrompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}

	return prompts, rows.Err()
}

func NewPromptRepository(db *database.DB) presence.PromptRepository {
	return &promptRepository{db: db}
}
