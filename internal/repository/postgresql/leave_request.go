package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/leave"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type leaveRequestRepository struct {
	db *database.DB
}

// ListApprovedOverlapping implements leave.RequestRepository. Leave dates are
// inclusive calendar days, so a request overlaps [from, to) when it starts
// before to and ends on or after from's day.
func (r *leaveRequestRepository) ListApprovedOverlapping(ctx context.Context, userID string, from, to time.Time) ([]leave.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, user_id, type, status, start_date, end_date
		FROM leave_requests
		WHERE user_id = $1
		  AND status = 'approved'
		  AND start_date < $2
		  AND end_date >= $3
		ORDER BY start_date
	`

	rows, err := q.Query(ctx, query, userID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		var lr leave.Request
		err := rows.Scan(&lr.ID, &lr.UserID, &lr.Type, &lr.Status, &lr.StartDate, &lr.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}

	return requests, rows.Err()
}

func NewLeaveRequestRepository(db *database.DB) leave.RequestRepository {
	return &leaveRequestRepository{db: db}
}
