package leave

import (
	"context"
	"time"
)

// RequestRepository is the read-only view of the external leave service's
// data this backend consumes.
type RequestRepository interface {
	// ListApprovedOverlapping returns the user's approved requests whose
	// [start_date, end_date] range overlaps [from, to)
	ListApprovedOverlapping(ctx context.Context, userID string, from, to time.Time) ([]Request, error)
}
