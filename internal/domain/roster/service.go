package roster

import (
	"context"
)

// Employee is the minimal directory record the roster needs. The employee
// directory itself is owned by the account service.
type Employee struct {
	ID       string
	FullName string
}

// Directory lists the employees a roster covers.
type Directory interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// RosterService resolves each employee's live status for a day. Read-only:
// it tolerates concurrent writers and treats its inputs as a point-in-time
// read, not a snapshot.
type RosterService interface {
	GetRoster(ctx context.Context, req RosterRequest) (RosterResponse, error)
}
