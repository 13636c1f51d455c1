package postgresql

import (
	"context"
	"fmt"

	"github.com/worklens/presence-backend-go/internal/domain/roster"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
)

type employeeDirectory struct {
	db *database.DB
}

// ListEmployees implements roster.Directory. The employees table is owned by
// the account service; this backend only reads it.
func (r *employeeDirectory) ListEmployees(ctx context.Context) ([]roster.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, full_name FROM employees ORDER BY full_name`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []roster.Employee
	for rows.Next() {
		var e roster.Employee
		if err := rows.Scan(&e.ID, &e.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

func NewEmployeeDirectory(db *database.DB) roster.Directory {
	return &employeeDirectory{db: db}
}
