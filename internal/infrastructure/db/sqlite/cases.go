package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

const caseColumns = `id, title, description, status, priority, user_id,
	created_at, updated_at, due_date, resolution_summary, is_deleted`

// CaseRepository implements ports.CaseRepository on the cases table.
// Soft-deleted rows are invisible to every method.
type CaseRepository struct {
	db *sql.DB
}

func (r *CaseRepository) Create(ctx context.Context, c *domain.Case) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cases (title, description, status, priority, user_id,
		                    created_at, updated_at, due_date, resolution_summary, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title,
		mapOptionalString(c.Description),
		string(c.Status),
		string(c.Priority),
		c.UserID,
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
		mapOptionalTime(c.DueDate),
		mapOptionalString(c.ResolutionSummary),
		c.IsDeleted,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner does not exist", domain.ErrInvalidInput)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *CaseRepository) FindByID(ctx context.Context, id int64) (*domain.Case, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = ? AND is_deleted = 0`, id)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCaseNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CaseRepository) List(ctx context.Context, filter ports.ListCasesFilter) ([]*domain.Case, error) {
	where := []string{"is_deleted = 0"}
	var args []any
	if filter.OwnerID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(filter.Priority))
	}

	query := `SELECT ` + caseColumns + ` FROM cases WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cases := []*domain.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (r *CaseRepository) Update(ctx context.Context, c *domain.Case) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases
		    SET title = ?, description = ?, status = ?, priority = ?,
		        due_date = ?, resolution_summary = ?, updated_at = ?
		  WHERE id = ? AND is_deleted = 0`,
		c.Title,
		mapOptionalString(c.Description),
		string(c.Status),
		string(c.Priority),
		mapOptionalTime(c.DueDate),
		mapOptionalString(c.ResolutionSummary),
		c.UpdatedAt.UTC(),
		c.ID,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOr(res, domain.ErrCaseNotFound)
}

func (r *CaseRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		at.UTC(), id,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOr(res, domain.ErrCaseNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*domain.Case, error) {
	var (
		c                 domain.Case
		status, priority  string
		description       sql.NullString
		resolutionSummary sql.NullString
		dueDate           sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Title, &description, &status, &priority, &c.UserID,
		&c.CreatedAt, &c.UpdatedAt, &dueDate, &resolutionSummary, &c.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CaseStatus(status)
	c.Priority = domain.CasePriority(priority)
	c.Description = mapNullStringPtr(description)
	c.ResolutionSummary = mapNullStringPtr(resolutionSummary)
	c.DueDate = mapNullTimePtr(dueDate)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
