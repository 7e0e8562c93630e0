package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyadesk/school-api/internal/models"
)

const staffColumns = `id, emp_id, staff_name, job_title, email, contact_no, gender, subject, class, medium, salary, tenant, created_at, updated_at`

// StaffRepository provides database access for employee records.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create inserts an employee. emp_id is unique per tenant.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	const query = `INSERT INTO staff (id, emp_id, staff_name, job_title, email, contact_no, gender, subject, class, medium, salary, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query,
		staff.ID, staff.EmpID, staff.Name, staff.JobTitle, staff.Email, staff.ContactNo,
		staff.Gender, staff.Subject, staff.Class, staff.Medium, staff.Salary, staff.Tenant, now, now,
	); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// FindByEmpID returns one employee by employee id.
func (r *StaffRepository) FindByEmpID(ctx context.Context, tenant, empID string) (*models.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE tenant = $1 AND emp_id = $2 LIMIT 1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, tenant, empID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return &staff, nil
}

// List returns employees, optionally filtered by job title.
func (r *StaffRepository) List(ctx context.Context, tenant, jobTitle string) ([]models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE tenant = $1`
	args := []interface{}{tenant}
	if jobTitle != "" {
		args = append(args, jobTitle)
		query += fmt.Sprintf(" AND job_title = $%d", len(args))
	}
	query += " ORDER BY staff_name"

	var list []models.Staff
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return list, nil
}

// Delete removes one employee.
func (r *StaffRepository) Delete(ctx context.Context, tenant, empID string) error {
	const query = `DELETE FROM staff WHERE tenant = $1 AND emp_id = $2`
	res, err := r.db.ExecContext(ctx, query, tenant, empID)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Payroll aggregates headcount and salary totals by job title.
func (r *StaffRepository) Payroll(ctx context.Context, tenant string) ([]models.PayrollSummary, error) {
	const query = `SELECT job_title, COUNT(*) AS headcount, COALESCE(SUM(salary), 0) AS total_salary
		FROM staff WHERE tenant = $1 GROUP BY job_title ORDER BY job_title`
	var rows []models.PayrollSummary
	if err := r.db.SelectContext(ctx, &rows, query, tenant); err != nil {
		return nil, fmt.Errorf("payroll summary: %w", err)
	}
	return rows, nil
}
