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

const attendanceColumns = `id, date, class, medium, stream, records, taken_by, tenant, created_at, updated_at`
const staffAttendanceColumns = `id, date, job_title, records, taken_by, tenant, created_at, updated_at`

// AttendanceRepository provides database access for class and staff day
// sheets. Uniqueness per sheet key is enforced by the table constraints.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a class sheet. A second sheet for the same
// (date, class, medium, stream) fails on the unique key.
func (r *AttendanceRepository) Create(ctx context.Context, att *models.Attendance) error {
	const query = `INSERT INTO attendances (id, date, class, medium, stream, records, taken_by, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	att.CreatedAt = now
	att.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query,
		att.ID, att.Date, att.Class, att.Medium, att.Stream, att.Records, att.TakenBy, att.Tenant, now, now,
	); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Find returns the class sheet for one day, if taken.
func (r *AttendanceRepository) Find(ctx context.Context, tenant string, date time.Time, class, medium, stream string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances
		WHERE tenant = $1 AND date = $2 AND class = $3 AND medium = $4`
	args := []interface{}{tenant, date, class, medium}
	if stream != "" {
		args = append(args, stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	query += " LIMIT 1"

	var att models.Attendance
	if err := r.db.GetContext(ctx, &att, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &att, nil
}

// UpdateRecords replaces the marks of an existing sheet.
func (r *AttendanceRepository) UpdateRecords(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error {
	const query = `UPDATE attendances SET records = $3, updated_at = $4 WHERE tenant = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, tenant, id, records, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Range returns a cohort's sheets over a date span, oldest first.
func (r *AttendanceRepository) Range(ctx context.Context, tenant string, from, to time.Time, class, medium, stream string) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances
		WHERE tenant = $1 AND date BETWEEN $2 AND $3 AND class = $4 AND medium = $5`
	args := []interface{}{tenant, from, to, class, medium}
	if stream != "" {
		args = append(args, stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	query += " ORDER BY date"

	var sheets []models.Attendance
	if err := r.db.SelectContext(ctx, &sheets, query, args...); err != nil {
		return nil, fmt.Errorf("attendance range: %w", err)
	}
	return sheets, nil
}

// DeleteByClass drops every sheet of one cohort and returns the count.
func (r *AttendanceRepository) DeleteByClass(ctx context.Context, tenant, class, medium, stream string) (int64, error) {
	query := `DELETE FROM attendances WHERE tenant = $1 AND class = $2 AND medium = $3`
	args := []interface{}{tenant, class, medium}
	if stream != "" {
		args = append(args, stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete attendance sheets: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CreateStaff inserts a staff sheet. One sheet per (date, job title).
func (r *AttendanceRepository) CreateStaff(ctx context.Context, att *models.StaffAttendance) error {
	const query = `INSERT INTO staff_attendances (id, date, job_title, records, taken_by, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	att.CreatedAt = now
	att.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query,
		att.ID, att.Date, att.JobTitle, att.Records, att.TakenBy, att.Tenant, now, now,
	); err != nil {
		return fmt.Errorf("create staff attendance: %w", err)
	}
	return nil
}

// FindStaff returns the staff sheet for one day and job title.
func (r *AttendanceRepository) FindStaff(ctx context.Context, tenant string, date time.Time, jobTitle string) (*models.StaffAttendance, error) {
	const query = `SELECT ` + staffAttendanceColumns + ` FROM staff_attendances
		WHERE tenant = $1 AND date = $2 AND job_title = $3 LIMIT 1`
	var att models.StaffAttendance
	if err := r.db.GetContext(ctx, &att, query, tenant, date, jobTitle); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff attendance: %w", err)
	}
	return &att, nil
}

// UpdateStaffRecords replaces the marks of an existing staff sheet.
func (r *AttendanceRepository) UpdateStaffRecords(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error {
	const query = `UPDATE staff_attendances SET records = $3, updated_at = $4 WHERE tenant = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, tenant, id, records, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update staff attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StaffRange returns staff sheets for one job title over a date span.
func (r *AttendanceRepository) StaffRange(ctx context.Context, tenant string, from, to time.Time, jobTitle string) ([]models.StaffAttendance, error) {
	const query = `SELECT ` + staffAttendanceColumns + ` FROM staff_attendances
		WHERE tenant = $1 AND date BETWEEN $2 AND $3 AND job_title = $4 ORDER BY date`
	var sheets []models.StaffAttendance
	if err := r.db.SelectContext(ctx, &sheets, query, tenant, from, to, jobTitle); err != nil {
		return nil, fmt.Errorf("staff attendance range: %w", err)
	}
	return sheets, nil
}

// DeleteStaffByJobTitle drops every staff sheet of one job title.
func (r *AttendanceRepository) DeleteStaffByJobTitle(ctx context.Context, tenant, jobTitle string) (int64, error) {
	const query = `DELETE FROM staff_attendances WHERE tenant = $1 AND job_title = $2`
	res, err := r.db.ExecContext(ctx, query, tenant, jobTitle)
	if err != nil {
		return 0, fmt.Errorf("delete staff attendance sheets: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
