package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyadesk/school-api/internal/models"
)

const studentColumns = `id, registration_no, student_name, father_name, mother_name, gender, dob, class, stream, medium, contact_no, address, total_fees, fees_paid, session, tenant, created_at, updated_at`

// StudentRepository provides database access for student records. Every
// query is scoped by tenant.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByRegistration returns one student by registration number.
func (r *StudentRepository) FindByRegistration(ctx context.Context, tenant, registrationNo string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE tenant = $1 AND registration_no = $2 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, tenant, registrationNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// List returns students matching the filter, ordered by registration number.
func (r *StudentRepository) List(ctx context.Context, tenant string, filter models.StudentFilter) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE tenant = $1`
	args := []interface{}{tenant}

	if filter.Class != "" {
		args = append(args, filter.Class)
		query += fmt.Sprintf(" AND class = $%d", len(args))
	}
	if filter.Medium != "" {
		args = append(args, filter.Medium)
		query += fmt.Sprintf(" AND medium = $%d", len(args))
	}
	if filter.Stream != "" {
		args = append(args, filter.Stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
		query += fmt.Sprintf(" AND (student_name ILIKE $%d OR registration_no ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY registration_no"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Overview returns headcounts grouped by medium, class and stream.
func (r *StudentRepository) Overview(ctx context.Context, tenant string) ([]models.ClassOverview, error) {
	const query = `SELECT medium, class, stream, COUNT(*) AS count FROM students
		WHERE tenant = $1 AND class <> 'Passout'
		GROUP BY medium, class, stream
		ORDER BY medium, class, stream`
	var rows []models.ClassOverview
	if err := r.db.SelectContext(ctx, &rows, query, tenant); err != nil {
		return nil, fmt.Errorf("class overview: %w", err)
	}
	return rows, nil
}

// Update replaces the editable profile fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET student_name = $3, father_name = $4, mother_name = $5, gender = $6,
		dob = $7, class = $8, stream = $9, medium = $10, contact_no = $11, address = $12,
		total_fees = $13, session = $14, updated_at = $15
		WHERE tenant = $1 AND registration_no = $2`
	student.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		student.Tenant, student.RegistrationNo, student.Name, student.FatherName, student.MotherName,
		student.Gender, student.DOB, student.Class, student.Stream, student.Medium,
		student.ContactNo, student.Address, student.TotalFees, student.Session, student.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one student.
func (r *StudentRepository) Delete(ctx context.Context, tenant, registrationNo string) error {
	const query = `DELETE FROM students WHERE tenant = $1 AND registration_no = $2`
	res, err := r.db.ExecContext(ctx, query, tenant, registrationNo)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMany removes a batch of students and returns the number deleted.
func (r *StudentRepository) DeleteMany(ctx context.Context, tenant string, registrationNos []string) (int64, error) {
	if len(registrationNos) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM students WHERE tenant = ? AND registration_no IN (?)`, tenant, registrationNos)
	if err != nil {
		return 0, fmt.Errorf("build bulk delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete students: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ExistingRegistrations returns which of the given registration numbers are
// already taken within the tenant.
func (r *StudentRepository) ExistingRegistrations(ctx context.Context, tenant string, registrationNos []string) ([]string, error) {
	if len(registrationNos) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT registration_no FROM students WHERE tenant = ? AND registration_no IN (?)`, tenant, registrationNos)
	if err != nil {
		return nil, fmt.Errorf("build registration lookup: %w", err)
	}
	var existing []string
	if err := r.db.SelectContext(ctx, &existing, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup registrations: %w", err)
	}
	return existing, nil
}

// SetClassFees raises the fee structure for a whole cohort at once.
func (r *StudentRepository) SetClassFees(ctx context.Context, tenant, class, medium, stream string, totalFees float64) (int64, error) {
	query := `UPDATE students SET total_fees = $2, updated_at = $3 WHERE tenant = $1 AND class = $4 AND medium = $5`
	args := []interface{}{tenant, totalFees, time.Now().UTC(), class, medium}
	if stream != "" {
		args = append(args, stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("set class fees: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// InsertMany inserts a batch of students inside one transaction. The whole
// batch is rejected if any row fails.
func (r *StudentRepository) InsertMany(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		students[i].CreatedAt = now
		students[i].UpdatedAt = now
		if err := insertStudentTx(ctx, tx, &students[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func insertStudentTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	const query = `INSERT INTO students (id, registration_no, student_name, father_name, mother_name, gender, dob, class, stream, medium, contact_no, address, total_fees, fees_paid, session, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := tx.ExecContext(ctx, query,
		student.ID, student.RegistrationNo, student.Name, student.FatherName, student.MotherName,
		student.Gender, student.DOB, student.Class, student.Stream, student.Medium,
		student.ContactNo, student.Address, student.TotalFees, student.FeesPaid, student.Session,
		student.Tenant, student.CreatedAt, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert student %s: %w", student.RegistrationNo, err)
	}
	return nil
}
