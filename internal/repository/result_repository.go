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

const resultColumns = `id, registration_no, student_name, father_name, class, stream, medium, session, exam_type, subjects, result_date, tenant, created_at, updated_at`

// ResultRepository provides database access for exam results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new instance of ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// InsertMany stores a cohort's results in one transaction. A duplicate
// (registration, class, session, exam type) fails the whole batch.
func (r *ResultRepository) InsertMany(ctx context.Context, results []models.Result) error {
	if len(results) == 0 {
		return nil
	}
	const query = `INSERT INTO results (id, registration_no, student_name, father_name, class, stream, medium, session, exam_type, subjects, result_date, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		results[i].CreatedAt = now
		results[i].UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query,
			results[i].ID, results[i].RegistrationNo, results[i].StudentName, results[i].FatherName,
			results[i].Class, results[i].Stream, results[i].Medium, results[i].Session,
			results[i].ExamType, results[i].Subjects, results[i].ResultDate, results[i].Tenant,
			now, now,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", results[i].RegistrationNo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result insert: %w", err)
	}
	return nil
}

// Find returns one result by its natural key.
func (r *ResultRepository) Find(ctx context.Context, tenant, registrationNo, class, session, examType string) (*models.Result, error) {
	const query = `SELECT ` + resultColumns + ` FROM results
		WHERE tenant = $1 AND registration_no = $2 AND class = $3 AND session = $4 AND exam_type = $5 LIMIT 1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, tenant, registrationNo, class, session, examType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find result: %w", err)
	}
	return &result, nil
}

// ListByCohort returns all results recorded for one class sitting.
func (r *ResultRepository) ListByCohort(ctx context.Context, tenant, class, medium, stream, session, examType string) ([]models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results
		WHERE tenant = $1 AND class = $2 AND medium = $3 AND session = $4 AND exam_type = $5`
	args := []interface{}{tenant, class, medium, session, examType}
	if stream != "" {
		args = append(args, stream)
		query += fmt.Sprintf(" AND stream = $%d", len(args))
	}
	query += " ORDER BY registration_no"

	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list cohort results: %w", err)
	}
	return results, nil
}

// UpdateSubjects replaces the subject scores of an existing result.
func (r *ResultRepository) UpdateSubjects(ctx context.Context, tenant, registrationNo, class, session, examType string, subjects models.SubjectList) error {
	const query = `UPDATE results SET subjects = $6, updated_at = $7
		WHERE tenant = $1 AND registration_no = $2 AND class = $3 AND session = $4 AND exam_type = $5`
	res, err := r.db.ExecContext(ctx, query, tenant, registrationNo, class, session, examType, subjects, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update result subjects: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
