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

const timetableColumns = `id, class, medium, exam_type, exams, tenant, created_at, updated_at`

// TimetableRepository provides database access for published exam schedules.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new instance of TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Upsert publishes a timetable, replacing any earlier schedule for the same
// (class, medium, exam type) in place.
func (r *TimetableRepository) Upsert(ctx context.Context, tt *models.ExamTimetable) error {
	const query = `INSERT INTO exam_timetables (id, class, medium, exam_type, exams, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant, class, medium, exam_type)
		DO UPDATE SET exams = EXCLUDED.exams, updated_at = EXCLUDED.updated_at`
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tt.CreatedAt = now
	tt.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query,
		tt.ID, tt.Class, tt.Medium, tt.ExamType, tt.Exams, tt.Tenant, now, now,
	); err != nil {
		return fmt.Errorf("upsert timetable: %w", err)
	}
	return nil
}

// Find returns the published schedule for one (class, medium, exam type).
func (r *TimetableRepository) Find(ctx context.Context, tenant, class, medium, examType string) (*models.ExamTimetable, error) {
	const query = `SELECT ` + timetableColumns + ` FROM exam_timetables
		WHERE tenant = $1 AND class = $2 AND medium = $3 AND exam_type = $4 LIMIT 1`
	var tt models.ExamTimetable
	if err := r.db.GetContext(ctx, &tt, query, tenant, class, medium, examType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable: %w", err)
	}
	return &tt, nil
}
