package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vidyadesk/school-api/internal/models"
)

const historyColumns = `id, registration_no, student_name, father_name, class, stream, medium, session, exam_type, promoted_to, grade, percentage, total_fees, fees_paid, tenant, created_at, updated_at`

// SessionHistoryRepository provides read access to archived session records.
// Writes happen through LedgerRepository so they stay transactional with the
// student and receipt tables.
type SessionHistoryRepository struct {
	db *sqlx.DB
}

// NewSessionHistoryRepository creates a new instance of SessionHistoryRepository.
func NewSessionHistoryRepository(db *sqlx.DB) *SessionHistoryRepository {
	return &SessionHistoryRepository{db: db}
}

// Find returns one archived record by its natural key.
func (r *SessionHistoryRepository) Find(ctx context.Context, tenant, registrationNo, session, class string) (*models.SessionHistory, error) {
	const query = `SELECT ` + historyColumns + ` FROM session_histories
		WHERE tenant = $1 AND registration_no = $2 AND session = $3 AND class = $4 LIMIT 1`
	var history models.SessionHistory
	if err := r.db.GetContext(ctx, &history, query, tenant, registrationNo, session, class); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session history: %w", err)
	}
	return &history, nil
}

// FindTerminal returns the archived terminal-exam record for a sitting, used
// to check settled dues before releasing a marksheet.
func (r *SessionHistoryRepository) FindTerminal(ctx context.Context, tenant, registrationNo, session, class, examType string) (*models.SessionHistory, error) {
	const query = `SELECT ` + historyColumns + ` FROM session_histories
		WHERE tenant = $1 AND registration_no = $2 AND session = $3 AND class = $4 AND exam_type = $5 LIMIT 1`
	var history models.SessionHistory
	if err := r.db.GetContext(ctx, &history, query, tenant, registrationNo, session, class, examType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find terminal history: %w", err)
	}
	return &history, nil
}

// UpdateRecord amends the fee structure and outcome fields of an archived
// record. Nil fields keep their stored value. The total fees may not drop
// below what was already paid against the record; such an update matches no
// row and surfaces as sql.ErrNoRows.
func (r *SessionHistoryRepository) UpdateRecord(ctx context.Context, tenant, registrationNo, session, class string, edit models.HistoryEditRequest) (*models.SessionHistory, error) {
	const query = `UPDATE session_histories SET
			total_fees = COALESCE($5, total_fees),
			promoted_to = COALESCE($6, promoted_to),
			grade = COALESCE($7, grade),
			percentage = COALESCE($8, percentage),
			updated_at = NOW()
		WHERE tenant = $1 AND registration_no = $2 AND session = $3 AND class = $4
			AND COALESCE($5, total_fees) >= fees_paid
		RETURNING ` + historyColumns
	var history models.SessionHistory
	err := r.db.GetContext(ctx, &history, query,
		tenant, registrationNo, session, class,
		edit.TotalFees, edit.PromotedTo, edit.Grade, edit.Percentage)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update session history: %w", err)
	}
	return &history, nil
}

// List returns archived records matching the filter.
func (r *SessionHistoryRepository) List(ctx context.Context, tenant string, filter models.SessionHistoryFilter) ([]models.SessionHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM session_histories WHERE tenant = $1`
	args := []interface{}{tenant}

	if filter.Session != "" {
		args = append(args, filter.Session)
		query += fmt.Sprintf(" AND session = $%d", len(args))
	}
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
	query += " ORDER BY session DESC, registration_no"

	var histories []models.SessionHistory
	if err := r.db.SelectContext(ctx, &histories, query, args...); err != nil {
		return nil, fmt.Errorf("list session histories: %w", err)
	}
	return histories, nil
}
