package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vidyadesk/school-api/internal/models"
)

const receiptColumns = `id, receipt_no, registration_no, student_name, class, amount, date, payment_method, tenant, created_at`

// FeeRepository provides read access to issued receipts. Receipt issuance and
// corrections run through LedgerRepository.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository creates a new instance of FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// FindByReceiptNo returns one receipt by its tenant-scoped number.
func (r *FeeRepository) FindByReceiptNo(ctx context.Context, tenant string, receiptNo int64) (*models.FeeReceipt, error) {
	const query = `SELECT ` + receiptColumns + ` FROM fee_receipts WHERE tenant = $1 AND receipt_no = $2 LIMIT 1`
	var receipt models.FeeReceipt
	if err := r.db.GetContext(ctx, &receipt, query, tenant, receiptNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find receipt: %w", err)
	}
	return &receipt, nil
}

// ListByRegistration returns a student's receipts, newest first.
func (r *FeeRepository) ListByRegistration(ctx context.Context, tenant, registrationNo string) ([]models.FeeReceipt, error) {
	const query = `SELECT ` + receiptColumns + ` FROM fee_receipts
		WHERE tenant = $1 AND registration_no = $2 ORDER BY receipt_no DESC`
	var receipts []models.FeeReceipt
	if err := r.db.SelectContext(ctx, &receipts, query, tenant, registrationNo); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}

// ListByDate returns all receipts issued on one calendar day.
func (r *FeeRepository) ListByDate(ctx context.Context, tenant string, day time.Time) ([]models.FeeReceipt, error) {
	const query = `SELECT ` + receiptColumns + ` FROM fee_receipts
		WHERE tenant = $1 AND date = $2 ORDER BY receipt_no`
	var receipts []models.FeeReceipt
	if err := r.db.SelectContext(ctx, &receipts, query, tenant, day); err != nil {
		return nil, fmt.Errorf("list receipts by date: %w", err)
	}
	return receipts, nil
}
