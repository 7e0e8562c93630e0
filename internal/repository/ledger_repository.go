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

// LedgerRepository runs the multi-table money and promotion flows. Each
// public method is one transaction, so a registration, payment or promotion
// either lands completely or not at all.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new instance of LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// nextReceiptNoTx claims the next receipt number for a tenant. The counter is
// seeded at 1001 and advanced atomically, so concurrent payments never share
// a number.
func nextReceiptNoTx(ctx context.Context, tx *sqlx.Tx, tenant string) (int64, error) {
	const query = `INSERT INTO fee_counters (tenant, value) VALUES ($1, 1001)
		ON CONFLICT (tenant) DO UPDATE SET value = fee_counters.value + 1
		RETURNING value`
	var value int64
	if err := tx.GetContext(ctx, &value, query, tenant); err != nil {
		return 0, fmt.Errorf("next receipt number: %w", err)
	}
	return value, nil
}

func insertReceiptTx(ctx context.Context, tx *sqlx.Tx, receipt *models.FeeReceipt) error {
	const query = `INSERT INTO fee_receipts (id, receipt_no, registration_no, student_name, class, amount, date, payment_method, tenant, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	no, err := nextReceiptNoTx(ctx, tx, receipt.Tenant)
	if err != nil {
		return err
	}
	receipt.ReceiptNo = no
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	receipt.CreatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, query,
		receipt.ID, receipt.ReceiptNo, receipt.RegistrationNo, receipt.StudentName,
		receipt.Class, receipt.Amount, receipt.Date, receipt.PaymentMethod,
		receipt.Tenant, receipt.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// RegisterStudent enrolls a student and, when an admission amount was paid,
// issues the first receipt in the same transaction.
func (r *LedgerRepository) RegisterStudent(ctx context.Context, student *models.Student, receipt *models.FeeReceipt) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if err := insertStudentTx(ctx, tx, student); err != nil {
		return err
	}
	if receipt != nil {
		if err := insertReceiptTx(ctx, tx, receipt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// RecordStudentPayment applies a payment against a student's balance and
// issues the receipt. The guarded update rejects any amount that would push
// fees_paid past total_fees, even under concurrent payments.
func (r *LedgerRepository) RecordStudentPayment(ctx context.Context, receipt *models.FeeReceipt) error {
	const query = `UPDATE students SET fees_paid = fees_paid + $3, updated_at = $4
		WHERE tenant = $1 AND registration_no = $2 AND fees_paid + $3 <= total_fees`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, receipt.Tenant, receipt.RegistrationNo, receipt.Amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBalanceExceeded
	}
	if err := insertReceiptTx(ctx, tx, receipt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment: %w", err)
	}
	return nil
}

// RecordHistoryPayment settles dues against an archived session record and
// issues the receipt, under the same balance guard.
func (r *LedgerRepository) RecordHistoryPayment(ctx context.Context, session string, receipt *models.FeeReceipt) error {
	const query = `UPDATE session_histories SET fees_paid = fees_paid + $4, updated_at = $5
		WHERE tenant = $1 AND registration_no = $2 AND session = $3 AND class = $6 AND fees_paid + $4 <= total_fees`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history payment: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, receipt.Tenant, receipt.RegistrationNo, session, receipt.Amount, time.Now().UTC(), receipt.Class)
	if err != nil {
		return fmt.Errorf("apply history payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBalanceExceeded
	}
	if err := insertReceiptTx(ctx, tx, receipt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history payment: %w", err)
	}
	return nil
}

// ApplyReceiptEdit corrects an issued receipt. The amount delta flows back to
// whichever balance the receipt settled: the student row when the student is
// still in the receipt's class, otherwise the archived session record.
func (r *LedgerRepository) ApplyReceiptEdit(ctx context.Context, tenant string, receiptNo int64, amount float64, paymentMethod string, date time.Time) (*models.FeeReceipt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin receipt edit: %w", err)
	}
	defer tx.Rollback()

	var receipt models.FeeReceipt
	const lockReceipt = `SELECT ` + receiptColumns + ` FROM fee_receipts WHERE tenant = $1 AND receipt_no = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &receipt, lockReceipt, tenant, receiptNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock receipt: %w", err)
	}

	delta := amount - receipt.Amount
	if delta != 0 {
		var currentClass string
		const studentClass = `SELECT class FROM students WHERE tenant = $1 AND registration_no = $2 LIMIT 1`
		err := tx.GetContext(ctx, &currentClass, studentClass, tenant, receipt.RegistrationNo)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("lookup student class: %w", err)
		}

		if err == nil && currentClass == receipt.Class {
			const query = `UPDATE students SET fees_paid = fees_paid + $3, updated_at = $4
				WHERE tenant = $1 AND registration_no = $2 AND fees_paid + $3 BETWEEN 0 AND total_fees`
			res, err := tx.ExecContext(ctx, query, tenant, receipt.RegistrationNo, delta, time.Now().UTC())
			if err != nil {
				return nil, fmt.Errorf("adjust student balance: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil, ErrBalanceExceeded
			}
		} else {
			const query = `UPDATE session_histories SET fees_paid = fees_paid + $4, updated_at = $5
				WHERE tenant = $1 AND registration_no = $2 AND class = $3 AND fees_paid + $4 BETWEEN 0 AND total_fees`
			res, err := tx.ExecContext(ctx, query, tenant, receipt.RegistrationNo, receipt.Class, delta, time.Now().UTC())
			if err != nil {
				return nil, fmt.Errorf("adjust archived balance: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil, ErrBalanceExceeded
			}
		}
	}

	const update = `UPDATE fee_receipts SET amount = $3, payment_method = $4, date = $5 WHERE tenant = $1 AND receipt_no = $2`
	if _, err := tx.ExecContext(ctx, update, tenant, receiptNo, amount, paymentMethod, date); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receipt edit: %w", err)
	}

	receipt.Amount = amount
	receipt.PaymentMethod = paymentMethod
	receipt.Date = date
	return &receipt, nil
}

// PromoteStudent archives the session outcome and, when the student passed,
// advances class and session and opens a fresh fee cycle. The archive insert
// and the student update commit together. A repeated promotion for the same
// sitting hits the archive's unique key and rolls back untouched.
func (r *LedgerRepository) PromoteStudent(ctx context.Context, history *models.SessionHistory, advance bool, nextClass, nextSession string) error {
	const insert = `INSERT INTO session_histories (id, registration_no, student_name, father_name, class, stream, medium, session, exam_type, promoted_to, grade, percentage, total_fees, fees_paid, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promotion: %w", err)
	}
	defer tx.Rollback()

	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	history.CreatedAt = now
	history.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, insert,
		history.ID, history.RegistrationNo, history.StudentName, history.FatherName,
		history.Class, history.Stream, history.Medium, history.Session, history.ExamType,
		history.PromotedTo, history.Grade, history.Percentage,
		history.TotalFees, history.FeesPaid, history.Tenant, now, now,
	); err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	if advance {
		const update = `UPDATE students SET class = $3, session = $4, total_fees = 0, fees_paid = 0, updated_at = $5
			WHERE tenant = $1 AND registration_no = $2`
		res, err := tx.ExecContext(ctx, update, history.Tenant, history.RegistrationNo, nextClass, nextSession, now)
		if err != nil {
			return fmt.Errorf("advance student: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion: %w", err)
	}
	return nil
}
