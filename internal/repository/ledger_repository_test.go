package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
)

func TestLedgerRecordStudentPayment(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET fees_paid").
		WithArgs("Green Valley School", "2024001", 2500.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO fee_counters").
		WithArgs("Green Valley School").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(1001)))
	mock.ExpectExec("INSERT INTO fee_receipts").
		WithArgs(sqlmock.AnyArg(), int64(1001), "2024001", "Asha Verma", "10", 2500.0, sqlmock.AnyArg(), "CASH", "Green Valley School", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	receipt := &models.FeeReceipt{
		RegistrationNo: "2024001",
		StudentName:    "Asha Verma",
		Class:          "10",
		Amount:         2500,
		Date:           time.Now(),
		PaymentMethod:  "CASH",
		Tenant:         "Green Valley School",
	}
	err := repo.RecordStudentPayment(context.Background(), receipt)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), receipt.ReceiptNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRecordStudentPaymentOverBalance(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET fees_paid").
		WithArgs("Green Valley School", "2024001", 99999.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	receipt := &models.FeeReceipt{
		RegistrationNo: "2024001",
		Class:          "10",
		Amount:         99999,
		Date:           time.Now(),
		PaymentMethod:  "CASH",
		Tenant:         "Green Valley School",
	}
	err := repo.RecordStudentPayment(context.Background(), receipt)
	assert.ErrorIs(t, err, ErrBalanceExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerPromoteStudentAdvances(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session_histories").
		WithArgs(sqlmock.AnyArg(), "2024001", "Asha Verma", "R Verma", "10", "", "English", "2024-25", "Final", "11", "A", 82.5, 12000.0, 12000.0, "Green Valley School", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET class").
		WithArgs("Green Valley School", "2024001", "11", "2025-26", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	history := &models.SessionHistory{
		RegistrationNo: "2024001",
		StudentName:    "Asha Verma",
		FatherName:     "R Verma",
		Class:          "10",
		Medium:         "English",
		Session:        "2024-25",
		ExamType:       "Final",
		PromotedTo:     "11",
		Grade:          "A",
		Percentage:     82.5,
		TotalFees:      12000,
		FeesPaid:       12000,
		Tenant:         "Green Valley School",
	}
	err := repo.PromoteStudent(context.Background(), history, true, "11", "2025-26")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerPromoteStudentHeldBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session_histories").
		WithArgs(sqlmock.AnyArg(), "2024002", "Ravi Kumar", "M Kumar", "9", "", "Hindi", "2024-25", "Final", "9", "F", 21.0, 10000.0, 4000.0, "Green Valley School", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	history := &models.SessionHistory{
		RegistrationNo: "2024002",
		StudentName:    "Ravi Kumar",
		FatherName:     "M Kumar",
		Class:          "9",
		Medium:         "Hindi",
		Session:        "2024-25",
		ExamType:       "Final",
		PromotedTo:     "9",
		Grade:          "F",
		Percentage:     21,
		TotalFees:      10000,
		FeesPaid:       4000,
		Tenant:         "Green Valley School",
	}
	err := repo.PromoteStudent(context.Background(), history, false, "", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyReceiptEditRoutesToStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	now := time.Now()
	receiptRows := sqlmock.NewRows([]string{"id", "receipt_no", "registration_no", "student_name", "class", "amount", "date", "payment_method", "tenant", "created_at"}).
		AddRow("rc-1", int64(1005), "2024001", "Asha Verma", "10", 2000.0, now, "CASH", "Green Valley School", now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM fee_receipts WHERE tenant (.+) FOR UPDATE").
		WithArgs("Green Valley School", int64(1005)).
		WillReturnRows(receiptRows)
	mock.ExpectQuery("SELECT class FROM students").
		WithArgs("Green Valley School", "2024001").
		WillReturnRows(sqlmock.NewRows([]string{"class"}).AddRow("10"))
	mock.ExpectExec("UPDATE students SET fees_paid").
		WithArgs("Green Valley School", "2024001", 500.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fee_receipts SET amount").
		WithArgs("Green Valley School", int64(1005), 2500.0, "UPI", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.ApplyReceiptEdit(context.Background(), "Green Valley School", 1005, 2500, "UPI", now)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, updated.Amount)
	assert.Equal(t, "UPI", updated.PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyReceiptEditRoutesToArchive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	now := time.Now()
	receiptRows := sqlmock.NewRows([]string{"id", "receipt_no", "registration_no", "student_name", "class", "amount", "date", "payment_method", "tenant", "created_at"}).
		AddRow("rc-2", int64(1010), "2023050", "Asha Verma", "9", 3000.0, now, "CASH", "Green Valley School", now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM fee_receipts WHERE tenant (.+) FOR UPDATE").
		WithArgs("Green Valley School", int64(1010)).
		WillReturnRows(receiptRows)
	mock.ExpectQuery("SELECT class FROM students").
		WithArgs("Green Valley School", "2023050").
		WillReturnRows(sqlmock.NewRows([]string{"class"}).AddRow("10"))
	mock.ExpectExec("UPDATE session_histories SET fees_paid").
		WithArgs("Green Valley School", "2023050", "9", -500.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fee_receipts SET amount").
		WithArgs("Green Valley School", int64(1010), 2500.0, "CASH", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.ApplyReceiptEdit(context.Background(), "Green Valley School", 1010, 2500, "CASH", now)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, updated.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
