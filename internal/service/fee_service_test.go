package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type fakeMoneyLedger struct {
	students *fakeStudentRepo
	receipts map[int64]*models.FeeReceipt
	nextNo   int64
}

func newFakeMoneyLedger(students *fakeStudentRepo) *fakeMoneyLedger {
	return &fakeMoneyLedger{students: students, receipts: map[int64]*models.FeeReceipt{}, nextNo: 1000}
}

func (f *fakeMoneyLedger) RecordStudentPayment(_ context.Context, receipt *models.FeeReceipt) error {
	st, ok := f.students.students[f.students.key(receipt.Tenant, receipt.RegistrationNo)]
	if !ok || st.FeesPaid+receipt.Amount > st.TotalFees {
		return repository.ErrBalanceExceeded
	}
	st.FeesPaid += receipt.Amount
	f.nextNo++
	receipt.ReceiptNo = f.nextNo
	r := *receipt
	f.receipts[r.ReceiptNo] = &r
	return nil
}

func (f *fakeMoneyLedger) ApplyReceiptEdit(_ context.Context, tenant string, receiptNo int64, amount float64, paymentMethod string, date time.Time) (*models.FeeReceipt, error) {
	receipt, ok := f.receipts[receiptNo]
	if !ok || receipt.Tenant != tenant {
		return nil, sql.ErrNoRows
	}
	delta := amount - receipt.Amount
	st, onRoster := f.students.students[f.students.key(tenant, receipt.RegistrationNo)]
	if onRoster && st.Class == receipt.Class {
		if st.FeesPaid+delta < 0 || st.FeesPaid+delta > st.TotalFees {
			return nil, repository.ErrBalanceExceeded
		}
		st.FeesPaid += delta
	}
	receipt.Amount = amount
	receipt.PaymentMethod = paymentMethod
	receipt.Date = date
	out := *receipt
	return &out, nil
}

type fakeFeeRepo struct {
	ledger *fakeMoneyLedger
}

func (f *fakeFeeRepo) FindByReceiptNo(_ context.Context, tenant string, receiptNo int64) (*models.FeeReceipt, error) {
	if r, ok := f.ledger.receipts[receiptNo]; ok && r.Tenant == tenant {
		out := *r
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFeeRepo) ListByRegistration(_ context.Context, tenant, reg string) ([]models.FeeReceipt, error) {
	var out []models.FeeReceipt
	for _, r := range f.ledger.receipts {
		if r.Tenant == tenant && r.RegistrationNo == reg {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeFeeRepo) ListByDate(_ context.Context, tenant string, day time.Time) ([]models.FeeReceipt, error) {
	var out []models.FeeReceipt
	for _, r := range f.ledger.receipts {
		if r.Tenant == tenant && r.Date.Equal(day) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func newTestFeeService() (*FeeService, *fakeStudentRepo, *fakeMoneyLedger) {
	students := newFakeStudentRepo()
	ledger := newFakeMoneyLedger(students)
	svc := NewFeeService(&fakeFeeRepo{ledger: ledger}, ledger, students, nil, nil)
	return svc, students, ledger
}

func TestFeeRecordPayment(t *testing.T) {
	svc, students, _ := newTestFeeService()
	seedStudent(students, "2024001", 10000, 4000)

	receipt, err := svc.RecordPayment(context.Background(), testTenant, models.PaymentRequest{
		RegistrationNo: "2024001", Amount: 3000, PaymentMethod: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), receipt.ReceiptNo)
	assert.Equal(t, "Asha Verma", receipt.StudentName)
	assert.Equal(t, 7000.0, students.students[students.key(testTenant, "2024001")].FeesPaid)
}

func TestFeeRecordPaymentOverDues(t *testing.T) {
	svc, students, _ := newTestFeeService()
	seedStudent(students, "2024001", 10000, 9000)

	_, err := svc.RecordPayment(context.Background(), testTenant, models.PaymentRequest{
		RegistrationNo: "2024001", Amount: 2000, PaymentMethod: "CASH",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrOverpayment.Code, appErr.Code)
	assert.Equal(t, 9000.0, students.students[students.key(testTenant, "2024001")].FeesPaid)
}

func TestFeeRecordPaymentUnknownStudent(t *testing.T) {
	svc, _, _ := newTestFeeService()

	_, err := svc.RecordPayment(context.Background(), testTenant, models.PaymentRequest{
		RegistrationNo: "9999", Amount: 100, PaymentMethod: "CASH",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeeEditReceiptAdjustsBalance(t *testing.T) {
	svc, students, _ := newTestFeeService()
	seedStudent(students, "2024001", 10000, 0)

	receipt, err := svc.RecordPayment(context.Background(), testTenant, models.PaymentRequest{
		RegistrationNo: "2024001", Amount: 3000, PaymentMethod: "CASH",
	})
	require.NoError(t, err)

	updated, err := svc.EditReceipt(context.Background(), testTenant, receipt.ReceiptNo, models.ReceiptEditRequest{
		Amount: 2500, PaymentMethod: "UPI",
	})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, updated.Amount)
	assert.Equal(t, receipt.ReceiptNo, updated.ReceiptNo)
	assert.Equal(t, 2500.0, students.students[students.key(testTenant, "2024001")].FeesPaid)
}

func TestFeeDaywiseTotals(t *testing.T) {
	svc, students, _ := newTestFeeService()
	seedStudent(students, "2024001", 20000, 0)

	day := time.Now().UTC().Truncate(24 * time.Hour).Format("2006-01-02")
	for _, amount := range []float64{3000, 2000} {
		_, err := svc.RecordPayment(context.Background(), testTenant, models.PaymentRequest{
			RegistrationNo: "2024001", Amount: amount, PaymentMethod: "CASH", Date: day,
		})
		require.NoError(t, err)
	}

	collection, err := svc.Daywise(context.Background(), testTenant, day)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, collection.Total)
	assert.Len(t, collection.Receipts, 2)
}
