package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type feeRepository interface {
	FindByReceiptNo(ctx context.Context, tenant string, receiptNo int64) (*models.FeeReceipt, error)
	ListByRegistration(ctx context.Context, tenant, registrationNo string) ([]models.FeeReceipt, error)
	ListByDate(ctx context.Context, tenant string, day time.Time) ([]models.FeeReceipt, error)
}

type feeLedger interface {
	RecordStudentPayment(ctx context.Context, receipt *models.FeeReceipt) error
	ApplyReceiptEdit(ctx context.Context, tenant string, receiptNo int64, amount float64, paymentMethod string, date time.Time) (*models.FeeReceipt, error)
}

// FeeService records payments and manages issued receipts.
type FeeService struct {
	repo      feeRepository
	ledger    feeLedger
	students  resultStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs a FeeService instance.
func NewFeeService(repo feeRepository, ledger feeLedger, students resultStudentReader, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeService{repo: repo, ledger: ledger, students: students, validator: validate, logger: logger}
}

// RecordPayment applies a payment to a student's balance and issues the next
// receipt. Anything beyond the outstanding dues is rejected whole.
func (s *FeeService) RecordPayment(ctx context.Context, tenant string, req models.PaymentRequest) (*models.FeeReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	student, err := s.students.FindByRegistration(ctx, tenant, req.RegistrationNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	day, err := paymentDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	receipt := &models.FeeReceipt{
		RegistrationNo: student.RegistrationNo,
		StudentName:    student.Name,
		Class:          student.Class,
		Amount:         req.Amount,
		Date:           day,
		PaymentMethod:  req.PaymentMethod,
		Tenant:         tenant,
	}
	if err := s.ledger.RecordStudentPayment(ctx, receipt); err != nil {
		if errors.Is(err, repository.ErrBalanceExceeded) {
			return nil, appErrors.WithDetails(appErrors.ErrOverpayment,
				"payment exceeds the outstanding dues",
				map[string]float64{"dues": student.Dues()})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("tenant", tenant),
		zap.String("registration_no", receipt.RegistrationNo),
		zap.Int64("receipt_no", receipt.ReceiptNo),
		zap.Float64("amount", receipt.Amount))
	return receipt, nil
}

// GetReceipt returns one receipt by number.
func (s *FeeService) GetReceipt(ctx context.Context, tenant string, receiptNo int64) (*models.FeeReceipt, error) {
	receipt, err := s.repo.FindByReceiptNo(ctx, tenant, receiptNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch receipt")
	}
	return receipt, nil
}

// EditReceipt corrects an issued receipt. The amount delta is pushed back to
// the balance the receipt settled; the receipt number never changes.
func (s *FeeService) EditReceipt(ctx context.Context, tenant string, receiptNo int64, req models.ReceiptEditRequest) (*models.FeeReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}
	day, err := paymentDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	receipt, err := s.ledger.ApplyReceiptEdit(ctx, tenant, receiptNo, req.Amount, req.PaymentMethod, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		if errors.Is(err, repository.ErrBalanceExceeded) {
			return nil, appErrors.Clone(appErrors.ErrOverpayment, "corrected amount would break the balance it settled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to edit receipt")
	}

	s.logger.Info("receipt corrected",
		zap.String("tenant", tenant),
		zap.Int64("receipt_no", receiptNo),
		zap.Float64("amount", receipt.Amount))
	return receipt, nil
}

// Transactions returns a student's receipts, newest first.
func (s *FeeService) Transactions(ctx context.Context, tenant, registrationNo string) ([]models.FeeReceipt, error) {
	receipts, err := s.repo.ListByRegistration(ctx, tenant, registrationNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list receipts")
	}
	return receipts, nil
}

// Daywise aggregates the receipts issued on one calendar day.
func (s *FeeService) Daywise(ctx context.Context, tenant, date string) (*models.DaywiseCollection, error) {
	day, err := paymentDay(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	receipts, err := s.repo.ListByDate(ctx, tenant, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list receipts")
	}

	collection := &models.DaywiseCollection{Date: day, Receipts: receipts}
	for _, receipt := range receipts {
		collection.Total += receipt.Amount
	}
	return collection, nil
}
