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

type historyRepository interface {
	Find(ctx context.Context, tenant, registrationNo, session, class string) (*models.SessionHistory, error)
	List(ctx context.Context, tenant string, filter models.SessionHistoryFilter) ([]models.SessionHistory, error)
	UpdateRecord(ctx context.Context, tenant, registrationNo, session, class string, edit models.HistoryEditRequest) (*models.SessionHistory, error)
}

type promotionLedger interface {
	PromoteStudent(ctx context.Context, history *models.SessionHistory, advance bool, nextClass, nextSession string) error
	RecordHistoryPayment(ctx context.Context, session string, receipt *models.FeeReceipt) error
}

type promotionResultReader interface {
	ListByCohort(ctx context.Context, tenant, class, medium, stream, session, examType string) ([]models.Result, error)
}

// SessionHistoryService archives session outcomes and settles dues left
// behind after promotion.
type SessionHistoryService struct {
	repo      historyRepository
	ledger    promotionLedger
	results   promotionResultReader
	students  resultStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionHistoryService constructs a SessionHistoryService instance.
func NewSessionHistoryService(repo historyRepository, ledger promotionLedger, results promotionResultReader, students resultStudentReader, validate *validator.Validate, logger *zap.Logger) *SessionHistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionHistoryService{repo: repo, ledger: ledger, results: results, students: students, validator: validate, logger: logger}
}

// List returns archived records matching the filter.
func (s *SessionHistoryService) List(ctx context.Context, tenant string, filter models.SessionHistoryFilter) ([]models.SessionHistory, error) {
	histories, err := s.repo.List(ctx, tenant, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session histories")
	}
	return histories, nil
}

// Get returns one archived record by its natural key.
func (s *SessionHistoryService) Get(ctx context.Context, tenant, registrationNo, session, class string) (*models.SessionHistory, error) {
	history, err := s.repo.Find(ctx, tenant, registrationNo, session, class)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session record")
	}
	return history, nil
}

// Promote closes out a cohort's session after the terminal exam. Passing
// students are archived and advanced one class into the next session with a
// fresh fee cycle; failing students are archived in place and their roster
// row is left untouched. Students already archived for this sitting are
// skipped, so the run is safe to repeat.
func (s *SessionHistoryService) Promote(ctx context.Context, tenant string, q models.CohortQuery) (*models.PromotionReport, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort query")
	}
	if !IsTerminalExam(q.ExamType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only the terminal exam closes out a session")
	}

	results, err := s.results.ListByCohort(ctx, tenant, q.Class, q.Medium, q.Stream, q.Session, q.ExamType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if len(results) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no results recorded for this sitting")
	}

	report := &models.PromotionReport{}
	for i, result := range results {
		student, err := s.students.FindByRegistration(ctx, tenant, result.RegistrationNo)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: result.RegistrationNo, Message: "student no longer on roster"})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
		}
		if student.Class != q.Class || student.Session != q.Session {
			report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: result.RegistrationNo, Message: "already promoted"})
			continue
		}

		percentage := result.Percentage()
		passed := percentage >= PassThreshold
		promotedTo := student.Class
		if passed {
			promotedTo = NextClass(student.Class)
		}

		history := &models.SessionHistory{
			RegistrationNo: student.RegistrationNo,
			StudentName:    student.Name,
			FatherName:     student.FatherName,
			Class:          student.Class,
			Stream:         student.Stream,
			Medium:         student.Medium,
			Session:        student.Session,
			ExamType:       result.ExamType,
			PromotedTo:     promotedTo,
			Grade:          GradeFor(percentage),
			Percentage:     percentage,
			TotalFees:      student.TotalFees,
			FeesPaid:       student.FeesPaid,
			Tenant:         tenant,
		}
		err = s.ledger.PromoteStudent(ctx, history, passed, promotedTo, IncrementSession(student.Session))
		if err != nil {
			if repository.IsUniqueViolation(err) {
				report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: result.RegistrationNo, Message: "already archived for this sitting"})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote student")
		}
		if passed {
			report.Promoted++
		} else {
			report.Held++
		}
	}

	s.logger.Info("cohort promotion completed",
		zap.String("tenant", tenant),
		zap.String("class", q.Class),
		zap.String("session", q.Session),
		zap.Int("promoted", report.Promoted),
		zap.Int("held", report.Held),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// Amend edits the fee structure and outcome fields of an archived record.
// Nil fields are left as stored. Lowering total fees below what was already
// paid against the record is rejected.
func (s *SessionHistoryService) Amend(ctx context.Context, tenant, registrationNo, session, class string, req models.HistoryEditRequest) (*models.SessionHistory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid amendment payload")
	}
	if req.TotalFees == nil && req.PromotedTo == nil && req.Grade == nil && req.Percentage == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to amend")
	}
	if req.PromotedTo != nil && !KnownClass(*req.PromotedTo) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "promoted_to must name a known class")
	}

	history, err := s.Get(ctx, tenant, registrationNo, session, class)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateRecord(ctx, tenant, registrationNo, session, class, req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// the record exists, so the fee guard is what blocked the row
			return nil, appErrors.WithDetails(appErrors.ErrValidation,
				"total fees cannot drop below the amount already paid",
				map[string]float64{"fees_paid": history.FeesPaid})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend session record")
	}

	s.logger.Info("session record amended",
		zap.String("tenant", tenant),
		zap.String("registration_no", registrationNo),
		zap.String("session", session),
		zap.String("class", class))
	return updated, nil
}

// SettleDues records a payment against an archived session balance and
// issues a receipt for it.
func (s *SessionHistoryService) SettleDues(ctx context.Context, tenant, registrationNo, session, class string, req models.HistoryPaymentRequest) (*models.FeeReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	history, err := s.Get(ctx, tenant, registrationNo, session, class)
	if err != nil {
		return nil, err
	}

	day, err := paymentDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	receipt := &models.FeeReceipt{
		RegistrationNo: registrationNo,
		StudentName:    history.StudentName,
		Class:          class,
		Amount:         req.Amount,
		Date:           day,
		PaymentMethod:  req.PaymentMethod,
		Tenant:         tenant,
	}
	if err := s.ledger.RecordHistoryPayment(ctx, session, receipt); err != nil {
		if errors.Is(err, repository.ErrBalanceExceeded) {
			return nil, appErrors.WithDetails(appErrors.ErrOverpayment,
				"payment exceeds the session's outstanding dues",
				map[string]float64{"dues": history.Dues()})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	return receipt, nil
}

// paymentDay parses an optional YYYY-MM-DD date, defaulting to today.
func paymentDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(dateLayout, raw)
}
