package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/export"
)

type resultRepository interface {
	InsertMany(ctx context.Context, results []models.Result) error
	Find(ctx context.Context, tenant, registrationNo, class, session, examType string) (*models.Result, error)
	ListByCohort(ctx context.Context, tenant, class, medium, stream, session, examType string) ([]models.Result, error)
	UpdateSubjects(ctx context.Context, tenant, registrationNo, class, session, examType string, subjects models.SubjectList) error
}

type resultStudentReader interface {
	FindByRegistration(ctx context.Context, tenant, registrationNo string) (*models.Student, error)
}

type resultHistoryReader interface {
	Find(ctx context.Context, tenant, registrationNo, session, class string) (*models.SessionHistory, error)
	FindTerminal(ctx context.Context, tenant, registrationNo, session, class, examType string) (*models.SessionHistory, error)
}

type marksheetRenderer interface {
	Render(data export.Dataset, title string, subtitles ...string) ([]byte, error)
}

type cohortPromoter interface {
	Promote(ctx context.Context, tenant string, q models.CohortQuery) (*models.PromotionReport, error)
}

// ResultService records exam outcomes and assembles marksheets.
type ResultService struct {
	repo      resultRepository
	students  resultStudentReader
	histories resultHistoryReader
	promoter  cohortPromoter
	pdf       marksheetRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService instance.
func NewResultService(repo resultRepository, students resultStudentReader, histories resultHistoryReader, promoter cohortPromoter, pdf marksheetRenderer, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResultService{repo: repo, students: students, histories: histories, promoter: promoter, pdf: pdf, validator: validate, logger: logger}
}

// Submit records results for an entire cohort. Every entry is checked before
// anything is written, and a payload with bad entries reports all of them at
// once instead of failing on the first. Submitting a terminal exam also
// closes out the session: the cohort promotion run follows immediately.
func (s *ResultService) Submit(ctx context.Context, tenant string, req models.SubmitResultsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	var entryErrors []models.EntryError
	seen := make(map[string]int, len(req.Entries))
	for i, entry := range req.Entries {
		if prev, dup := seen[entry.RegistrationNo]; dup {
			entryErrors = append(entryErrors, models.EntryError{
				Index:          i,
				RegistrationNo: entry.RegistrationNo,
				Message:        fmt.Sprintf("duplicate of entry %d", prev),
			})
			continue
		}
		seen[entry.RegistrationNo] = i
		for _, subject := range entry.Subjects {
			if subject.ObtainedMarks > subject.TotalMarks {
				entryErrors = append(entryErrors, models.EntryError{
					Index:          i,
					RegistrationNo: entry.RegistrationNo,
					Message:        fmt.Sprintf("%s: obtained marks exceed total marks", subject.Name),
				})
			}
		}
	}
	if len(entryErrors) > 0 {
		return 0, appErrors.WithDetails(appErrors.ErrValidation, "some entries were rejected", entryErrors)
	}

	now := time.Now().UTC()
	results := make([]models.Result, 0, len(req.Entries))
	for _, entry := range req.Entries {
		results = append(results, models.Result{
			RegistrationNo: entry.RegistrationNo,
			StudentName:    entry.StudentName,
			FatherName:     entry.FatherName,
			Class:          req.Class,
			Stream:         req.Stream,
			Medium:         req.Medium,
			Session:        req.Session,
			ExamType:       req.ExamType,
			Subjects:       entry.Subjects,
			ResultDate:     now,
			Tenant:         tenant,
		})
	}
	if err := s.repo.InsertMany(ctx, results); err != nil {
		if repository.IsUniqueViolation(err) {
			return 0, appErrors.Clone(appErrors.ErrDuplicate, "results for this sitting are already recorded")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record results")
	}

	s.logger.Info("results recorded",
		zap.String("tenant", tenant),
		zap.String("class", req.Class),
		zap.String("exam_type", req.ExamType),
		zap.Int("entries", len(results)))

	if IsTerminalExam(req.ExamType) && s.promoter != nil {
		report, err := s.promoter.Promote(ctx, tenant, models.CohortQuery{
			Class:    req.Class,
			Stream:   req.Stream,
			Medium:   req.Medium,
			Session:  req.Session,
			ExamType: req.ExamType,
		})
		if err != nil {
			return len(results), err
		}
		s.logger.Info("session closed out",
			zap.String("tenant", tenant),
			zap.String("class", req.Class),
			zap.Int("promoted", report.Promoted),
			zap.Int("held", report.Held),
			zap.Int("skipped", len(report.Skipped)))
	}
	return len(results), nil
}

// Marksheet assembles a student's marksheet, gated on fee settlement. A
// terminal marksheet needs the session's dues cleared in full, a mid-session
// one at least half the fees paid; other exams carry no gate.
func (s *ResultService) Marksheet(ctx context.Context, tenant string, req models.MarksheetRequest) (*models.Marksheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marksheet request")
	}

	student, err := s.students.FindByRegistration(ctx, tenant, req.RegistrationNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	if err := s.checkFeeGate(ctx, tenant, student, req); err != nil {
		return nil, err
	}

	result, err := s.repo.Find(ctx, tenant, req.RegistrationNo, req.Class, req.Session, req.ExamType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not declared for this exam")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch result")
	}

	obtained, total := result.Totals()
	percentage := result.Percentage()
	return &models.Marksheet{
		Student:       *student,
		ExamType:      result.ExamType,
		Session:       result.Session,
		Subjects:      result.Subjects,
		ObtainedMarks: obtained,
		TotalMarks:    total,
		Percentage:    percentage,
		Grade:         GradeFor(percentage),
		Division:      DivisionFor(percentage),
		ResultDate:    result.ResultDate,
	}, nil
}

// checkFeeGate enforces the settlement rule. After a terminal promotion the
// session's balance lives in the archive, so the terminal gate reads from
// there and falls back to the roster row while promotion is still pending.
// Only mid-session exams carry the half-fees gate; unit tests and other
// minor exams are ungated.
func (s *ResultService) checkFeeGate(ctx context.Context, tenant string, student *models.Student, req models.MarksheetRequest) error {
	if IsTerminalExam(req.ExamType) {
		history, err := s.histories.FindTerminal(ctx, tenant, req.RegistrationNo, req.Session, req.Class, req.ExamType)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check dues")
		}
		var dues float64
		if history != nil {
			dues = history.Dues()
		} else {
			dues = student.Dues()
		}
		if dues > 0 {
			return appErrors.WithDetails(appErrors.ErrFeesDue,
				"marksheet is withheld until all session fees are settled",
				map[string]float64{"dues": dues})
		}
		return nil
	}

	if IsMidSessionExam(req.ExamType) && student.TotalFees > 0 && student.FeesPaid < student.TotalFees/2 {
		return appErrors.WithDetails(appErrors.ErrFeesDue,
			"marksheet requires at least half the session fees paid",
			map[string]float64{"paid": student.FeesPaid, "required": student.TotalFees / 2})
	}
	return nil
}

// MarksheetPDF renders the marksheet as a printable document.
func (s *ResultService) MarksheetPDF(ctx context.Context, tenant, tenantAddress string, req models.MarksheetRequest) ([]byte, error) {
	sheet, err := s.Marksheet(ctx, tenant, req)
	if err != nil {
		return nil, err
	}

	ds := export.Dataset{Headers: []string{"Subject", "Obtained", "Total"}}
	for _, subject := range sheet.Subjects {
		ds.Rows = append(ds.Rows, map[string]string{
			"Subject":  subject.Name,
			"Obtained": strconv.FormatFloat(subject.ObtainedMarks, 'f', 1, 64),
			"Total":    strconv.FormatFloat(subject.TotalMarks, 'f', 1, 64),
		})
	}
	subtitles := []string{
		tenantAddress,
		fmt.Sprintf("%s  |  Session %s", sheet.ExamType, sheet.Session),
		fmt.Sprintf("%s (%s)  S/o %s  Class %s", sheet.Student.Name, sheet.Student.RegistrationNo, sheet.Student.FatherName, req.Class),
		fmt.Sprintf("Total %.1f/%.1f  %.2f%%  Grade %s  Division %s", sheet.ObtainedMarks, sheet.TotalMarks, sheet.Percentage, sheet.Grade, sheet.Division),
	}
	pdf, err := s.pdf.Render(ds, tenant, subtitles...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render marksheet")
	}
	return pdf, nil
}

// ListCohort returns every result recorded for one class sitting.
func (s *ResultService) ListCohort(ctx context.Context, tenant string, q models.CohortQuery) ([]models.Result, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort query")
	}
	results, err := s.repo.ListByCohort(ctx, tenant, q.Class, q.Medium, q.Stream, q.Session, q.ExamType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, nil
}

// EditRoster pairs each cohort result with the student's current standing.
// After a terminal exam the passers have been archived and promoted while
// failed students are still on the roster, so each row names its source.
func (s *ResultService) EditRoster(ctx context.Context, tenant string, q models.CohortQuery) ([]models.ResultEditRow, error) {
	results, err := s.ListCohort(ctx, tenant, q)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ResultEditRow, 0, len(results))
	for _, result := range results {
		percentage := result.Percentage()
		row := models.ResultEditRow{
			Result:     result,
			Percentage: percentage,
			Grade:      GradeFor(percentage),
		}

		if IsTerminalExam(q.ExamType) && percentage >= PassThreshold {
			history, err := s.histories.Find(ctx, tenant, result.RegistrationNo, q.Session, q.Class)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch archive record")
			}
			if history != nil {
				row.Source = "archive"
				row.Class = history.PromotedTo
				row.Session = history.Session
				row.Dues = history.Dues()
				rows = append(rows, row)
				continue
			}
		}

		student, err := s.students.FindByRegistration(ctx, tenant, result.RegistrationNo)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
		}
		row.Source = "roster"
		row.Class = student.Class
		row.Session = student.Session
		row.Dues = student.Dues()
		rows = append(rows, row)
	}
	return rows, nil
}

// Update replaces the subject scores of a recorded result.
func (s *ResultService) Update(ctx context.Context, tenant string, req models.UpdateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	for _, subject := range req.Subjects {
		if subject.ObtainedMarks > subject.TotalMarks {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: obtained marks exceed total marks", subject.Name))
		}
	}

	if err := s.repo.UpdateSubjects(ctx, tenant, req.RegistrationNo, req.Class, req.Session, req.ExamType, req.Subjects); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update result")
	}

	result, err := s.repo.Find(ctx, tenant, req.RegistrationNo, req.Class, req.Session, req.ExamType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch updated result")
	}
	return result, nil
}
