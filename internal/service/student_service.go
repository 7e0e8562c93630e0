package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/export"
)

const dateLayout = "2006-01-02"

type studentRepository interface {
	FindByRegistration(ctx context.Context, tenant, registrationNo string) (*models.Student, error)
	List(ctx context.Context, tenant string, filter models.StudentFilter) ([]models.Student, error)
	Overview(ctx context.Context, tenant string) ([]models.ClassOverview, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, tenant, registrationNo string) error
	DeleteMany(ctx context.Context, tenant string, registrationNos []string) (int64, error)
	ExistingRegistrations(ctx context.Context, tenant string, registrationNos []string) ([]string, error)
	SetClassFees(ctx context.Context, tenant, class, medium, stream string, totalFees float64) (int64, error)
	InsertMany(ctx context.Context, students []models.Student) error
}

type studentLedger interface {
	RegisterStudent(ctx context.Context, student *models.Student, receipt *models.FeeReceipt) error
}

type overviewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StudentService provides enrollment and roster use cases.
type StudentService struct {
	repo      studentRepository
	ledger    studentLedger
	cache     overviewCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, ledger studentLedger, cache overviewCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StudentService{repo: repo, ledger: ledger, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func overviewCacheKey(tenant string) string {
	return fmt.Sprintf("students:%s:overview", tenant)
}

func (s *StudentService) invalidateOverview(ctx context.Context, tenant string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("students:%s:*", tenant)); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.Error(err))
	}
}

// resolveStream validates the class and settles the stream. Streams exist
// only for classes 11 and 12; anything supplied for other classes is
// dropped rather than stored.
func (s *StudentService) resolveStream(class, stream string) (string, error) {
	if !KnownClass(class) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown class %q", class))
	}
	if StreamRequired(class) {
		if stream == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s requires a stream", class))
		}
		return stream, nil
	}
	return "", nil
}

// Register enrolls a student. When an initial payment is present the first
// receipt is issued in the same transaction as the enrollment.
func (s *StudentService) Register(ctx context.Context, tenant string, req models.RegisterStudentRequest) (*models.Student, *models.FeeReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	stream, err := s.resolveStream(req.Class, req.Stream)
	if err != nil {
		return nil, nil, err
	}
	dob, err := time.Parse(dateLayout, req.DOB)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dob must be formatted YYYY-MM-DD")
	}
	if req.InitialPayment > req.TotalFees {
		return nil, nil, appErrors.Clone(appErrors.ErrOverpayment, "initial payment exceeds total fees")
	}

	student := &models.Student{
		RegistrationNo: req.RegistrationNo,
		Name:           req.Name,
		FatherName:     req.FatherName,
		MotherName:     req.MotherName,
		Gender:         req.Gender,
		DOB:            dob,
		Class:          req.Class,
		Stream:         stream,
		Medium:         req.Medium,
		ContactNo:      req.ContactNo,
		Address:        req.Address,
		TotalFees:      req.TotalFees,
		FeesPaid:       req.InitialPayment,
		Session:        req.Session,
		Tenant:         tenant,
	}
	var receipt *models.FeeReceipt
	if req.InitialPayment > 0 {
		receipt = &models.FeeReceipt{
			RegistrationNo: req.RegistrationNo,
			StudentName:    req.Name,
			Class:          req.Class,
			Amount:         req.InitialPayment,
			Date:           time.Now().UTC().Truncate(24 * time.Hour),
			PaymentMethod:  req.PaymentMethod,
			Tenant:         tenant,
		}
	}

	if err := s.ledger.RegisterStudent(ctx, student, receipt); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("registration number %s is already enrolled", req.RegistrationNo))
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}

	s.invalidateOverview(ctx, tenant)
	s.logger.Info("student registered",
		zap.String("tenant", tenant),
		zap.String("registration_no", student.RegistrationNo),
		zap.String("class", student.Class))
	return student, receipt, nil
}

// Get returns one student by registration number.
func (s *StudentService) Get(ctx context.Context, tenant, registrationNo string) (*models.Student, error) {
	student, err := s.repo.FindByRegistration(ctx, tenant, registrationNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// List returns the roster matching the filter.
func (s *StudentService) List(ctx context.Context, tenant string, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, tenant, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Overview returns headcounts per cohort, served from cache when warm.
func (s *StudentService) Overview(ctx context.Context, tenant string) ([]models.ClassOverview, error) {
	key := overviewCacheKey(tenant)
	if s.cache != nil {
		var cached []models.ClassOverview
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("overview cache read failed", zap.Error(err))
		}
	}

	overview, err := s.repo.Overview(ctx, tenant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build overview")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, overview, s.cacheTTL); err != nil {
			s.logger.Warn("overview cache write failed", zap.Error(err))
		}
	}
	return overview, nil
}

// Update edits a student's profile fields.
func (s *StudentService) Update(ctx context.Context, tenant, registrationNo string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	stream, err := s.resolveStream(req.Class, req.Stream)
	if err != nil {
		return nil, err
	}
	dob, err := time.Parse(dateLayout, req.DOB)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dob must be formatted YYYY-MM-DD")
	}

	student, err := s.Get(ctx, tenant, registrationNo)
	if err != nil {
		return nil, err
	}
	if req.TotalFees < student.FeesPaid {
		return nil, appErrors.Clone(appErrors.ErrOverpayment, "total fees cannot drop below the amount already paid")
	}

	student.Name = req.Name
	student.FatherName = req.FatherName
	student.MotherName = req.MotherName
	student.Gender = req.Gender
	student.DOB = dob
	student.Class = req.Class
	student.Stream = stream
	student.Medium = req.Medium
	student.ContactNo = req.ContactNo
	student.Address = req.Address
	student.TotalFees = req.TotalFees
	student.Session = req.Session

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.invalidateOverview(ctx, tenant)
	return student, nil
}

// Delete removes one student.
func (s *StudentService) Delete(ctx context.Context, tenant, registrationNo string) error {
	if err := s.repo.Delete(ctx, tenant, registrationNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidateOverview(ctx, tenant)
	return nil
}

// BulkDelete removes a batch of students and returns the number deleted.
func (s *StudentService) BulkDelete(ctx context.Context, tenant string, req models.BulkDeleteRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	n, err := s.repo.DeleteMany(ctx, tenant, req.RegistrationNos)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete students")
	}
	s.invalidateOverview(ctx, tenant)
	return n, nil
}

// SetClassFees raises the fee structure of an entire cohort.
func (s *StudentService) SetClassFees(ctx context.Context, tenant string, req models.ClassFeesRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stream, err := s.resolveStream(req.Class, req.Stream)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.SetClassFees(ctx, tenant, req.Class, req.Medium, stream, req.TotalFees)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set class fees")
	}
	s.invalidateOverview(ctx, tenant)
	return n, nil
}

// ExportRoster renders the filtered roster as a dataset for CSV download.
func (s *StudentService) ExportRoster(ctx context.Context, tenant string, filter models.StudentFilter) (export.Dataset, error) {
	students, err := s.List(ctx, tenant, filter)
	if err != nil {
		return export.Dataset{}, err
	}

	ds := export.Dataset{Headers: []string{"Registration No", "Name", "Father Name", "Class", "Stream", "Medium", "Session", "Contact", "Total Fees", "Fees Paid", "Dues"}}
	for _, st := range students {
		ds.Rows = append(ds.Rows, map[string]string{
			"Registration No": st.RegistrationNo,
			"Name":            st.Name,
			"Father Name":     st.FatherName,
			"Class":           st.Class,
			"Stream":          st.Stream,
			"Medium":          st.Medium,
			"Session":         st.Session,
			"Contact":         st.ContactNo,
			"Total Fees":      strconv.FormatFloat(st.TotalFees, 'f', 2, 64),
			"Fees Paid":       strconv.FormatFloat(st.FeesPaid, 'f', 2, 64),
			"Dues":            strconv.FormatFloat(st.Dues(), 'f', 2, 64),
		})
	}
	return ds, nil
}

// ImportRoster bulk-enrolls students from a CSV upload. Rows that fail
// validation or collide with existing registrations are reported back by
// line, and the remainder is inserted in one transaction.
func (s *StudentService) ImportRoster(ctx context.Context, tenant string, r io.Reader) (*models.ImportReport, error) {
	ds, err := export.NewCSVExporter().Parse(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not parse upload")
	}
	if len(ds.Rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload contains no rows")
	}

	report := &models.ImportReport{}
	var (
		students []models.Student
		regNos   []string
	)
	for i, row := range ds.Rows {
		req := models.RegisterStudentRequest{
			RegistrationNo: strings.TrimSpace(row["registration_no"]),
			Name:           strings.TrimSpace(row["student_name"]),
			FatherName:     strings.TrimSpace(row["father_name"]),
			MotherName:     strings.TrimSpace(row["mother_name"]),
			Gender:         strings.TrimSpace(row["gender"]),
			DOB:            strings.TrimSpace(row["dob"]),
			Class:          strings.TrimSpace(row["class"]),
			Stream:         strings.TrimSpace(row["stream"]),
			Medium:         strings.TrimSpace(row["medium"]),
			ContactNo:      strings.TrimSpace(row["contact_no"]),
			Address:        strings.TrimSpace(row["address"]),
			Session:        strings.TrimSpace(row["session"]),
		}
		if v := strings.TrimSpace(row["total_fees"]); v != "" {
			fees, err := strconv.ParseFloat(v, 64)
			if err != nil || fees < 0 {
				report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: req.RegistrationNo, Message: "invalid total_fees"})
				continue
			}
			req.TotalFees = fees
		}
		if err := s.validator.Struct(req); err != nil {
			report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: req.RegistrationNo, Message: err.Error()})
			continue
		}
		stream, err := s.resolveStream(req.Class, req.Stream)
		if err != nil {
			report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: req.RegistrationNo, Message: appErrors.FromError(err).Message})
			continue
		}
		req.Stream = stream
		dob, err := time.Parse(dateLayout, req.DOB)
		if err != nil {
			report.Skipped = append(report.Skipped, models.EntryError{Index: i, RegistrationNo: req.RegistrationNo, Message: "dob must be formatted YYYY-MM-DD"})
			continue
		}

		students = append(students, models.Student{
			RegistrationNo: req.RegistrationNo,
			Name:           req.Name,
			FatherName:     req.FatherName,
			MotherName:     req.MotherName,
			Gender:         req.Gender,
			DOB:            dob,
			Class:          req.Class,
			Stream:         req.Stream,
			Medium:         req.Medium,
			ContactNo:      req.ContactNo,
			Address:        req.Address,
			TotalFees:      req.TotalFees,
			Session:        req.Session,
			Tenant:         tenant,
		})
		regNos = append(regNos, req.RegistrationNo)
	}

	if len(students) > 0 {
		existing, err := s.repo.ExistingRegistrations(ctx, tenant, regNos)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registrations")
		}
		if len(existing) > 0 {
			taken := make(map[string]bool, len(existing))
			for _, reg := range existing {
				taken[reg] = true
			}
			kept := students[:0]
			for _, st := range students {
				if taken[st.RegistrationNo] {
					report.Skipped = append(report.Skipped, models.EntryError{RegistrationNo: st.RegistrationNo, Message: "registration number already enrolled"})
					continue
				}
				kept = append(kept, st)
			}
			students = kept
		}
	}

	if len(students) > 0 {
		if err := s.repo.InsertMany(ctx, students); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import students")
		}
	}
	report.Imported = len(students)

	s.invalidateOverview(ctx, tenant)
	s.logger.Info("roster imported", zap.String("tenant", tenant), zap.Int("imported", report.Imported), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}
