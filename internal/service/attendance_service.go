package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, att *models.Attendance) error
	Find(ctx context.Context, tenant string, date time.Time, class, medium, stream string) (*models.Attendance, error)
	UpdateRecords(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error
	Range(ctx context.Context, tenant string, from, to time.Time, class, medium, stream string) ([]models.Attendance, error)
	DeleteByClass(ctx context.Context, tenant, class, medium, stream string) (int64, error)
	CreateStaff(ctx context.Context, att *models.StaffAttendance) error
	FindStaff(ctx context.Context, tenant string, date time.Time, jobTitle string) (*models.StaffAttendance, error)
	UpdateStaffRecords(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error
	StaffRange(ctx context.Context, tenant string, from, to time.Time, jobTitle string) ([]models.StaffAttendance, error)
	DeleteStaffByJobTitle(ctx context.Context, tenant, jobTitle string) (int64, error)
}

// AttendanceService records daily class and staff sheets.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

func validateRecords(records models.AttendanceEntryList) error {
	for i, entry := range records {
		if !entry.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("record %d: unknown status %q", i, entry.Status))
		}
	}
	return nil
}

// Mark records a class sheet for one day. A day already marked for the
// cohort is rejected; corrections go through Amend.
func (s *AttendanceService) Mark(ctx context.Context, tenant, takenBy string, req models.MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if err := validateRecords(req.Records); err != nil {
		return nil, err
	}
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	att := &models.Attendance{
		Date:    day,
		Class:   req.Class,
		Medium:  req.Medium,
		Stream:  req.Stream,
		Records: req.Records,
		TakenBy: takenBy,
		Tenant:  tenant,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "attendance for this day is already marked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return att, nil
}

// Sheet returns the class sheet for one day.
func (s *AttendanceService) Sheet(ctx context.Context, tenant, date, class, medium, stream string) (*models.Attendance, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	att, err := s.repo.Find(ctx, tenant, day, class, medium, stream)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not marked for this day")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance")
	}
	return att, nil
}

// Amend replaces the marks of an existing sheet.
func (s *AttendanceService) Amend(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error {
	if len(records) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "records are required")
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	if err := s.repo.UpdateRecords(ctx, tenant, id, records); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance sheet not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend attendance")
	}
	return nil
}

// Report returns a cohort's sheets over a date range.
func (s *AttendanceService) Report(ctx context.Context, tenant string, req models.AttendanceReportRequest) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be formatted YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be formatted YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	sheets, err := s.repo.Range(ctx, tenant, from, to, req.Class, req.Medium, req.Stream)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build report")
	}
	return sheets, nil
}

// Purge drops every sheet of one cohort, typically after the cohort moves on.
func (s *AttendanceService) Purge(ctx context.Context, tenant, class, medium, stream string) (int64, error) {
	if class == "" || medium == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "class and medium are required")
	}
	n, err := s.repo.DeleteByClass(ctx, tenant, class, medium, stream)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge attendance")
	}
	s.logger.Info("attendance purged", zap.String("tenant", tenant), zap.String("class", class), zap.Int64("sheets", n))
	return n, nil
}

// MarkStaff records a staff sheet for one day and job title.
func (s *AttendanceService) MarkStaff(ctx context.Context, tenant, takenBy string, req models.MarkStaffAttendanceRequest) (*models.StaffAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if err := validateRecords(req.Records); err != nil {
		return nil, err
	}
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	att := &models.StaffAttendance{
		Date:     day,
		JobTitle: req.JobTitle,
		Records:  req.Records,
		TakenBy:  takenBy,
		Tenant:   tenant,
	}
	if err := s.repo.CreateStaff(ctx, att); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "staff attendance for this day is already marked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark staff attendance")
	}
	return att, nil
}

// StaffSheet returns the staff sheet for one day and job title.
func (s *AttendanceService) StaffSheet(ctx context.Context, tenant, date, jobTitle string) (*models.StaffAttendance, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	att, err := s.repo.FindStaff(ctx, tenant, day, jobTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff attendance not marked for this day")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch staff attendance")
	}
	return att, nil
}

// AmendStaff replaces the marks of an existing staff sheet.
func (s *AttendanceService) AmendStaff(ctx context.Context, tenant, id string, records models.AttendanceEntryList) error {
	if len(records) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "records are required")
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	if err := s.repo.UpdateStaffRecords(ctx, tenant, id, records); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff attendance sheet not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend staff attendance")
	}
	return nil
}

// StaffReport returns staff sheets for one job title over a date range.
func (s *AttendanceService) StaffReport(ctx context.Context, tenant, from, to, jobTitle string) ([]models.StaffAttendance, error) {
	if jobTitle == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jobTitle is required")
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be formatted YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be formatted YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	sheets, err := s.repo.StaffRange(ctx, tenant, start, end, jobTitle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build report")
	}
	return sheets, nil
}

// PurgeStaff drops every staff sheet of one job title.
func (s *AttendanceService) PurgeStaff(ctx context.Context, tenant, jobTitle string) (int64, error) {
	if jobTitle == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "jobTitle is required")
	}
	n, err := s.repo.DeleteStaffByJobTitle(ctx, tenant, jobTitle)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge staff attendance")
	}
	return n, nil
}
