package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type staffRepository interface {
	Create(ctx context.Context, staff *models.Staff) error
	FindByEmpID(ctx context.Context, tenant, empID string) (*models.Staff, error)
	List(ctx context.Context, tenant, jobTitle string) ([]models.Staff, error)
	Delete(ctx context.Context, tenant, empID string) error
	Payroll(ctx context.Context, tenant string) ([]models.PayrollSummary, error)
}

// StaffService manages employee records.
type StaffService struct {
	repo      staffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService instance.
func NewStaffService(repo staffRepository, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{repo: repo, validator: validate, logger: logger}
}

// Register enrolls an employee. Teaching staff must name their subject,
// class and medium.
func (s *StaffService) Register(ctx context.Context, tenant string, req models.RegisterStaffRequest) (*models.Staff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	if req.JobTitle == "Teacher" && (req.Subject == "" || req.Class == "" || req.Medium == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teaching staff require subject, class and medium")
	}

	staff := &models.Staff{
		EmpID:     req.EmpID,
		Name:      req.Name,
		JobTitle:  req.JobTitle,
		Email:     req.Email,
		ContactNo: req.ContactNo,
		Gender:    req.Gender,
		Subject:   req.Subject,
		Class:     req.Class,
		Medium:    req.Medium,
		Salary:    req.Salary,
		Tenant:    tenant,
	}
	if err := s.repo.Create(ctx, staff); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "an employee with this id already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register staff")
	}

	s.logger.Info("staff registered", zap.String("tenant", tenant), zap.String("emp_id", staff.EmpID), zap.String("job_title", staff.JobTitle))
	return staff, nil
}

// Get returns one employee by employee id.
func (s *StaffService) Get(ctx context.Context, tenant, empID string) (*models.Staff, error) {
	staff, err := s.repo.FindByEmpID(ctx, tenant, empID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch staff")
	}
	return staff, nil
}

// List returns employees, optionally filtered by job title.
func (s *StaffService) List(ctx context.Context, tenant, jobTitle string) ([]models.Staff, error) {
	staff, err := s.repo.List(ctx, tenant, jobTitle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, nil
}

// Delete removes one employee.
func (s *StaffService) Delete(ctx context.Context, tenant, empID string) error {
	if err := s.repo.Delete(ctx, tenant, empID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete staff")
	}
	return nil
}

// Payroll aggregates headcount and salary totals by job title.
func (s *StaffService) Payroll(ctx context.Context, tenant string) ([]models.PayrollSummary, error) {
	summary, err := s.repo.Payroll(ctx, tenant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build payroll summary")
	}
	return summary, nil
}
