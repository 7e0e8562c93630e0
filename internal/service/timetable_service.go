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
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type timetableRepository interface {
	Upsert(ctx context.Context, tt *models.ExamTimetable) error
	Find(ctx context.Context, tenant, class, medium, examType string) (*models.ExamTimetable, error)
}

// TimetableService publishes exam schedules.
type TimetableService struct {
	repo      timetableRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService instance.
func NewTimetableService(repo timetableRepository, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableService{repo: repo, validator: validate, logger: logger}
}

// Publish creates or replaces the schedule for one (class, medium, exam
// type). Re-publishing swaps the schedule in place.
func (s *TimetableService) Publish(ctx context.Context, tenant string, req models.PublishTimetableRequest) (*models.ExamTimetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	for i, slot := range req.Exams {
		if _, err := time.Parse(dateLayout, slot.Date); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam %d: date must be formatted YYYY-MM-DD", i))
		}
	}

	tt := &models.ExamTimetable{
		Class:    req.Class,
		Medium:   req.Medium,
		ExamType: req.ExamType,
		Exams:    req.Exams,
		Tenant:   tenant,
	}
	if err := s.repo.Upsert(ctx, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}

	s.logger.Info("timetable published",
		zap.String("tenant", tenant),
		zap.String("class", tt.Class),
		zap.String("exam_type", tt.ExamType),
		zap.Int("papers", len(tt.Exams)))
	return tt, nil
}

// Get returns the published schedule for one (class, medium, exam type).
func (s *TimetableService) Get(ctx context.Context, tenant, class, medium, examType string) (*models.ExamTimetable, error) {
	if class == "" || medium == "" || examType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class, medium and examType are required")
	}
	tt, err := s.repo.Find(ctx, tenant, class, medium, examType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch timetable")
	}
	return tt, nil
}
