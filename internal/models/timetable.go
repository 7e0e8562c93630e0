package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExamSlot is one scheduled paper within a timetable.
type ExamSlot struct {
	Subject   string `json:"subject" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ExamSlotList stores the schedule as a JSONB column.
type ExamSlotList []ExamSlot

// Value implements driver.Valuer.
func (l ExamSlotList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ExamSlotList{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ExamSlotList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported exam slot list type %T", src)
	}
}

// ExamTimetable is the published schedule for one (class, medium, exam type).
// Re-publishing replaces the previous schedule in place.
type ExamTimetable struct {
	ID        string       `db:"id" json:"id"`
	Class     string       `db:"class" json:"class"`
	Medium    string       `db:"medium" json:"medium"`
	ExamType  string       `db:"exam_type" json:"exam_type"`
	Exams     ExamSlotList `db:"exams" json:"exams"`
	Tenant    string       `db:"tenant" json:"-"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// PublishTimetableRequest creates or replaces a timetable.
type PublishTimetableRequest struct {
	Class    string       `json:"class" validate:"required"`
	Medium   string       `json:"medium" validate:"required"`
	ExamType string       `json:"exam_type" validate:"required"`
	Exams    ExamSlotList `json:"exams" validate:"required,min=1,dive"`
}
