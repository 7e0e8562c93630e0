package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subject is a single subject score within a result.
type Subject struct {
	Name          string  `json:"subject_name" validate:"required"`
	ObtainedMarks float64 `json:"obtained_marks" validate:"min=0"`
	TotalMarks    float64 `json:"total_marks" validate:"gt=0"`
}

// SubjectList stores subject scores as a JSONB column.
type SubjectList []Subject

// Value implements driver.Valuer.
func (l SubjectList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(SubjectList{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *SubjectList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported subject list type %T", src)
	}
}

// Result is one exam outcome for a student cohort member.
type Result struct {
	ID             string      `db:"id" json:"id"`
	RegistrationNo string      `db:"registration_no" json:"registration_no"`
	StudentName    string      `db:"student_name" json:"student_name"`
	FatherName     string      `db:"father_name" json:"father_name"`
	Class          string      `db:"class" json:"class"`
	Stream         string      `db:"stream" json:"stream,omitempty"`
	Medium         string      `db:"medium" json:"medium"`
	Session        string      `db:"session" json:"session"`
	ExamType       string      `db:"exam_type" json:"exam_type"`
	Subjects       SubjectList `db:"subjects" json:"subjects"`
	ResultDate     time.Time   `db:"result_date" json:"result_date"`
	Tenant         string      `db:"tenant" json:"-"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Totals sums obtained and maximum marks across subjects.
func (r Result) Totals() (obtained, total float64) {
	for _, s := range r.Subjects {
		obtained += s.ObtainedMarks
		total += s.TotalMarks
	}
	return obtained, total
}

// Percentage is the overall score in percent, 0 when no marks are recorded.
func (r Result) Percentage() float64 {
	obtained, total := r.Totals()
	if total == 0 {
		return 0
	}
	return obtained / total * 100
}

// Marksheet is the assembled view returned to students and guardians.
type Marksheet struct {
	Student       Student     `json:"student"`
	ExamType      string      `json:"exam_type"`
	Session       string      `json:"session"`
	Subjects      SubjectList `json:"subjects"`
	ObtainedMarks float64     `json:"obtained_marks"`
	TotalMarks    float64     `json:"total_marks"`
	Percentage    float64     `json:"percentage"`
	Grade         string      `json:"grade"`
	Division      string      `json:"division"`
	ResultDate    time.Time   `json:"result_date"`
}

// MarksheetRequest identifies the result a marksheet is assembled from.
type MarksheetRequest struct {
	RegistrationNo string `json:"registration_no" form:"registrationNo" validate:"required"`
	Class          string `json:"class" form:"class" validate:"required"`
	Session        string `json:"session" form:"session" validate:"required"`
	ExamType       string `json:"exam_type" form:"examType" validate:"required"`
}

// ResultEntry is a single student's scores inside a cohort submission.
type ResultEntry struct {
	RegistrationNo string      `json:"registration_no" validate:"required"`
	StudentName    string      `json:"student_name"`
	FatherName     string      `json:"father_name"`
	Subjects       SubjectList `json:"subjects" validate:"required,min=1,dive"`
}

// SubmitResultsRequest records results for an entire class cohort at once.
type SubmitResultsRequest struct {
	Class    string        `json:"class" validate:"required"`
	Stream   string        `json:"stream"`
	Medium   string        `json:"medium" validate:"required"`
	Session  string        `json:"session" validate:"required"`
	ExamType string        `json:"exam_type" validate:"required"`
	Entries  []ResultEntry `json:"entries" validate:"required,min=1,dive"`
}

// EntryError reports a rejected cohort entry by position.
type EntryError struct {
	Index          int    `json:"index"`
	RegistrationNo string `json:"registration_no,omitempty"`
	Message        string `json:"message"`
}

// UpdateResultRequest replaces the subject scores of a recorded result.
type UpdateResultRequest struct {
	RegistrationNo string      `json:"registration_no" validate:"required"`
	Class          string      `json:"class" validate:"required"`
	Session        string      `json:"session" validate:"required"`
	ExamType       string      `json:"exam_type" validate:"required"`
	Subjects       SubjectList `json:"subjects" validate:"required,min=1,dive"`
}

// ResultEditRow pairs a recorded result with the student's current standing.
// After a terminal exam the passing students live in the session archive
// while the rest are still on the roster, so the source differs per row.
type ResultEditRow struct {
	Result     Result  `json:"result"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Source     string  `json:"source"`
	Class      string  `json:"current_class"`
	Session    string  `json:"current_session"`
	Dues       float64 `json:"dues"`
}

// CohortQuery identifies one class sitting.
type CohortQuery struct {
	Class    string `form:"class" validate:"required"`
	Stream   string `form:"stream"`
	Medium   string `form:"medium" validate:"required"`
	Session  string `form:"session" validate:"required"`
	ExamType string `form:"examType" validate:"required"`
}
