package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStatus is the per-person mark for a day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusLeave   AttendanceStatus = "LEAVE"
)

// Valid reports whether the status is one of the enumerated values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave:
		return true
	}
	return false
}

// AttendanceEntry is one person's mark inside a day sheet.
type AttendanceEntry struct {
	RegistrationNo string           `json:"registration_no"`
	Name           string           `json:"name"`
	Status         AttendanceStatus `json:"status"`
}

// AttendanceEntryList stores the day's marks as a JSONB column.
type AttendanceEntryList []AttendanceEntry

// Value implements driver.Valuer.
func (l AttendanceEntryList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(AttendanceEntryList{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *AttendanceEntryList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported attendance entry list type %T", src)
	}
}

// Attendance is one class cohort's sheet for a single day. At most one sheet
// exists per (date, class, medium, stream) within a tenant.
type Attendance struct {
	ID        string              `db:"id" json:"id"`
	Date      time.Time           `db:"date" json:"date"`
	Class     string              `db:"class" json:"class"`
	Medium    string              `db:"medium" json:"medium"`
	Stream    string              `db:"stream" json:"stream,omitempty"`
	Records   AttendanceEntryList `db:"records" json:"records"`
	TakenBy   string              `db:"taken_by" json:"taken_by"`
	Tenant    string              `db:"tenant" json:"-"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// StaffAttendance is the staff sheet for a single day and job title.
type StaffAttendance struct {
	ID        string              `db:"id" json:"id"`
	Date      time.Time           `db:"date" json:"date"`
	JobTitle  string              `db:"job_title" json:"job_title"`
	Records   AttendanceEntryList `db:"records" json:"records"`
	TakenBy   string              `db:"taken_by" json:"taken_by"`
	Tenant    string              `db:"tenant" json:"-"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// MarkAttendanceRequest records a class sheet for a day.
type MarkAttendanceRequest struct {
	Date    string              `json:"date" validate:"required"`
	Class   string              `json:"class" validate:"required"`
	Medium  string              `json:"medium" validate:"required"`
	Stream  string              `json:"stream"`
	Records AttendanceEntryList `json:"records" validate:"required,min=1"`
}

// MarkStaffAttendanceRequest records a staff sheet for a day.
type MarkStaffAttendanceRequest struct {
	Date     string              `json:"date" validate:"required"`
	JobTitle string              `json:"job_title" validate:"required"`
	Records  AttendanceEntryList `json:"records" validate:"required,min=1"`
}

// AttendanceReportRequest selects sheets over a date range.
type AttendanceReportRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Class  string `json:"class" validate:"required"`
	Medium string `json:"medium" validate:"required"`
	Stream string `json:"stream"`
}
