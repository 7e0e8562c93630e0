package models

import "time"

// Student is the canonical per-student enrollment and fee-balance record,
// scoped per tenant. fees_paid never exceeds total_fees.
type Student struct {
	ID             string    `db:"id" json:"id"`
	RegistrationNo string    `db:"registration_no" json:"registration_no"`
	Name           string    `db:"student_name" json:"student_name"`
	FatherName     string    `db:"father_name" json:"father_name"`
	MotherName     string    `db:"mother_name" json:"mother_name"`
	Gender         string    `db:"gender" json:"gender"`
	DOB            time.Time `db:"dob" json:"dob"`
	Class          string    `db:"class" json:"class"`
	Stream         string    `db:"stream" json:"stream,omitempty"`
	Medium         string    `db:"medium" json:"medium"`
	ContactNo      string    `db:"contact_no" json:"contact_no"`
	Address        string    `db:"address" json:"address"`
	TotalFees      float64   `db:"total_fees" json:"total_fees"`
	FeesPaid       float64   `db:"fees_paid" json:"fees_paid"`
	Session        string    `db:"session" json:"session"`
	Tenant         string    `db:"tenant" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Dues is the outstanding balance.
func (s Student) Dues() float64 {
	return s.TotalFees - s.FeesPaid
}

// StudentFilter captures list criteria for a class roster.
type StudentFilter struct {
	Class  string
	Medium string
	Stream string
	Search string
}

// RegisterStudentRequest enrolls a student. An initial payment, when
// present, issues the first fee receipt together with the enrollment.
type RegisterStudentRequest struct {
	RegistrationNo string  `json:"registration_no" validate:"required"`
	Name           string  `json:"student_name" validate:"required,min=2,max=50"`
	FatherName     string  `json:"father_name" validate:"required"`
	MotherName     string  `json:"mother_name" validate:"required"`
	Gender         string  `json:"gender" validate:"required"`
	DOB            string  `json:"dob" validate:"required"`
	Class          string  `json:"class" validate:"required"`
	Stream         string  `json:"stream"`
	Medium         string  `json:"medium" validate:"required"`
	ContactNo      string  `json:"contact_no" validate:"required"`
	Address        string  `json:"address" validate:"required"`
	TotalFees      float64 `json:"total_fees" validate:"gte=0"`
	Session        string  `json:"session" validate:"required"`
	InitialPayment float64 `json:"initial_payment" validate:"gte=0"`
	PaymentMethod  string  `json:"payment_method" validate:"required_with=InitialPayment"`
}

// UpdateStudentRequest edits a student's profile. Fee balances move only
// through payments and receipt corrections, never through profile edits.
type UpdateStudentRequest struct {
	Name       string  `json:"student_name" validate:"required,min=2,max=50"`
	FatherName string  `json:"father_name" validate:"required"`
	MotherName string  `json:"mother_name" validate:"required"`
	Gender     string  `json:"gender" validate:"required"`
	DOB        string  `json:"dob" validate:"required"`
	Class      string  `json:"class" validate:"required"`
	Stream     string  `json:"stream"`
	Medium     string  `json:"medium" validate:"required"`
	ContactNo  string  `json:"contact_no" validate:"required"`
	Address    string  `json:"address" validate:"required"`
	TotalFees  float64 `json:"total_fees" validate:"gte=0"`
	Session    string  `json:"session" validate:"required"`
}

// BulkDeleteRequest removes a batch of students.
type BulkDeleteRequest struct {
	RegistrationNos []string `json:"registration_nos" validate:"required,min=1"`
}

// ClassFeesRequest sets the fee structure for a whole cohort.
type ClassFeesRequest struct {
	Class     string  `json:"class" validate:"required"`
	Medium    string  `json:"medium" validate:"required"`
	Stream    string  `json:"stream"`
	TotalFees float64 `json:"total_fees" validate:"gte=0"`
}

// ImportReport summarises a roster import.
type ImportReport struct {
	Imported int          `json:"imported"`
	Skipped  []EntryError `json:"skipped,omitempty"`
}

// ClassOverview is one row of the per-class headcount aggregation.
type ClassOverview struct {
	Medium string `db:"medium" json:"medium"`
	Class  string `db:"class" json:"class"`
	Stream string `db:"stream" json:"stream,omitempty"`
	Count  int    `db:"count" json:"count"`
}
