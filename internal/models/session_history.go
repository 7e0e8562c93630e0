package models

import "time"

// SessionHistory is a snapshot of a student's standing at the end of a
// terminal exam, written once per (registration, session, exam type).
// Accountants may later amend the archived fee structure and outcome
// fields without touching the live roster.
type SessionHistory struct {
	ID             string    `db:"id" json:"id"`
	RegistrationNo string    `db:"registration_no" json:"registration_no"`
	StudentName    string    `db:"student_name" json:"student_name"`
	FatherName     string    `db:"father_name" json:"father_name"`
	Class          string    `db:"class" json:"class"`
	Stream         string    `db:"stream" json:"stream,omitempty"`
	Medium         string    `db:"medium" json:"medium"`
	Session        string    `db:"session" json:"session"`
	ExamType       string    `db:"exam_type" json:"exam_type"`
	PromotedTo     string    `db:"promoted_to" json:"promoted_to"`
	Grade          string    `db:"grade" json:"grade"`
	Percentage     float64   `db:"percentage" json:"percentage"`
	TotalFees      float64   `db:"total_fees" json:"total_fees"`
	FeesPaid       float64   `db:"fees_paid" json:"fees_paid"`
	Tenant         string    `db:"tenant" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Dues is the balance outstanding for the archived session.
func (h SessionHistory) Dues() float64 {
	return h.TotalFees - h.FeesPaid
}

// SessionHistoryFilter captures archive list criteria.
type SessionHistoryFilter struct {
	Session string
	Class   string
	Medium  string
	Stream  string
	Search  string
}

// PromotionReport summarises a cohort promotion run.
type PromotionReport struct {
	Promoted int          `json:"promoted"`
	Held     int          `json:"held"`
	Skipped  []EntryError `json:"skipped,omitempty"`
}

// HistoryPaymentRequest settles dues against an archived session record.
type HistoryPaymentRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Date          string  `json:"date"`
}

// HistoryEditRequest amends an archived session record. Nil fields are left
// as they are.
type HistoryEditRequest struct {
	TotalFees  *float64 `json:"total_fees" validate:"omitempty,gte=0"`
	PromotedTo *string  `json:"promoted_to"`
	Grade      *string  `json:"grade"`
	Percentage *float64 `json:"percentage" validate:"omitempty,gte=0,lte=100"`
}
