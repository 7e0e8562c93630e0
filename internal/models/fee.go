package models

import "time"

// FeeReceipt is one payment record. Receipt numbers are tenant-scoped and
// strictly increasing, seeded at 1001.
type FeeReceipt struct {
	ID             string    `db:"id" json:"id"`
	ReceiptNo      int64     `db:"receipt_no" json:"receipt_no"`
	RegistrationNo string    `db:"registration_no" json:"registration_no"`
	StudentName    string    `db:"student_name" json:"student_name"`
	Class          string    `db:"class" json:"class"`
	Amount         float64   `db:"amount" json:"amount"`
	Date           time.Time `db:"date" json:"date"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	Tenant         string    `db:"tenant" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PaymentRequest records a fee payment against a student's balance.
type PaymentRequest struct {
	RegistrationNo string  `json:"registration_no" validate:"required"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	PaymentMethod  string  `json:"payment_method" validate:"required"`
	Date           string  `json:"date"`
}

// ReceiptEditRequest corrects an issued receipt. The amount delta is applied
// back to the balance the receipt originally settled.
type ReceiptEditRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Date          string  `json:"date"`
}

// DaywiseCollection aggregates receipts issued on a single day.
type DaywiseCollection struct {
	Date     time.Time    `json:"date"`
	Total    float64      `json:"total"`
	Receipts []FeeReceipt `json:"receipts"`
}
