package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrBalanceExceeded is returned when a payment or receipt correction would
// push fees_paid above total_fees, or below zero.
var ErrBalanceExceeded = errors.New("payment exceeds outstanding balance")

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
