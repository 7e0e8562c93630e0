package models

import "time"

// Staff is an employee record scoped per tenant.
type Staff struct {
	ID        string    `db:"id" json:"id"`
	EmpID     string    `db:"emp_id" json:"emp_id"`
	Name      string    `db:"staff_name" json:"staff_name"`
	JobTitle  string    `db:"job_title" json:"job_title"`
	Email     string    `db:"email" json:"email"`
	ContactNo string    `db:"contact_no" json:"contact_no"`
	Gender    string    `db:"gender" json:"gender"`
	Subject   string    `db:"subject" json:"subject,omitempty"`
	Class     string    `db:"class" json:"class,omitempty"`
	Medium    string    `db:"medium" json:"medium,omitempty"`
	Salary    float64   `db:"salary" json:"salary"`
	Tenant    string    `db:"tenant" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterStaffRequest enrolls an employee. Teaching staff additionally
// carry subject, class and medium.
type RegisterStaffRequest struct {
	EmpID     string  `json:"emp_id" validate:"required"`
	Name      string  `json:"staff_name" validate:"required,min=2,max=50"`
	JobTitle  string  `json:"job_title" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	ContactNo string  `json:"contact_no" validate:"required"`
	Gender    string  `json:"gender" validate:"required"`
	Subject   string  `json:"subject"`
	Class     string  `json:"class"`
	Medium    string  `json:"medium"`
	Salary    float64 `json:"salary" validate:"gte=0"`
}

// PayrollSummary is one row of the salary aggregation by job title.
type PayrollSummary struct {
	JobTitle    string  `db:"job_title" json:"job_title"`
	Headcount   int     `db:"headcount" json:"headcount"`
	TotalSalary float64 `db:"total_salary" json:"total_salary"`
}
