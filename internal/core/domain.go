package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Paid   PaymentStatus = "paid"
	Unpaid PaymentStatus = "unpaid"
)

type (
	// PaymentStatus classifies an expense for drill-down summaries.
	PaymentStatus string

	Income struct {
		ID            string          `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Date          string          `json:"date"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"payment_method"`
		JobID         *string         `json:"job_id,omitempty"`
		StaffID       string          `json:"staff_id,omitempty"`
		Notes         string          `json:"notes,omitempty"`
	}

	Expense struct {
		ID            string          `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Date          string          `json:"date"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"payment_method"`
		JobID         *string         `json:"job_id,omitempty"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		Supplier      string          `json:"supplier,omitempty"`
		StaffID       string          `json:"staff_id,omitempty"`
		Notes         string          `json:"notes,omitempty"`
	}

	// Job is a unit of billable work. It owns a dedicated sub-ledger and may be
	// referenced by general-ledger records through their JobID.
	Job struct {
		ID              string          `json:"id"`
		JobNumber       string          `json:"job_number"`
		Status          string          `json:"status"`
		EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	}

	// Payment is a dedicated sub-ledger payment scoped to exactly one job.
	Payment struct {
		ID            string          `json:"id"`
		JobID         string          `json:"job_id"`
		Amount        decimal.Decimal `json:"amount"`
		PaymentDate   string          `json:"payment_date"`
		PaymentMethod string          `json:"payment_method"`
		Notes         string          `json:"notes,omitempty"`
	}

	// DedicatedExpense is a dedicated sub-ledger expense scoped to exactly one job.
	DedicatedExpense struct {
		ID            string          `json:"id"`
		JobID         string          `json:"job_id"`
		Amount        decimal.Decimal `json:"amount"`
		Date          string          `json:"date"`
		Category      string          `json:"category"`
		Supplier      string          `json:"supplier,omitempty"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		Notes         string          `json:"notes,omitempty"`
	}

	// Filters narrows record store reads. Every field is optional; set fields
	// are exact-match and AND-combined. The date range is half-open.
	Filters struct {
		StartDate     time.Time
		EndDate       time.Time
		Category      string
		PaymentMethod string
		StaffID       string
	}
)

// IsPaid reports whether the status counts towards the paid split. Anything
// other than an explicit "paid" is treated as unpaid.
func (s PaymentStatus) IsPaid() bool {
	return s == Paid
}

// ParsePaymentStatus normalizes a stored status value. Unknown values are
// kept verbatim and count as unpaid.
func ParsePaymentStatus(s string) PaymentStatus {
	v := strings.ToLower(strings.TrimSpace(s))
	switch PaymentStatus(v) {
	case Paid, Unpaid:
		return PaymentStatus(v)
	}
	return PaymentStatus(s)
}

// LinkedTo reports whether the income references the given job.
func (i Income) LinkedTo(jobID string) bool {
	return i.JobID != nil && *i.JobID == jobID
}

// LinkedTo reports whether the expense references the given job.
func (e Expense) LinkedTo(jobID string) bool {
	return e.JobID != nil && *e.JobID == jobID
}

// IsZero reports whether no filter field is set.
func (f Filters) IsZero() bool {
	return f.StartDate.IsZero() && f.EndDate.IsZero() &&
		f.Category == "" && f.PaymentMethod == "" && f.StaffID == ""
}

// Key returns a stable identity for the attribute filters, used to tell
// requests apart. The date range is not part of it.
func (f Filters) Key() string {
	return "c=" + f.Category + "|m=" + f.PaymentMethod + "|s=" + f.StaffID
}

// Match reports whether a record with the given attributes passes the
// attribute filters. Dates are checked separately by InRange.
func (f Filters) Match(category, paymentMethod, staffID string) bool {
	if f.Category != "" && f.Category != category {
		return false
	}
	if f.PaymentMethod != "" && f.PaymentMethod != paymentMethod {
		return false
	}
	if f.StaffID != "" && f.StaffID != staffID {
		return false
	}
	return true
}

// InRange reports whether t falls inside [StartDate, EndDate). Unset bounds
// are open.
func (f Filters) InRange(t time.Time) bool {
	if !f.StartDate.IsZero() && t.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && !t.Before(f.EndDate) {
		return false
	}
	return true
}

// Validate checks that a bounded date range is not inverted.
func (f Filters) Validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && !f.EndDate.After(f.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidFilters)
	}
	return nil
}
