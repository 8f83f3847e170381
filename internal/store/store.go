// Package store defines the read side of the record store the reporting
// engine consumes, plus the filtering rules every adapter shares.
package store

import (
	"context"
	"time"

	"finreport/internal/core"
)

type (
	// RecordStore is the source of general-ledger records and job
	// sub-ledgers. Implementations own their own timeouts.
	RecordStore interface {
		GetIncomes(ctx context.Context, f core.Filters) ([]core.Income, error)
		GetExpenses(ctx context.Context, f core.Filters) ([]core.Expense, error)
		// GetJobLedger returns core.ErrJobNotFound (wrapped) for unknown jobs.
		GetJobLedger(ctx context.Context, jobID string) (JobLedger, error)
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// JobLedger is everything recorded against one job, from both sources.
	JobLedger struct {
		Job               core.Job
		DedicatedPayments []core.Payment
		DedicatedExpenses []core.DedicatedExpense
		LinkedIncomes     []core.Income
		LinkedExpenses    []core.Expense
	}

	// Dataset is a full dump of a record store, used for seeding.
	Dataset struct {
		Incomes           []core.Income
		Expenses          []core.Expense
		Jobs              []core.Job
		Payments          []core.Payment
		DedicatedExpenses []core.DedicatedExpense
	}
)

// MatchIncome reports whether i passes f. Records whose date cannot be
// parsed pass any date range so the aggregators can count them as skipped.
func MatchIncome(f core.Filters, i core.Income) bool {
	if !f.Match(i.Category, i.PaymentMethod, i.StaffID) {
		return false
	}
	return inRange(f, i.Date)
}

// MatchExpense is MatchIncome for expenses.
func MatchExpense(f core.Filters, e core.Expense) bool {
	if !f.Match(e.Category, e.PaymentMethod, e.StaffID) {
		return false
	}
	return inRange(f, e.Date)
}

func inRange(f core.Filters, raw string) bool {
	if f.StartDate.IsZero() && f.EndDate.IsZero() {
		return true
	}
	t, err := core.ParseDate(raw, filterLocation(f))
	if err != nil {
		return true
	}
	return f.InRange(t)
}

func filterLocation(f core.Filters) *time.Location {
	if !f.StartDate.IsZero() {
		return f.StartDate.Location()
	}
	return f.EndDate.Location()
}
