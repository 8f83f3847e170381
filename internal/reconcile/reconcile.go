// Package reconcile merges a job's dedicated sub-ledger with the general-ledger
// records linked to it.
//
// Historical migrations copied some dedicated payments into the general ledger
// and linked the copies back to their job. Both copies still exist, so a naive
// union counts every migrated entry twice. Reconcile drops the dedicated side
// of each such pair, recognizing it by coincidence of amount and calendar day.
package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finreport/internal/core"
	"finreport/internal/store"
)

// Source tells where a reconciled entry came from.
type Source string

const (
	SourceDedicated Source = "dedicated"
	SourceLinked    Source = "linked"
)

// Options tune reconciliation.
type Options struct {
	// DedupExpenses applies the duplicate rule to expenses as well as
	// payments. When false every dedicated expense is kept.
	DedupExpenses bool
	// Location decides calendar days. Nil means UTC.
	Location *time.Location
}

// DefaultOptions dedups both sides in UTC.
func DefaultOptions() Options {
	return Options{DedupExpenses: true, Location: time.UTC}
}

// Entry is one payment or expense in the unified view.
type Entry struct {
	ID            string             `json:"id"`
	Source        Source             `json:"source"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          string             `json:"date"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Category      string             `json:"category,omitempty"`
	Supplier      string             `json:"supplier,omitempty"`
	PaymentStatus core.PaymentStatus `json:"payment_status,omitempty"`
	Notes         string             `json:"notes,omitempty"`

	at    time.Time
	dated bool
}

// View is the de-duplicated ledger of one job. Totals cover Payments and
// Expenses only; excluded entries are kept for audit.
type View struct {
	Job              core.Job        `json:"job"`
	Payments         []Entry         `json:"payments"`
	Expenses         []Entry         `json:"expenses"`
	ExcludedPayments []Entry         `json:"excluded_payments"`
	ExcludedExpenses []Entry         `json:"excluded_expenses"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
}

// IsLegacyDuplicate reports whether two records are the same money movement:
// amounts within core.AmountTolerance and dates on the same calendar day in
// loc. A date that cannot be parsed never matches.
func IsLegacyDuplicate(amountA decimal.Decimal, dateA string, amountB decimal.Decimal, dateB string, loc *time.Location) bool {
	if !core.SameAmount(amountA, amountB) {
		return false
	}
	a, err := core.ParseDate(dateA, loc)
	if err != nil {
		return false
	}
	b, err := core.ParseDate(dateB, loc)
	if err != nil {
		return false
	}
	return core.CalendarDay(a, loc) == core.CalendarDay(b, loc)
}

// Reconcile builds the unified view of l.
func Reconcile(l store.JobLedger, opts Options) View {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	v := View{
		Job:              l.Job,
		Payments:         []Entry{},
		Expenses:         []Entry{},
		ExcludedPayments: []Entry{},
		ExcludedExpenses: []Entry{},
	}

	linkedIncomes := make([]Entry, 0, len(l.LinkedIncomes))
	for _, i := range l.LinkedIncomes {
		linkedIncomes = append(linkedIncomes, Entry{
			ID:            i.ID,
			Source:        SourceLinked,
			Amount:        i.Amount,
			Date:          i.Date,
			PaymentMethod: i.PaymentMethod,
			Category:      i.Category,
			Notes:         i.Notes,
		})
	}
	for _, p := range l.DedicatedPayments {
		e := Entry{
			ID:            p.ID,
			Source:        SourceDedicated,
			Amount:        p.Amount,
			Date:          p.PaymentDate,
			PaymentMethod: p.PaymentMethod,
			Notes:         p.Notes,
		}
		if matchesAny(e, linkedIncomes, loc) {
			v.ExcludedPayments = append(v.ExcludedPayments, e)
			continue
		}
		v.Payments = append(v.Payments, e)
	}
	v.Payments = append(v.Payments, linkedIncomes...)

	linkedExpenses := make([]Entry, 0, len(l.LinkedExpenses))
	for _, x := range l.LinkedExpenses {
		linkedExpenses = append(linkedExpenses, Entry{
			ID:            x.ID,
			Source:        SourceLinked,
			Amount:        x.Amount,
			Date:          x.Date,
			PaymentMethod: x.PaymentMethod,
			Category:      x.Category,
			Supplier:      x.Supplier,
			PaymentStatus: x.PaymentStatus,
			Notes:         x.Notes,
		})
	}
	for _, x := range l.DedicatedExpenses {
		e := Entry{
			ID:            x.ID,
			Source:        SourceDedicated,
			Amount:        x.Amount,
			Date:          x.Date,
			Category:      x.Category,
			Supplier:      x.Supplier,
			PaymentStatus: x.PaymentStatus,
			Notes:         x.Notes,
		}
		if opts.DedupExpenses && matchesAny(e, linkedExpenses, loc) {
			v.ExcludedExpenses = append(v.ExcludedExpenses, e)
			continue
		}
		v.Expenses = append(v.Expenses, e)
	}
	v.Expenses = append(v.Expenses, linkedExpenses...)

	for _, entries := range [][]Entry{v.Payments, v.Expenses, v.ExcludedPayments, v.ExcludedExpenses} {
		sortNewestFirst(entries, loc)
	}
	v.TotalPaid = sum(v.Payments)
	v.TotalExpenses = sum(v.Expenses)
	return v
}

func matchesAny(e Entry, linked []Entry, loc *time.Location) bool {
	for _, l := range linked {
		if IsLegacyDuplicate(e.Amount, e.Date, l.Amount, l.Date, loc) {
			return true
		}
	}
	return false
}

// sortNewestFirst orders entries by date descending. Undated entries go last;
// ties fall back to source then ID so the order is stable across calls.
func sortNewestFirst(entries []Entry, loc *time.Location) {
	for i := range entries {
		if t, err := core.ParseDate(entries[i].Date, loc); err == nil {
			entries[i].at, entries[i].dated = t, true
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.dated != b.dated {
			return a.dated
		}
		if a.dated && !a.at.Equal(b.at) {
			return a.at.After(b.at)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
}

func sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
