// Package report turns materialized ledger records into trend series,
// drill-down groups and summaries. Every function here is a pure function of
// its arguments.
package report

import (
	"github.com/shopspring/decimal"

	"finreport/internal/core"
	"finreport/internal/period"
)

// Series holds per-bucket totals for a period. All slices are parallel and
// have one entry per bucket.
type Series struct {
	Period        period.Period     `json:"period"`
	Buckets       []period.Bucket   `json:"buckets"`
	BucketKeys    []string          `json:"bucket_keys"`
	IncomeTotals  []decimal.Decimal `json:"income_totals"`
	ExpenseTotals []decimal.Decimal `json:"expense_totals"`
	ProfitTotals  []decimal.Decimal `json:"profit_totals"`

	// Skipped counts records excluded because their date was missing or
	// malformed.
	Skipped int `json:"skipped"`
}

// Len returns the number of buckets.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.BucketKeys)
}

// TotalIncome sums the income column.
func (s *Series) TotalIncome() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, s.IncomeTotals...)
}

// TotalExpense sums the expense column.
func (s *Series) TotalExpense() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, s.ExpenseTotals...)
}

// AggregateSeries buckets incomes and expenses over p.
//
// It returns nil when p is unresolved, so callers can render an empty state
// instead of failing. Records whose date cannot be parsed are skipped and
// counted; records outside the period are ignored.
func AggregateSeries(incomes []core.Income, expenses []core.Expense, p period.Period) *Series {
	if !p.Valid() {
		return nil
	}
	buckets := period.Buckets(p)
	s := &Series{
		Period:        p,
		Buckets:       buckets,
		BucketKeys:    make([]string, len(buckets)),
		IncomeTotals:  zeros(len(buckets)),
		ExpenseTotals: zeros(len(buckets)),
		ProfitTotals:  zeros(len(buckets)),
	}
	for i, b := range buckets {
		s.BucketKeys[i] = b.Key
	}

	for _, inc := range incomes {
		if i, ok := s.locate(inc.Date); ok {
			s.IncomeTotals[i] = s.IncomeTotals[i].Add(inc.Amount)
		}
	}
	for _, exp := range expenses {
		if i, ok := s.locate(exp.Date); ok {
			s.ExpenseTotals[i] = s.ExpenseTotals[i].Add(exp.Amount)
		}
	}
	for i := range buckets {
		s.ProfitTotals[i] = s.IncomeTotals[i].Sub(s.ExpenseTotals[i])
	}
	return s
}

// locate finds the bucket for a record date, counting unparsable dates.
func (s *Series) locate(raw string) (int, bool) {
	t, err := core.ParseDate(raw, s.Period.Location())
	if err != nil {
		s.Skipped++
		return 0, false
	}
	i := period.Locate(s.Buckets, t)
	return i, i >= 0
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
