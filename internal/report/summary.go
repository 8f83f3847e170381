package report

import (
	"github.com/shopspring/decimal"

	"finreport/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Summary is the headline figure set of a report. Profit and ProfitMargin
// are always derived from the two totals.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// Summarize derives profit and margin. The margin is a percentage of income
// rounded to two places, and zero when there is no positive income.
func Summarize(totalIncome, totalExpense decimal.Decimal) Summary {
	profit := totalIncome.Sub(totalExpense)
	margin := decimal.Zero
	if totalIncome.IsPositive() {
		margin = profit.Mul(hundred).Div(totalIncome).Round(2)
	}
	return Summary{
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		Profit:       profit,
		ProfitMargin: margin,
	}
}

// SummarizeSeries summarizes the totals of a series. A nil series gives an
// all-zero summary.
func SummarizeSeries(s *Series) Summary {
	return Summarize(s.TotalIncome(), s.TotalExpense())
}

// SummarizeRecords summarizes raw records regardless of their dates.
func SummarizeRecords(incomes []core.Income, expenses []core.Expense) Summary {
	in, out := decimal.Zero, decimal.Zero
	for _, i := range incomes {
		in = in.Add(i.Amount)
	}
	for _, e := range expenses {
		out = out.Add(e.Amount)
	}
	return Summarize(in, out)
}

// JobSummary is the reconciled financial position of one job.
type JobSummary struct {
	JobID           string          `json:"job_id"`
	JobNumber       string          `json:"job_number"`
	Status          string          `json:"status"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	Summary
}

// SummarizeJob derives a job summary from reconciled totals. Outstanding is
// the estimate minus what has been paid so far.
func SummarizeJob(job core.Job, totalPaid, totalExpenses decimal.Decimal) JobSummary {
	return JobSummary{
		JobID:           job.ID,
		JobNumber:       job.JobNumber,
		Status:          job.Status,
		EstimatedAmount: job.EstimatedAmount,
		Outstanding:     job.EstimatedAmount.Sub(totalPaid),
		Summary:         Summarize(totalPaid, totalExpenses),
	}
}
