package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finreport/internal/core"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		income     string
		expense    string
		wantProfit string
		wantMargin string
	}{
		{"typical", "1000", "400", "600", "60"},
		{"loss", "200", "300", "-100", "-50"},
		{"no income", "0", "150", "-150", "0"},
		{"repeating fraction", "3", "2", "1", "33.33"},
		{"empty", "0", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(d(tt.income), d(tt.expense))
			assert.Equal(t, tt.wantProfit, s.Profit.String())
			assert.Equal(t, tt.wantMargin, s.ProfitMargin.String())
			assert.True(t, s.Profit.Equal(s.TotalIncome.Sub(s.TotalExpense)))
		})
	}
}

func TestSummarizeRecords(t *testing.T) {
	incomes := []core.Income{{Amount: d("600")}, {Amount: core.Amount("400")}}
	expenses := []core.Expense{{Amount: d("250")}, {Amount: core.Amount(nil)}, {Amount: core.Amount("oops")}}
	s := SummarizeRecords(incomes, expenses)
	assert.Equal(t, "1000", s.TotalIncome.String())
	assert.Equal(t, "250", s.TotalExpense.String())
	assert.Equal(t, "75", s.ProfitMargin.String())
}

func TestSummarizeJob(t *testing.T) {
	job := core.Job{ID: "j1", JobNumber: "J-001", Status: "active", EstimatedAmount: d("1500")}
	s := SummarizeJob(job, d("1000"), d("400"))
	assert.Equal(t, "J-001", s.JobNumber)
	assert.Equal(t, "600", s.Profit.String())
	assert.Equal(t, "60", s.ProfitMargin.String())
	assert.Equal(t, "500", s.Outstanding.String())
}
