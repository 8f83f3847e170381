package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"finreport/internal/core"
	"finreport/internal/store"
)

// Seed file names inside a seed directory. Missing files are treated as
// empty collections.
const (
	IncomesFile           = "incomes.json"
	ExpensesFile          = "expenses.json"
	JobsFile              = "jobs.json"
	PaymentsFile          = "job_payments.json"
	DedicatedExpensesFile = "job_expenses.json"
)

// Seed rows keep amounts loosely typed; upstream exports mix numbers,
// strings and nulls.
type (
	incomeRow struct {
		ID            string  `json:"id"`
		Amount        any     `json:"amount"`
		Date          string  `json:"date"`
		Category      string  `json:"category"`
		Type          string  `json:"type"`
		PaymentMethod string  `json:"payment_method"`
		JobID         *string `json:"job_id"`
		StaffID       string  `json:"staff_id"`
		Notes         string  `json:"notes"`
	}

	expenseRow struct {
		ID            string  `json:"id"`
		Amount        any     `json:"amount"`
		Date          string  `json:"date"`
		Category      string  `json:"category"`
		PaymentMethod string  `json:"payment_method"`
		JobID         *string `json:"job_id"`
		PaymentStatus string  `json:"payment_status"`
		Supplier      string  `json:"supplier"`
		StaffID       string  `json:"staff_id"`
		Notes         string  `json:"notes"`
	}

	jobRow struct {
		ID              string `json:"id"`
		JobNumber       string `json:"job_number"`
		Status          string `json:"status"`
		EstimatedAmount any    `json:"estimated_amount"`
	}

	paymentRow struct {
		ID            string `json:"id"`
		JobID         string `json:"job_id"`
		Amount        any    `json:"amount"`
		PaymentDate   string `json:"payment_date"`
		PaymentMethod string `json:"payment_method"`
		Notes         string `json:"notes"`
	}

	dedicatedExpenseRow struct {
		ID            string `json:"id"`
		JobID         string `json:"job_id"`
		Amount        any    `json:"amount"`
		Date          string `json:"date"`
		Category      string `json:"category"`
		Supplier      string `json:"supplier"`
		PaymentStatus string `json:"payment_status"`
		Notes         string `json:"notes"`
	}
)

// LoadDataset reads every seed file in dir. Amounts are coerced here and
// nowhere else.
func LoadDataset(dir string) (store.Dataset, error) {
	var ds store.Dataset

	var incomes []incomeRow
	if err := readSeed(filepath.Join(dir, IncomesFile), &incomes); err != nil {
		return ds, err
	}
	for _, r := range incomes {
		category := r.Category
		if category == "" {
			category = r.Type
		}
		ds.Incomes = append(ds.Incomes, core.Income{
			ID:            r.ID,
			Amount:        core.Amount(r.Amount),
			Date:          r.Date,
			Category:      category,
			PaymentMethod: r.PaymentMethod,
			JobID:         nonEmpty(r.JobID),
			StaffID:       r.StaffID,
			Notes:         r.Notes,
		})
	}

	var expenses []expenseRow
	if err := readSeed(filepath.Join(dir, ExpensesFile), &expenses); err != nil {
		return ds, err
	}
	for _, r := range expenses {
		ds.Expenses = append(ds.Expenses, core.Expense{
			ID:            r.ID,
			Amount:        core.Amount(r.Amount),
			Date:          r.Date,
			Category:      r.Category,
			PaymentMethod: r.PaymentMethod,
			JobID:         nonEmpty(r.JobID),
			PaymentStatus: core.ParsePaymentStatus(r.PaymentStatus),
			Supplier:      r.Supplier,
			StaffID:       r.StaffID,
			Notes:         r.Notes,
		})
	}

	var jobs []jobRow
	if err := readSeed(filepath.Join(dir, JobsFile), &jobs); err != nil {
		return ds, err
	}
	for _, r := range jobs {
		ds.Jobs = append(ds.Jobs, core.Job{
			ID:              r.ID,
			JobNumber:       r.JobNumber,
			Status:          r.Status,
			EstimatedAmount: core.Amount(r.EstimatedAmount),
		})
	}

	var payments []paymentRow
	if err := readSeed(filepath.Join(dir, PaymentsFile), &payments); err != nil {
		return ds, err
	}
	for _, r := range payments {
		ds.Payments = append(ds.Payments, core.Payment{
			ID:            r.ID,
			JobID:         r.JobID,
			Amount:        core.Amount(r.Amount),
			PaymentDate:   r.PaymentDate,
			PaymentMethod: r.PaymentMethod,
			Notes:         r.Notes,
		})
	}

	var dedicated []dedicatedExpenseRow
	if err := readSeed(filepath.Join(dir, DedicatedExpensesFile), &dedicated); err != nil {
		return ds, err
	}
	for _, r := range dedicated {
		ds.DedicatedExpenses = append(ds.DedicatedExpenses, core.DedicatedExpense{
			ID:            r.ID,
			JobID:         r.JobID,
			Amount:        core.Amount(r.Amount),
			Date:          r.Date,
			Category:      r.Category,
			Supplier:      r.Supplier,
			PaymentStatus: core.ParsePaymentStatus(r.PaymentStatus),
			Notes:         r.Notes,
		})
	}

	return ds, nil
}

func readSeed(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", filepath.Base(path), err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode seed %s: %w", filepath.Base(path), err)
	}
	return nil
}

func nonEmpty(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
