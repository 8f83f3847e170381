package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finreport/internal/core"
	"finreport/internal/store"
)

func writeSeed(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writeSeed(t, dir, IncomesFile, `[
		{"id":"i1","amount":500,"date":"2024-03-01","type":"Service","payment_method":"card","job_id":"j1"},
		{"id":"i2","amount":"300.50","date":"2024-03-15","category":"Product","payment_method":"cash","staff_id":"s1"},
		{"id":"i3","amount":null,"date":"2024-02-10","category":"Service","job_id":""}
	]`)
	writeSeed(t, dir, ExpensesFile, `[
		{"id":"e1","amount":"1,234.50","date":"2024-03-20","category":"Materials","payment_status":"Paid","job_id":"j1"},
		{"id":"e2","amount":"abc","date":"bad","category":"Fuel","payment_status":"unpaid"}
	]`)
	writeSeed(t, dir, JobsFile, `[{"id":"j1","job_number":"J-1","status":"active","estimated_amount":"2000"}]`)
	writeSeed(t, dir, PaymentsFile, `[{"id":"p1","job_id":"j1","amount":500,"payment_date":"2024-03-01"}]`)
	writeSeed(t, dir, DedicatedExpensesFile, `[{"id":"d1","job_id":"j1","amount":75.5,"date":"2024-03-02","payment_status":"paid"}]`)

	s, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	return s
}

func TestNewFromDirCoercesAmounts(t *testing.T) {
	ds := seededStore(t).Dataset()

	want := map[string]string{"i1": "500", "i2": "300.5", "i3": "0"}
	for _, i := range ds.Incomes {
		if got := i.Amount.String(); got != want[i.ID] {
			t.Errorf("income %s amount = %s, want %s", i.ID, got, want[i.ID])
		}
	}
	if ds.Incomes[0].Category != "Service" {
		t.Errorf("type should fill category, got %q", ds.Incomes[0].Category)
	}
	if ds.Incomes[2].JobID != nil {
		t.Errorf("empty job_id should be nil")
	}
	if got := ds.Expenses[0].Amount.String(); got != "1234.5" {
		t.Errorf("expense amount = %s, want 1234.5", got)
	}
	if ds.Expenses[0].PaymentStatus != core.Paid {
		t.Errorf("status = %q, want paid", ds.Expenses[0].PaymentStatus)
	}
	if !ds.Expenses[1].Amount.IsZero() {
		t.Errorf("non-numeric amount should coerce to zero")
	}
	if got := ds.DedicatedExpenses[0].Amount.String(); got != "75.5" {
		t.Errorf("dedicated expense amount = %s", got)
	}
}

func TestNewFromDirMissingFiles(t *testing.T) {
	s, err := NewFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	incomes, err := s.GetIncomes(context.Background(), core.Filters{})
	if err != nil || len(incomes) != 0 {
		t.Fatalf("expected empty store, got %v %v", incomes, err)
	}
}

func TestNewFromDirBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, ExpensesFile, `{"not":"a list"`)
	if _, err := NewFromDir(dir); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetIncomesFilters(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	march := core.Filters{
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		f    core.Filters
		want []string
	}{
		{"no filters", core.Filters{}, []string{"i1", "i2", "i3"}},
		{"date range", march, []string{"i1", "i2"}},
		{"category", core.Filters{Category: "Service"}, []string{"i1", "i3"}},
		{"staff", core.Filters{StaffID: "s1"}, []string{"i2"}},
		{"combined", core.Filters{StartDate: march.StartDate, EndDate: march.EndDate, PaymentMethod: "cash"}, []string{"i2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetIncomes(ctx, tt.f)
			if err != nil {
				t.Fatalf("GetIncomes: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d incomes, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("incomes[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestGetExpensesDateRangeKeepsUndated(t *testing.T) {
	s := seededStore(t)
	f := core.Filters{StartDate: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)}
	got, err := s.GetExpenses(context.Background(), f)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	// e1 is dated before the range; e2's date is unparsable.
	if len(got) != 1 || got[0].ID != "e2" {
		t.Fatalf("unexpected expenses: %+v", got)
	}
}

func TestGetExpensesInvalidFilters(t *testing.T) {
	s := seededStore(t)
	f := core.Filters{
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := s.GetExpenses(context.Background(), f)
	if !errors.Is(err, core.ErrInvalidFilters) {
		t.Fatalf("expected ErrInvalidFilters, got %v", err)
	}
}

func TestGetJobLedger(t *testing.T) {
	s := seededStore(t)
	l, err := s.GetJobLedger(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJobLedger: %v", err)
	}
	if l.Job.JobNumber != "J-1" || l.Job.EstimatedAmount.String() != "2000" {
		t.Errorf("unexpected job: %+v", l.Job)
	}
	if len(l.DedicatedPayments) != 1 || len(l.DedicatedExpenses) != 1 {
		t.Errorf("unexpected dedicated ledger: %+v", l)
	}
	if len(l.LinkedIncomes) != 1 || l.LinkedIncomes[0].ID != "i1" {
		t.Errorf("unexpected linked incomes: %+v", l.LinkedIncomes)
	}
	if len(l.LinkedExpenses) != 1 || l.LinkedExpenses[0].ID != "e1" {
		t.Errorf("unexpected linked expenses: %+v", l.LinkedExpenses)
	}

	_, err = s.GetJobLedger(context.Background(), "nope")
	if !errors.Is(err, core.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	s := New(store.Dataset{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.GetIncomes(ctx, core.Filters{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
