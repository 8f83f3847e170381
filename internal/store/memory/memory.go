// Package memory is an in-process record store, seeded from JSON files.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finreport/internal/core"
	"finreport/internal/store"
)

type Store struct {
	mu sync.RWMutex
	ds store.Dataset
}

var _ store.RecordStore = (*Store)(nil)

func New(ds store.Dataset) *Store {
	return &Store{ds: ds}
}

// NewFromDir loads a store from the seed files in dir.
func NewFromDir(dir string) (*Store, error) {
	ds, err := LoadDataset(dir)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

func (s *Store) GetIncomes(ctx context.Context, f core.Filters) ([]core.Income, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Income, 0, len(s.ds.Incomes))
	for _, i := range s.ds.Incomes {
		if store.MatchIncome(f, i) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *Store) GetExpenses(ctx context.Context, f core.Filters) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0, len(s.ds.Expenses))
	for _, e := range s.ds.Expenses {
		if store.MatchExpense(f, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetJobLedger(ctx context.Context, jobID string) (store.JobLedger, error) {
	if err := ctx.Err(); err != nil {
		return store.JobLedger{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var l store.JobLedger
	found := false
	for _, j := range s.ds.Jobs {
		if j.ID == jobID {
			l.Job, found = j, true
			break
		}
	}
	if !found {
		return l, fmt.Errorf("job %q: %w", jobID, core.ErrJobNotFound)
	}
	for _, p := range s.ds.Payments {
		if p.JobID == jobID {
			l.DedicatedPayments = append(l.DedicatedPayments, p)
		}
	}
	for _, e := range s.ds.DedicatedExpenses {
		if e.JobID == jobID {
			l.DedicatedExpenses = append(l.DedicatedExpenses, e)
		}
	}
	for _, i := range s.ds.Incomes {
		if i.LinkedTo(jobID) {
			l.LinkedIncomes = append(l.LinkedIncomes, i)
		}
	}
	for _, e := range s.ds.Expenses {
		if e.LinkedTo(jobID) {
			l.LinkedExpenses = append(l.LinkedExpenses, e)
		}
	}
	return l, nil
}

// Dataset returns a copy of everything the store holds.
func (s *Store) Dataset() store.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Dataset{
		Incomes:           append([]core.Income(nil), s.ds.Incomes...),
		Expenses:          append([]core.Expense(nil), s.ds.Expenses...),
		Jobs:              append([]core.Job(nil), s.ds.Jobs...),
		Payments:          append([]core.Payment(nil), s.ds.Payments...),
		DedicatedExpenses: append([]core.DedicatedExpense(nil), s.ds.DedicatedExpenses...),
	}
}

// AddIncome appends an income. It exists for tests and local tooling; the
// reporting path never writes.
func (s *Store) AddIncome(i core.Income) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds.Incomes = append(s.ds.Incomes, i)
}

// AddExpense appends an expense.
func (s *Store) AddExpense(e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds.Expenses = append(s.ds.Expenses, e)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
