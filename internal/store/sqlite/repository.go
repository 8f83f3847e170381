// Package sqlite is a record store backed by a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finreport/internal/core"
	"finreport/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db      *sql.DB
	version uint
}

var _ store.RecordStore = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, version: version}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *Repository) SchemaVersion() uint {
	return r.version
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// attributeClause renders the exact-match filters as SQL. Date bounds are
// checked after scanning because stored dates mix layouts.
func attributeClause(f core.Filters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.PaymentMethod != "" {
		conds = append(conds, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.StaffID != "" {
		conds = append(conds, "staff_id = ?")
		args = append(args, f.StaffID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const (
	incomeColumns  = "id, amount, date, category, payment_method, job_id, staff_id, notes"
	expenseColumns = "id, amount, date, category, payment_method, job_id, payment_status, supplier, staff_id, notes"
)

func (r *Repository) GetIncomes(ctx context.Context, f core.Filters) ([]core.Income, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := attributeClause(f)
	rows, err := r.db.QueryContext(ctx, "SELECT "+incomeColumns+" FROM incomes"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		if store.MatchIncome(f, i) {
			out = append(out, i)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomes: %w", err)
	}
	return out, nil
}

func (r *Repository) GetExpenses(ctx context.Context, f core.Filters) ([]core.Expense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := attributeClause(f)
	rows, err := r.db.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses"+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		if store.MatchExpense(f, e) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) GetJobLedger(ctx context.Context, jobID string) (store.JobLedger, error) {
	var (
		l      store.JobLedger
		amount any
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, job_number, status, estimated_amount FROM jobs WHERE id = ?", jobID,
	).Scan(&l.Job.ID, &l.Job.JobNumber, &l.Job.Status, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("job %q: %w", jobID, core.ErrJobNotFound)
	}
	if err != nil {
		return l, fmt.Errorf("get job: %w", err)
	}
	l.Job.EstimatedAmount = core.Amount(amount)

	if l.DedicatedPayments, err = r.jobPayments(ctx, jobID); err != nil {
		return l, err
	}
	if l.DedicatedExpenses, err = r.jobExpenses(ctx, jobID); err != nil {
		return l, err
	}
	if l.LinkedIncomes, err = r.linkedIncomes(ctx, jobID); err != nil {
		return l, err
	}
	if l.LinkedExpenses, err = r.linkedExpenses(ctx, jobID); err != nil {
		return l, err
	}
	return l, nil
}

func (r *Repository) jobPayments(ctx context.Context, jobID string) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, job_id, amount, payment_date, payment_method, notes FROM job_payments WHERE job_id = ? ORDER BY payment_date, id", jobID)
	if err != nil {
		return nil, fmt.Errorf("query job payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p      core.Payment
			amount any
		)
		if err := rows.Scan(&p.ID, &p.JobID, &amount, &p.PaymentDate, &p.PaymentMethod, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan job payment: %w", err)
		}
		p.Amount = core.Amount(amount)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) jobExpenses(ctx context.Context, jobID string) ([]core.DedicatedExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, job_id, amount, date, category, supplier, payment_status, notes FROM job_expenses WHERE job_id = ? ORDER BY date, id", jobID)
	if err != nil {
		return nil, fmt.Errorf("query job expenses: %w", err)
	}
	defer rows.Close()

	var out []core.DedicatedExpense
	for rows.Next() {
		var (
			e      core.DedicatedExpense
			amount any
			status string
		)
		if err := rows.Scan(&e.ID, &e.JobID, &amount, &e.Date, &e.Category, &e.Supplier, &status, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan job expense: %w", err)
		}
		e.Amount = core.Amount(amount)
		e.PaymentStatus = core.ParsePaymentStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) linkedIncomes(ctx context.Context, jobID string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+incomeColumns+" FROM incomes WHERE job_id = ? ORDER BY date, id", jobID)
	if err != nil {
		return nil, fmt.Errorf("query linked incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *Repository) linkedExpenses(ctx context.Context, jobID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE job_id = ? ORDER BY date, id", jobID)
	if err != nil {
		return nil, fmt.Errorf("query linked expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanIncome(rows *sql.Rows) (core.Income, error) {
	var (
		i      core.Income
		amount any
		jobID  sql.NullString
	)
	if err := rows.Scan(&i.ID, &amount, &i.Date, &i.Category, &i.PaymentMethod, &jobID, &i.StaffID, &i.Notes); err != nil {
		return i, fmt.Errorf("scan income: %w", err)
	}
	i.Amount = core.Amount(amount)
	i.JobID = nullableID(jobID)
	return i, nil
}

func scanExpense(rows *sql.Rows) (core.Expense, error) {
	var (
		e      core.Expense
		amount any
		jobID  sql.NullString
		status string
	)
	if err := rows.Scan(&e.ID, &amount, &e.Date, &e.Category, &e.PaymentMethod, &jobID, &status, &e.Supplier, &e.StaffID, &e.Notes); err != nil {
		return e, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = core.Amount(amount)
	e.JobID = nullableID(jobID)
	e.PaymentStatus = core.ParsePaymentStatus(status)
	return e, nil
}

func nullableID(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

// Import upserts a dataset in one transaction. It backs the seed command;
// the reporting path only reads.
func (r *Repository) Import(ctx context.Context, ds store.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, j := range ds.Jobs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO jobs (id, job_number, status, estimated_amount) VALUES (?, ?, ?, ?)",
			j.ID, j.JobNumber, j.Status, j.EstimatedAmount.String()); err != nil {
			return fmt.Errorf("import job %s: %w", j.ID, err)
		}
	}
	for _, i := range ds.Incomes {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO incomes ("+incomeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			i.ID, i.Amount.String(), i.Date, i.Category, i.PaymentMethod, i.JobID, i.StaffID, i.Notes); err != nil {
			return fmt.Errorf("import income %s: %w", i.ID, err)
		}
	}
	for _, e := range ds.Expenses {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			e.ID, e.Amount.String(), e.Date, e.Category, e.PaymentMethod, e.JobID, string(e.PaymentStatus), e.Supplier, e.StaffID, e.Notes); err != nil {
			return fmt.Errorf("import expense %s: %w", e.ID, err)
		}
	}
	for _, p := range ds.Payments {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO job_payments (id, job_id, amount, payment_date, payment_method, notes) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, p.JobID, p.Amount.String(), p.PaymentDate, p.PaymentMethod, p.Notes); err != nil {
			return fmt.Errorf("import job payment %s: %w", p.ID, err)
		}
	}
	for _, e := range ds.DedicatedExpenses {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO job_expenses (id, job_id, amount, date, category, supplier, payment_status, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			e.ID, e.JobID, e.Amount.String(), e.Date, e.Category, e.Supplier, string(e.PaymentStatus), e.Notes); err != nil {
			return fmt.Errorf("import job expense %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Dataset imported",
		"incomes", len(ds.Incomes),
		"expenses", len(ds.Expenses),
		"jobs", len(ds.Jobs),
		"job_payments", len(ds.Payments),
		"job_expenses", len(ds.DedicatedExpenses))
	return nil
}
