package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finreport/internal/cache"
	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/period"
	"finreport/internal/reconcile"
	"finreport/internal/report"
	"finreport/internal/store"
)

// RecordKind selects which side of the ledger a category report covers.
type RecordKind string

const (
	KindIncome  RecordKind = "income"
	KindExpense RecordKind = "expense"
)

// ParseRecordKind maps user input onto a record kind. Empty means expense.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "expense", "expenses":
		return KindExpense, nil
	case "income", "incomes":
		return KindIncome, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

const (
	recordsKeyPrefix = "records:"
	jobKeyPrefix     = "job:"
)

// periodRecords is what one record store round trip returns for a period.
type periodRecords struct {
	period   period.Period
	incomes  []core.Income
	expenses []core.Expense
}

// JobReport is the reconciled ledger of a job and its headline figures.
type JobReport struct {
	View    reconcile.View    `json:"ledger"`
	Summary report.JobSummary `json:"summary"`
}

// Config tunes a ReportService.
type Config struct {
	Location  *time.Location
	CacheSize int
	CacheTTL  time.Duration
	Reconcile reconcile.Options
	// FetchTimeout bounds one shared record store round trip. It is
	// independent of the callers waiting on it.
	FetchTimeout time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// ReportService answers report queries from a record store. Fetched records
// are cached per period and filter set; everything derived from them is
// recomputed on each call because aggregation is cheap and pure.
type ReportService struct {
	store   store.RecordStore
	records *cache.LRUCache[*periodRecords]
	jobs    *cache.LRUCache[JobReport]
	group   singleflight.Group
	logger  *log.Logger
	events  *log.StructuredLogger
	loc     *time.Location
	now     func() time.Time
	recOpts reconcile.Options
	timeout time.Duration

	// genMu orders cache writes against invalidations. A fetch only caches
	// its result if no invalidation happened since it started.
	genMu      sync.Mutex
	recordsGen uint64
	jobsGen    uint64
}

func NewReportService(rs store.RecordStore, cfg Config, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	recOpts := cfg.Reconcile
	if recOpts.Location == nil {
		recOpts.Location = loc
	}
	logger = logger.WithComponent(log.ComponentReport)
	return &ReportService{
		store:   rs,
		records: cache.NewLRUCache[*periodRecords](size, ttl),
		jobs:    cache.NewLRUCache[JobReport](size, ttl),
		logger:  logger,
		events:  log.NewStructuredLogger(logger),
		loc:     loc,
		now:     now,
		recOpts: recOpts,
		timeout: timeout,
	}
}

// Caches exposes the service caches so a cache.Manager can sweep them.
func (s *ReportService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.records, s.jobs}
}

// Resolve resolves a period of type t around the service clock.
func (s *ReportService) Resolve(t period.Type) (period.Period, error) {
	return period.Resolve(t, s.now().In(s.loc))
}

// Series returns the trend series for the current period of type t. It
// returns a nil series and no error when the period cannot be resolved.
func (s *ReportService) Series(ctx context.Context, t period.Type, f core.Filters) (*report.Series, error) {
	p, err := s.Resolve(t)
	if err != nil {
		return nil, unresolved(err)
	}
	recs, hit, err := s.fetch(ctx, p, f)
	if err != nil {
		return nil, err
	}
	series := report.AggregateSeries(recs.incomes, recs.expenses, recs.period)
	s.events.LogReportBuilt(ctx, "series", p.Key(), series.Skipped, hit)
	return series, nil
}

// Categories groups the records of one kind for the current period.
func (s *ReportService) Categories(ctx context.Context, t period.Type, kind RecordKind, dim report.Dimension, f core.Filters) ([]report.CategoryGroup, error) {
	p, err := s.Resolve(t)
	if err != nil {
		return nil, unresolved(err)
	}
	recs, hit, err := s.fetch(ctx, p, f)
	if err != nil {
		return nil, err
	}
	var groups []report.CategoryGroup
	if kind == KindIncome {
		groups = report.GroupIncomes(recs.incomes, dim, s.loc)
	} else {
		groups = report.GroupExpenses(recs.expenses, dim, s.loc)
	}
	s.events.LogReportBuilt(ctx, "categories:"+string(kind), p.Key(), 0, hit)
	return groups, nil
}

// Summary returns the headline figures for the current period. Totals come
// from the bucketed series so they agree with the trend chart.
func (s *ReportService) Summary(ctx context.Context, t period.Type, f core.Filters) (report.Summary, error) {
	series, err := s.Series(ctx, t, f)
	if err != nil {
		return report.Summary{}, err
	}
	return report.SummarizeSeries(series), nil
}

// JobLedger reconciles and summarizes one job.
func (s *ReportService) JobLedger(ctx context.Context, jobID string) (JobReport, error) {
	key := jobKeyPrefix + jobID
	if jr, ok := s.jobs.Get(key); ok {
		return jr, nil
	}

	gen := s.generation(&s.jobsGen)
	v, err := s.shared(ctx, flightKey(key, gen), "get job ledger", func(ctx context.Context) (any, error) {
		l, err := s.store.GetJobLedger(ctx, jobID)
		if err != nil {
			if errors.Is(err, core.ErrJobNotFound) {
				return JobReport{}, err
			}
			return JobReport{}, &core.UpstreamFetchError{Op: "get job ledger", Err: err}
		}
		view := reconcile.Reconcile(l, s.recOpts)
		jr := JobReport{
			View:    view,
			Summary: report.SummarizeJob(view.Job, view.TotalPaid, view.TotalExpenses),
		}
		s.cacheIfCurrent(&s.jobsGen, gen, func() { s.jobs.Set(key, jr) })
		s.events.LogReconciled(ctx, jobID, len(view.ExcludedPayments)+len(view.ExcludedExpenses))
		return jr, nil
	})
	if err != nil {
		return JobReport{}, err
	}
	return v.(JobReport), nil
}

// InvalidateRecords drops every cached period report. Fetches already in
// flight finish but do not cache their result.
func (s *ReportService) InvalidateRecords() int {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.recordsGen++
	return s.records.DeletePrefix(recordsKeyPrefix)
}

// InvalidateJob drops the cached ledger of one job, or of every job when
// jobID is empty.
func (s *ReportService) InvalidateJob(jobID string) int {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.jobsGen++
	if jobID == "" {
		return s.jobs.DeletePrefix(jobKeyPrefix)
	}
	n := s.jobs.Size()
	s.jobs.Delete(jobKeyPrefix + jobID)
	return n - s.jobs.Size()
}

// Ping reports whether the record store is reachable.
func (s *ReportService) Ping(ctx context.Context) error {
	if p, ok := s.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// fetch returns the records of period p, reading incomes and expenses
// concurrently. Identical concurrent calls share one store round trip.
func (s *ReportService) fetch(ctx context.Context, p period.Period, f core.Filters) (*periodRecords, bool, error) {
	key := recordsKeyPrefix + p.Key() + "|" + f.Key()
	if recs, ok := s.records.Get(key); ok {
		return recs, true, nil
	}

	gen := s.generation(&s.recordsGen)
	v, err := s.shared(ctx, flightKey(key, gen), "get records", func(ctx context.Context) (any, error) {
		pf := p.Filters(f)
		recs := &periodRecords{period: p}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			incomes, err := s.store.GetIncomes(gctx, pf)
			if err != nil {
				return &core.UpstreamFetchError{Op: "get incomes", Err: err}
			}
			recs.incomes = incomes
			return nil
		})
		g.Go(func() error {
			expenses, err := s.store.GetExpenses(gctx, pf)
			if err != nil {
				return &core.UpstreamFetchError{Op: "get expenses", Err: err}
			}
			recs.expenses = expenses
			return nil
		})
		if err := g.Wait(); err != nil {
			s.events.LogError(ctx, "Record fetch failed", err, log.ComponentReport, log.OpRead,
				log.NewFields().WithReport("records", p.Key()))
			return nil, err
		}
		s.cacheIfCurrent(&s.recordsGen, gen, func() { s.records.Set(key, recs) })
		return recs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*periodRecords), false, nil
}

// shared runs fn once per key across concurrent callers. fn runs detached
// from any single caller's cancellation, bounded by the fetch timeout; each
// caller stops waiting when its own context ends.
func (s *ReportService) shared(ctx context.Context, key, op string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, &core.UpstreamFetchError{Op: op, Err: ctx.Err()}
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (s *ReportService) generation(gen *uint64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return *gen
}

// cacheIfCurrent runs set unless an invalidation moved gen past seen.
func (s *ReportService) cacheIfCurrent(gen *uint64, seen uint64, set func()) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if *gen == seen {
		set()
	}
}

// flightKey separates fetches started before an invalidation from those
// started after it.
func flightKey(key string, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}

// unresolved maps an unresolvable reference instant to the empty result and
// passes every other error through.
func unresolved(err error) error {
	var ipe *core.InvalidPeriodError
	if errors.As(err, &ipe) {
		return nil
	}
	return err
}
