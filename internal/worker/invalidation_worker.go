// Package worker keeps cached reports in step with the record store.
package worker

import (
	"context"
	"errors"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/log"
)

// Invalidator drops cached reports. services.ReportService implements it.
type Invalidator interface {
	InvalidateRecords() int
	InvalidateJob(jobID string) int
}

// Consumer delivers ledger changes. amqp.Client implements it.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler amqp.Handler) error
}

// InvalidationWorker evicts cached reports when the ledger changes.
type InvalidationWorker struct {
	reports Invalidator
	logger  *log.Logger
}

func NewInvalidationWorker(reports Invalidator, logger *log.Logger) *InvalidationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &InvalidationWorker{
		reports: reports,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged evicts what msg may have made stale. General-ledger
// changes drop every period report, since the record's old date is unknown.
// Anything tied to a job also drops that job's ledger.
func (w *InvalidationWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	records, jobs := 0, 0
	if msg.AffectsPeriodReports() {
		records = w.reports.InvalidateRecords()
	}
	if jobID := msg.AffectedJob(); jobID != "" {
		jobs = w.reports.InvalidateJob(jobID)
	}

	w.logger.DebugContext(ctx, "Ledger change applied",
		log.FieldRecordKind, msg.Kind,
		log.FieldRecordID, msg.RecordID,
		log.FieldJobID, msg.JobID,
		"evicted_reports", records,
		"evicted_jobs", jobs)
	return nil
}

// Flush drops every cached report. It is the fallback for changes whose
// events were lost.
func (w *InvalidationWorker) Flush(ctx context.Context) {
	records := w.reports.InvalidateRecords()
	jobs := w.reports.InvalidateJob("")
	if records+jobs > 0 {
		w.logger.InfoContext(ctx, "Periodic report flush",
			"evicted_reports", records,
			"evicted_jobs", jobs)
	}
}

// Run consumes ledger changes until ctx ends. When flushInterval is
// positive every cached report is also dropped on that cadence.
func (w *InvalidationWorker) Run(ctx context.Context, c Consumer, flushInterval time.Duration) error {
	if flushInterval > 0 {
		go func() {
			ticker := time.NewTicker(flushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					w.Flush(ctx)
				}
			}
		}()
	}

	w.logger.InfoContext(ctx, "Invalidation worker started")
	err := c.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
