// Command finreport-seed loads JSON seed files into the SQLite record store
// and, when AMQP is configured, announces every imported record so running
// report servers drop their caches.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"finreport/internal/amqp"
	"finreport/internal/config"
	"finreport/internal/log"
	"finreport/internal/store"
	"finreport/internal/store/memory"
	"finreport/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}

	seedDir := flag.String("seed-dir", cfg.SeedDir, "directory holding incomes.json, expenses.json, jobs.json, payments.json and job_expenses.json")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	reset := flag.Bool("reset", false, "drop every table before importing")
	flag.Parse()

	cfg.RecordBackend = "sqlite"
	cfg.SQLiteDBPath = *dbPath
	cfg.SeedDir = *seedDir

	level, _ := log.ParseLevel(cfg.LogLevel)
	logCfg := log.DefaultConfig()
	logCfg.Level = level
	logger := log.New(logCfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ds, err := memory.LoadDataset(cfg.SeedDir)
	if err != nil {
		logger.Error("Failed to read seed files", log.FieldError, err, "dir", cfg.SeedDir)
		os.Exit(1)
	}

	if *reset {
		if err := sqlite.RollbackMigrations(cfg.SQLiteDBPath); err != nil {
			logger.Error("Failed to reset SQLite database", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("SQLite database reset", "path", cfg.SQLiteDBPath)
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Import(ctx, ds); err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Seed imported",
		"path", cfg.SQLiteDBPath,
		"incomes", len(ds.Incomes),
		"expenses", len(ds.Expenses),
		"jobs", len(ds.Jobs),
		"payments", len(ds.Payments),
		"job_expenses", len(ds.DedicatedExpenses))

	if !cfg.AMQPEnabled() {
		return
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, running servers will refresh on their flush interval", log.FieldError, err)
		return
	}
	defer client.Close()

	published, failed := 0, 0
	for _, msg := range changeMessages(ds) {
		if err := client.PublishLedgerChanged(ctx, msg); err != nil {
			failed++
			logger.Warn("Failed to publish ledger change",
				log.FieldError, err,
				log.FieldRecordKind, msg.Kind,
				log.FieldRecordID, msg.RecordID)
			continue
		}
		published++
	}
	logger.Info("Ledger changes published", "published", published, "failed", failed)
}

func changeMessages(ds store.Dataset) []*amqp.LedgerChangedMessage {
	var msgs []*amqp.LedgerChangedMessage
	for _, i := range ds.Incomes {
		msgs = append(msgs, amqp.NewLedgerChangedMessage(amqp.KindIncome, i.ID, deref(i.JobID), i.Date))
	}
	for _, e := range ds.Expenses {
		msgs = append(msgs, amqp.NewLedgerChangedMessage(amqp.KindExpense, e.ID, deref(e.JobID), e.Date))
	}
	for _, j := range ds.Jobs {
		msgs = append(msgs, amqp.NewLedgerChangedMessage(amqp.KindJob, j.ID, "", ""))
	}
	for _, p := range ds.Payments {
		msgs = append(msgs, amqp.NewLedgerChangedMessage(amqp.KindJobPayment, p.ID, p.JobID, p.PaymentDate))
	}
	for _, e := range ds.DedicatedExpenses {
		msgs = append(msgs, amqp.NewLedgerChangedMessage(amqp.KindDedicatedExpense, e.ID, e.JobID, e.Date))
	}
	return msgs
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
