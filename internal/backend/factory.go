package backend

import (
	"context"
	"fmt"

	"finreport/internal/log"
	"finreport/internal/store"
	"finreport/internal/store/memory"
	"finreport/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if config.SeedDir == "" {
		f.logger.InfoContext(ctx, "Initialized empty memory backend")
		return &BackendResult{Backend: memory.New(store.Dataset{})}, nil
	}

	st, err := memory.NewFromDir(config.SeedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed data: %w", err)
	}

	ds := st.Dataset()
	f.logger.InfoContext(ctx, "Initialized memory backend",
		"seed_dir", config.SeedDir,
		"incomes", len(ds.Incomes),
		"expenses", len(ds.Expenses),
		"jobs", len(ds.Jobs))

	return &BackendResult{Backend: st}, nil
}
