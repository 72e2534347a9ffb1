package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/directory"
	"github.com/gigboard/directory-cli/internal/model"
)

// initStore opens the configured directory backend.
func initStore(ctx context.Context) (directory.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "directory.db"
		}
		return directory.NewSQLite(path)
	case "postgres":
		return directory.NewPostgres(ctx, cfg.Store.DatabaseURL, &directory.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// saveScanRun persists a report as an audit record, returning the run.
func saveScanRun(ctx context.Context, st directory.Store, kind model.ScanKind, total int, report any) (*model.ScanRun, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, eris.Wrap(err, "marshal scan report")
	}

	run := &model.ScanRun{
		ID:             uuid.NewString(),
		Kind:           kind,
		TotalCompanies: total,
		Report:         payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := st.SaveScanRun(ctx, run); err != nil {
		return nil, err
	}

	zap.L().Info("scan run saved",
		zap.String("id", run.ID),
		zap.String("kind", string(kind)),
		zap.Int("total_companies", total),
	)
	return run, nil
}
