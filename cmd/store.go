package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/admitguard/admitguard/internal/pipeline"
	"github.com/admitguard/admitguard/internal/sheet"
)

func initStore(ctx context.Context) (sheet.Store, error) {
	var (
		st  sheet.Store
		err error
	)
	switch cfg.Store.Driver {
	case "memory":
		st = sheet.NewMemory()
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "admitguard.db"
		}
		st, err = sheet.NewSQLite(ctx, dsn)
	case "postgres":
		st, err = sheet.NewPostgres(ctx, cfg.Store.DSN)
	case "xlsx":
		if cfg.Store.DSN == "" {
			return nil, eris.New("xlsx driver needs a workbook path in store.dsn")
		}
		st = sheet.NewXLSX(cfg.Store.DSN)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.Throttle > 0 {
		st = sheet.NewThrottled(st, cfg.Store.Throttle, 1)
	}
	return st, nil
}

func initPipeline(ctx context.Context) (*pipeline.Pipeline, sheet.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(st, cfg.Tabs), st, nil
}
