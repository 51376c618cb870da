package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/viper"

	"github.com/mgiraud/classbridge/internal/common"
	"github.com/mgiraud/classbridge/internal/match"
	"github.com/mgiraud/classbridge/internal/reconcile"
	"github.com/mgiraud/classbridge/internal/storage"
)

// openStorage opens the migration staging database and applies any pending
// migrations.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		return nil, common.NewUserError("no staging database configured", common.ErrMissingConfig)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to open staging database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("failed to migrate staging database", err)
	}

	common.LogInfo("Staging database ready", common.Fields{"path": dbPath})
	return store, nil
}

// newEngine builds a reconciliation engine from command flags, wiring batch
// progress into a terminal progress bar.
func newEngine(store *storage.SQLiteStorage, workers, topN int, description string) *reconcile.Engine {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
	)

	config := reconcile.DefaultConfig()
	if workers > 0 {
		config.Workers = workers
	}
	if topN > 0 {
		config.TopN = topN
	}
	config.OnProgress = func(n int) {
		_ = bar.Add(n)
	}

	return reconcile.NewWithConfig(store, match.NewDiceScorer(), config)
}
