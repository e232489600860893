package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/analytics"
	"github.com/rudrark0109/sync-chat/internal/config"
	"github.com/rudrark0109/sync-chat/internal/store"
)

// The daily aggregation job. Parameterless; intended to be run by an
// external scheduler (cron) once a day. Any failure aborts the run with a
// non-zero exit and no partial write.
func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("job", "daily-aggregation").
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		dataStore = pgStore
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		dataStore = sqliteStore
	}

	if err := analytics.Run(ctx, dataStore, time.Now().UTC(), logger); err != nil {
		logger.Fatal().Err(err).Msg("daily aggregation failed")
	}
}
