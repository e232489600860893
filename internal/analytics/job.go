package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/store"
)

// Run aggregates usage metrics for the given calendar date and upserts
// the daily_analytics row for it. The write is a single upsert statement,
// so a failure leaves no partial state; re-running the job replaces the
// counts, never adds a second row for the date.
func Run(ctx context.Context, dataStore store.DataStore, date time.Time, logger zerolog.Logger) error {
	logger.Info().Str("date", date.Format("2006-01-02")).Msg("starting daily aggregation")

	newUsers, err := dataStore.CountUsersCreatedOn(ctx, date)
	if err != nil {
		return fmt.Errorf("count users created: %w", err)
	}

	messagesSent, err := dataStore.CountMessagesSentOn(ctx, date)
	if err != nil {
		return fmt.Errorf("count messages sent: %w", err)
	}

	if err := dataStore.UpsertDailyAnalytics(ctx, date, newUsers, messagesSent); err != nil {
		return fmt.Errorf("upsert daily analytics: %w", err)
	}

	logger.Info().
		Str("date", date.Format("2006-01-02")).
		Int64("new_users", newUsers).
		Int64("messages_sent", messagesSent).
		Msg("daily aggregation completed")
	return nil
}
