package services

import (
	"context"
	"log/slog"

	"fondi/internal/amqp"
	"fondi/internal/core"
)

// ledgerChange is a notification staged during a transaction and published
// only after it commits, so consumers never see a change that rolled back.
type ledgerChange struct {
	eventID  string
	change   string
	monthKey core.MonthKey
}

func publishChanges(ctx context.Context, client *amqp.Client, changes []ledgerChange) {
	for _, c := range changes {
		if err := client.PublishLedgerChange(ctx, c.eventID, c.change, string(c.monthKey)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger change",
				"event_id", c.eventID, "error", err)
		}
	}
}
