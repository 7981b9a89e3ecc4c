package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/export"
	"saldo/internal/settlement"
)

// SyncWorker handles export of settlement reports from the store to an
// external destination such as Google Sheets.
type SyncWorker struct {
	store     settlement.Store
	writer    export.ReportWriter
	batchSize int
}

func NewSyncWorker(store settlement.Store, writer export.ReportWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single settlement sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SettlementSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"settlement_id", msg.SettlementID,
		"household", msg.HouseholdID,
		"month", msg.Month,
		"version", msg.Version)

	st, err := w.findSettlement(ctx, msg)
	if err != nil {
		return fmt.Errorf("get settlement from store: %w", err)
	}

	// A recalculation may have bumped the version after this message was
	// published. Export the stored state; the stale message is a no-op.
	if st.SyncVersion > msg.Version {
		slog.InfoContext(ctx, "Message is stale, exporting current state instead",
			"settlement_id", st.ID,
			"message_version", msg.Version,
			"stored_version", st.SyncVersion)
	}

	if err := w.exportSettlement(ctx, st); err != nil {
		return fmt.Errorf("export settlement: %w", err)
	}

	return nil
}

// ProcessPendingSettlements exports any settlements that haven't been synced
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingSettlements(ctx context.Context) error {
	pending, err := w.store.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending settlements: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending settlements", "count", len(pending))

	for _, p := range pending {
		st, err := w.store.GetByMonth(ctx, p.HouseholdID, p.Month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get settlement", "id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportSettlement(ctx, st); err != nil {
			slog.ErrorContext(ctx, "Failed to export settlement", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any pending settlements at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Larger batch for the startup pass
	pending, err := w.store.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending settlements for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending settlements found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending settlements on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		st, err := w.store.GetByMonth(ctx, p.HouseholdID, p.Month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get settlement for startup sync",
				"id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportSettlement(ctx, st); err != nil {
			slog.ErrorContext(ctx, "Failed to export settlement during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) findSettlement(ctx context.Context, msg *amqp.SettlementSyncMessage) (*core.Settlement, error) {
	month, err := core.ParseMonth(msg.Month)
	if err != nil {
		return nil, fmt.Errorf("parse month %q: %w", msg.Month, err)
	}
	return w.store.GetByMonth(ctx, msg.HouseholdID, month)
}

func (w *SyncWorker) exportSettlement(ctx context.Context, st *core.Settlement) error {
	ref, err := w.writer.WriteSettlement(ctx, *st)
	if err != nil {
		// Mark as sync error so the periodic pass retries it
		if markErr := w.store.MarkSyncError(ctx, st.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", st.ID, "error", markErr)
		}
		return fmt.Errorf("write settlement report: %w", err)
	}

	// Mark as successfully synced
	if err := w.store.MarkSynced(ctx, st.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", st.ID, "error", err)
		// Don't return error here, the export actually worked
	}

	slog.InfoContext(ctx, "Successfully exported settlement",
		"id", st.ID,
		"household", st.HouseholdID,
		"month", st.Month.String(),
		"export_ref", ref,
		"total_cents", st.Total.Cents)

	return nil
}
