package settlement

import (
	"context"
	"errors"

	"saldo/internal/core"
)

// ErrNotFound is returned by Store.GetByMonth when no settlement has been
// saved for the household and month. It is not an error condition for the
// service: it means the month has never been computed.
var ErrNotFound = errors.New("settlement not found")

// PendingSettlement is the minimal data needed to drive the sync backup path.
type PendingSettlement struct {
	ID          string
	HouseholdID string
	Month       core.Month
	SyncVersion int64
}

// Store persists settlement records, keyed by (householdID, month).
// Implementations assign IDs and increment SyncVersion on every write so
// concurrent writers resolve last-write-wins.
type Store interface {
	// GetByMonth looks a settlement up by natural key. Returns ErrNotFound
	// when the month has never been saved.
	GetByMonth(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error)

	// Upsert inserts or overwrites the record for (HouseholdID, Month). The
	// stored ID, SyncVersion and timestamps are written back into s.
	Upsert(ctx context.Context, s *core.Settlement) error

	// ListByHousehold returns all stored settlements of a household, most
	// recent month first.
	ListByHousehold(ctx context.Context, householdID string) ([]core.Settlement, error)

	// GetPendingSync returns settlements not yet exported, oldest first.
	GetPendingSync(ctx context.Context, limit int) ([]PendingSettlement, error)

	// MarkSynced records a successful export of the settlement.
	MarkSynced(ctx context.Context, id string) error

	// MarkSyncError records a failed export; the settlement stays pending so
	// the periodic pass retries it.
	MarkSyncError(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// SyncPublisher announces a saved settlement to the sync pipeline.
type SyncPublisher interface {
	PublishSettlementSync(ctx context.Context, s *core.Settlement) error
}
