package ledger

import (
	"context"

	"github.com/google/uuid"
	"stockledger-service/internal/models"
)

// Repository is the narrow persistence contract the ledger core consumes.
// The implementation owns the actual commit/rollback boundary: everything a
// WithTransaction callback does against the repository it receives commits
// or rolls back as one unit.
//
// Get* methods return models.ErrNotFound when the record does not exist.
// Find* methods return (nil, nil) when no match exists, so callers can
// distinguish "absent" from a real lookup failure.
type Repository interface {
	// GetStockItemForUpdate row-locks the item for the remainder of the
	// enclosing unit of work.
	GetStockItemForUpdate(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	// SaveStockItem persists quantity/status changes with an optimistic
	// version check, returning models.ErrConcurrentModification on conflict.
	SaveStockItem(ctx context.Context, item *models.StockItem) error

	GetStorageLocationForUpdate(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error)
	SaveStorageLocation(ctx context.Context, loc *models.StorageLocation) error

	// AppendTransaction inserts an immutable ledger record. Records are never
	// updated or deleted afterwards.
	AppendTransaction(ctx context.Context, tx *models.InventoryTransaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error)
	// FindTransactionByReference backs idempotent retries keyed on
	// (reference, type).
	FindTransactionByReference(ctx context.Context, reference string, txType models.TransactionType) (*models.InventoryTransaction, error)
	// FindReversalOf returns the reversal pointing at the given transaction,
	// if one exists.
	FindReversalOf(ctx context.Context, transactionID uuid.UUID) (*models.InventoryTransaction, error)

	// WithTransaction executes fn inside a single atomic unit of work. The
	// repository passed to fn is scoped to that unit; row locks taken through
	// it are held until fn returns.
	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}
