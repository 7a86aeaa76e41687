package ledger

import (
	"context"

	"github.com/google/uuid"
	"stockledger-service/internal/models"
)

// ReversalEngine produces and applies the inverse of a recorded transaction.
// The lookup, the already-reversed check and the inverse adjustment all run
// inside one unit of work, so two concurrent reversals of the same
// transaction cannot both succeed.
type ReversalEngine struct {
	repo     Repository
	notifier Notifier
}

func NewReversalEngine(repo Repository, notifier Notifier) *ReversalEngine {
	return &ReversalEngine{
		repo:     repo,
		notifier: notifier,
	}
}

// Reverse undoes the transaction with the given id by applying its inverse
// delta through the standard adjustment path. It restores the item and its
// storage location to their pre-transaction state unless intervening
// transactions have made that impossible, in which case it fails with
// ErrInsufficientStock or ErrCapacityExceeded and changes nothing.
func (e *ReversalEngine) Reverse(ctx context.Context, transactionID uuid.UUID, actorID *string) (*models.InventoryTransaction, error) {
	var (
		reversal *models.InventoryTransaction
		event    *StatusChangeEvent
	)

	err := e.repo.WithTransaction(ctx, func(txRepo Repository) error {
		original, err := txRepo.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}

		reversedOf := original.ID
		input := AdjustmentInput{
			ItemID:          original.StockItemID,
			Delta:           -original.SignedDelta(),
			TransactionType: models.TransactionTypeReversal,
			ReversedOf:      &reversedOf,
			ActorID:         actorID,
		}
		_, reversal, event, err = applyLocked(ctx, txRepo, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event != nil && e.notifier != nil {
		e.notifier.StockAdjusted(ctx, *event)
	}
	return reversal, nil
}
