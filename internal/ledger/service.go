package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"stockledger-service/internal/models"
)

// StatusChangeEvent is emitted after every committed adjustment so the
// presentation layer can refresh without polling.
type StatusChangeEvent struct {
	ItemID        uuid.UUID          `json:"itemId"`
	SKU           string             `json:"sku"`
	OldStatus     models.StockStatus `json:"oldStatus"`
	NewStatus     models.StockStatus `json:"newStatus"`
	Quantity      float64            `json:"quantity"`
	TransactionID uuid.UUID          `json:"transactionId"`
}

// Notifier receives status-change events after a successful adjustment.
// Implementations must not block the caller on delivery failures.
type Notifier interface {
	StockAdjusted(ctx context.Context, event StatusChangeEvent)
}

// AdjustmentInput describes a single stock mutation. Delta may be positive
// (addition) or negative (consumption); its magnitude becomes the transaction
// quantity and its sign the direction.
type AdjustmentInput struct {
	ItemID          uuid.UUID
	Delta           float64
	TransactionType models.TransactionType
	Reference       *string
	Notes           *string
	ReversedOf      *uuid.UUID
	ActorID         *string
}

// Service orchestrates stock adjustments: precondition checks, capacity
// bookkeeping, status reclassification and the append-only transaction
// record, all inside one unit of work. On any failure nothing is mutated.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a ledger Service. notifier may be nil to disable event
// emission.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
	}
}

// ApplyAdjustment applies delta to the item's quantity as a single atomic
// unit of work and returns the updated item plus the transaction recorded
// for it.
//
// Retried calls carrying the same (Reference, TransactionType) are detected
// inside the unit of work and return the previously recorded transaction
// without applying anything again.
func (s *Service) ApplyAdjustment(ctx context.Context, input AdjustmentInput) (*models.StockItem, *models.InventoryTransaction, error) {
	var (
		item  *models.StockItem
		tx    *models.InventoryTransaction
		event *StatusChangeEvent
	)

	err := s.repo.WithTransaction(ctx, func(txRepo Repository) error {
		var err error
		item, tx, event, err = applyLocked(ctx, txRepo, input)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if event != nil && s.notifier != nil {
		s.notifier.StockAdjusted(ctx, *event)
	}
	return item, tx, nil
}

// applyLocked performs the adjustment against an already-open unit of work.
// The reversal engine shares this path so its already-reversed check and the
// inverse adjustment sit inside the same transaction.
//
// The returned event is nil when the call was an idempotent no-op.
func applyLocked(ctx context.Context, repo Repository, input AdjustmentInput) (*models.StockItem, *models.InventoryTransaction, *StatusChangeEvent, error) {
	if input.Delta == 0 {
		return nil, nil, nil, fmt.Errorf("%w: adjustment delta must be non-zero", models.ErrInvalidArgument)
	}
	if !models.ValidTransactionType(input.TransactionType) {
		return nil, nil, nil, fmt.Errorf("%w: unknown transaction type %q", models.ErrInvalidArgument, input.TransactionType)
	}

	item, err := repo.GetStockItemForUpdate(ctx, input.ItemID)
	if err != nil {
		return nil, nil, nil, err
	}

	// Idempotency: a retry with the same reference and type returns the
	// transaction recorded the first time, as a successful no-op. The check
	// runs under the item row lock: concurrent calls with the same fresh
	// reference serialize on the lock, so the second one sees the first's
	// committed transaction here instead of tripping the unique index on
	// (reference, transaction_type).
	if input.Reference != nil && *input.Reference != "" {
		existing, err := repo.FindTransactionByReference(ctx, *input.Reference, input.TransactionType)
		if err != nil {
			return nil, nil, nil, err
		}
		if existing != nil {
			return item, existing, nil, nil
		}
	}

	// A transaction is reversed at most once. Checked under the item lock so
	// two concurrent reversals of the same transaction serialize, and the
	// loser fails here instead of on the reversed_of unique index.
	if input.ReversedOf != nil {
		prior, err := repo.FindReversalOf(ctx, *input.ReversedOf)
		if err != nil {
			return nil, nil, nil, err
		}
		if prior != nil {
			return nil, nil, nil, fmt.Errorf("%w: transaction %s was reversed by %s",
				models.ErrAlreadyReversed, *input.ReversedOf, prior.ID)
		}
	}

	if !item.Active {
		return nil, nil, nil, fmt.Errorf("%w: item %s is deactivated", models.ErrInvalidArgument, item.SKU)
	}

	newQuantity := item.Quantity + input.Delta
	if newQuantity < 0 {
		return nil, nil, nil, fmt.Errorf("%w: item %s has %.3f, cannot remove %.3f",
			models.ErrInsufficientStock, item.SKU, item.Quantity, -input.Delta)
	}

	// Lock order is always item then location, so concurrent adjustments on
	// items sharing a location cannot deadlock.
	if item.CapacityComparable() {
		loc, err := repo.GetStorageLocationForUpdate(ctx, *item.StorageLocationID)
		if err != nil {
			return nil, nil, nil, err
		}
		if input.Delta > 0 {
			if _, err := loc.Reserve(input.Delta); err != nil {
				return nil, nil, nil, err
			}
		} else {
			if _, err := loc.Release(-input.Delta); err != nil {
				return nil, nil, nil, err
			}
		}
		if err := repo.SaveStorageLocation(ctx, loc); err != nil {
			return nil, nil, nil, err
		}
	}

	oldStatus := item.Status
	status, err := Classify(newQuantity, item.WarningThreshold)
	if err != nil {
		return nil, nil, nil, err
	}

	item.Quantity = newQuantity
	item.Status = status
	item.UpdatedBy = input.ActorID
	if err := repo.SaveStockItem(ctx, item); err != nil {
		return nil, nil, nil, err
	}

	tx := &models.InventoryTransaction{
		StockItemID:     item.ID,
		TransactionType: input.TransactionType,
		Quantity:        math.Abs(input.Delta),
		IsAddition:      input.Delta > 0,
		Reference:       input.Reference,
		ReversedOf:      input.ReversedOf,
		Notes:           input.Notes,
		CreatedAt:       time.Now(),
		CreatedBy:       input.ActorID,
	}
	if err := repo.AppendTransaction(ctx, tx); err != nil {
		return nil, nil, nil, err
	}

	event := &StatusChangeEvent{
		ItemID:        item.ID,
		SKU:           item.SKU,
		OldStatus:     oldStatus,
		NewStatus:     status,
		Quantity:      newQuantity,
		TransactionID: tx.ID,
	}
	return item, tx, event, nil
}
