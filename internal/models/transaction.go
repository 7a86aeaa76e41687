package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a stock mutation
type TransactionType string

const (
	TransactionTypePurchase    TransactionType = "PURCHASE"
	TransactionTypeConsumption TransactionType = "CONSUMPTION"
	TransactionTypeAdjustment  TransactionType = "ADJUSTMENT"
	TransactionTypeReturn      TransactionType = "RETURN"
	TransactionTypeReversal    TransactionType = "REVERSAL"
)

// ValidTransactionType reports whether t is one of the defined types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeConsumption,
		TransactionTypeAdjustment, TransactionTypeReturn, TransactionTypeReversal:
		return true
	}
	return false
}

// InventoryTransaction is the immutable record of a single stock mutation.
// Quantity is always a positive magnitude; IsAddition carries the direction.
// Corrections are made by appending a REVERSAL transaction pointing at the
// original via ReversedOf, never by mutating history.
//
// The unique index on ReversedOf enforces at the database level that a
// transaction is reversed at most once. The composite unique index on
// (reference, transaction_type) backs idempotent retries: Postgres treats
// NULL references as distinct, so unreferenced transactions are unaffected.
type InventoryTransaction struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	StockItemID uuid.UUID `json:"stockItemId" gorm:"type:uuid;not null;index"`

	// Seq is a database-assigned monotonic sequence. Timestamps can collide,
	// random UUIDs carry no order; readers sort by Seq to observe an item's
	// ledger in the order rows were appended.
	Seq int64 `json:"seq" gorm:"autoIncrement;uniqueIndex"`

	TransactionType TransactionType `json:"transactionType" gorm:"type:varchar(20);not null;index;uniqueIndex:idx_tx_reference_type"`
	Quantity        float64         `json:"quantity" gorm:"type:decimal(12,3);not null"`
	IsAddition      bool            `json:"isAddition" gorm:"not null"`

	Reference  *string    `json:"reference,omitempty" gorm:"type:varchar(100);uniqueIndex:idx_tx_reference_type"`
	ReversedOf *uuid.UUID `json:"reversedOf,omitempty" gorm:"type:uuid;uniqueIndex"`
	Notes      *string    `json:"notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
	CreatedBy *string   `json:"createdBy,omitempty"`
}

func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// SignedDelta returns the quantity change this transaction applied to its
// stock item: positive for additions, negative for consumptions.
func (t *InventoryTransaction) SignedDelta() float64 {
	if t.IsAddition {
		return t.Quantity
	}
	return -t.Quantity
}
