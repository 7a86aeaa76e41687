package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSON type for PostgreSQL JSONB
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// ItemKind distinguishes the three physical goods the shop tracks
type ItemKind string

const (
	ItemKindPart    ItemKind = "PART"
	ItemKindLeather ItemKind = "LEATHER"
	ItemKindProduct ItemKind = "PRODUCT"
)

// Unit is the quantity unit of an item. Leather is tracked in square feet,
// parts and finished products by count.
type Unit string

const (
	UnitCount      Unit = "COUNT"
	UnitSquareFeet Unit = "SQFT"
)

// StockStatus is the discrete classification derived from quantity vs
// warning threshold. It is written only by the ledger service; nothing else
// may set it.
type StockStatus string

const (
	StockStatusOK         StockStatus = "OK"
	StockStatusWarning    StockStatus = "WARNING"
	StockStatusLow        StockStatus = "LOW"
	StockStatusCritical   StockStatus = "CRITICAL"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// StockItem is a quantity-tracked physical thing: a part, a leather sheet,
// or a finished product.
//
// Quantity and Status are mutated exclusively through the ledger service so
// the non-negativity invariant and the status derivation stay consistent.
// Items are soft-deactivated rather than deleted to preserve the transaction
// history.
type StockItem struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SKU  string    `json:"sku" gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string    `json:"name" gorm:"type:varchar(255);not null"`
	Kind ItemKind  `json:"kind" gorm:"type:varchar(20);not null;index"`
	Unit Unit      `json:"unit" gorm:"type:varchar(10);not null;default:'COUNT'"`

	Quantity         float64     `json:"quantity" gorm:"type:decimal(12,3);not null;default:0"`
	WarningThreshold float64     `json:"warningThreshold" gorm:"type:decimal(12,3);not null;default:0"`
	Status           StockStatus `json:"status" gorm:"type:varchar(20);not null;default:'OUT_OF_STOCK';index"`

	StorageLocationID *uuid.UUID       `json:"storageLocationId,omitempty" gorm:"type:uuid;index"`
	StorageLocation   *StorageLocation `json:"storageLocation,omitempty" gorm:"foreignKey:StorageLocationID"`

	Active   bool  `json:"active" gorm:"not null;default:true;index"`
	Metadata *JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	// Optimistic concurrency guard, incremented on every save
	Version int `json:"version" gorm:"not null;default:0"`

	// Audit fields
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy *string         `json:"createdBy,omitempty"`
	UpdatedBy *string         `json:"updatedBy,omitempty"`

	// Relations
	Transactions []InventoryTransaction `json:"transactions,omitempty" gorm:"foreignKey:StockItemID"`
}

func (StockItem) TableName() string {
	return "stock_items"
}

// CapacityComparable reports whether the item's quantity counts toward its
// storage location's occupancy. An item without a location never does.
func (i *StockItem) CapacityComparable() bool {
	return i.StorageLocationID != nil
}
