package models

import "github.com/google/uuid"

// Request models

type RegisterItemRequest struct {
	SKU               string     `json:"sku" binding:"required,min=1,max=50"`
	Name              string     `json:"name" binding:"required,min=1,max=255"`
	Kind              ItemKind   `json:"kind" binding:"required"`
	Unit              *Unit      `json:"unit,omitempty"`
	WarningThreshold  float64    `json:"warningThreshold" binding:"gte=0"`
	StorageLocationID *uuid.UUID `json:"storageLocationId,omitempty"`
	Metadata          *JSON      `json:"metadata,omitempty"`
}

type CreateLocationRequest struct {
	Label    string  `json:"label" binding:"required,min=1,max=100"`
	Unit     *Unit   `json:"unit,omitempty"`
	Capacity float64 `json:"capacity" binding:"gte=0"`
	Metadata *JSON   `json:"metadata,omitempty"`
}

type AdjustStockRequest struct {
	ItemID          uuid.UUID       `json:"itemId" binding:"required"`
	Delta           float64         `json:"delta" binding:"required"`
	TransactionType TransactionType `json:"transactionType" binding:"required"`
	Reference       *string         `json:"reference,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
}

// Response models

type StockItemResponse struct {
	Success bool       `json:"success"`
	Data    *StockItem `json:"data,omitempty"`
	Message *string    `json:"message,omitempty"`
}

type StockItemListResponse struct {
	Success    bool            `json:"success"`
	Data       []StockItem     `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type LocationResponse struct {
	Success bool             `json:"success"`
	Data    *StorageLocation `json:"data,omitempty"`
	Message *string          `json:"message,omitempty"`
}

type LocationListResponse struct {
	Success    bool              `json:"success"`
	Data       []StorageLocation `json:"data"`
	Pagination *PaginationMeta   `json:"pagination,omitempty"`
}

// AdjustmentResponse carries both entities updated by an adjustment
type AdjustmentResponse struct {
	Success     bool                  `json:"success"`
	Item        *StockItem            `json:"item,omitempty"`
	Transaction *InventoryTransaction `json:"transaction,omitempty"`
	Message     *string               `json:"message,omitempty"`
}

type TransactionResponse struct {
	Success bool                  `json:"success"`
	Data    *InventoryTransaction `json:"data,omitempty"`
	Message *string               `json:"message,omitempty"`
}

type TransactionListResponse struct {
	Success    bool                   `json:"success"`
	Data       []InventoryTransaction `json:"data"`
	Pagination *PaginationMeta        `json:"pagination,omitempty"`
}

type UtilizationResponse struct {
	Success            bool    `json:"success"`
	LocationID         string  `json:"locationId"`
	Capacity           float64 `json:"capacity"`
	CurrentOccupancy   float64 `json:"currentOccupancy"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}
