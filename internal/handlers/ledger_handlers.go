package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/models"
)

// Store is the persistence surface the HTTP layer reads from and registers
// entities through. Stock mutations never go through here; they go through
// the StockAdjuster.
type Store interface {
	CreateStockItem(ctx context.Context, item *models.StockItem) error
	GetStockItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	FindStockItemBySKU(ctx context.Context, sku string) (*models.StockItem, error)
	ListStockItems(ctx context.Context, kind *models.ItemKind, status *models.StockStatus, activeOnly bool, page, limit int) ([]models.StockItem, int64, error)
	ListBelowThreshold(ctx context.Context) ([]models.StockItem, error)
	DeactivateStockItem(ctx context.Context, id uuid.UUID, actorID *string) error

	CreateStorageLocation(ctx context.Context, loc *models.StorageLocation) error
	GetStorageLocation(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error)
	ListStorageLocations(ctx context.Context, page, limit int) ([]models.StorageLocation, int64, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error)
	FindTransactionByReference(ctx context.Context, reference string, txType models.TransactionType) (*models.InventoryTransaction, error)
	ListTransactions(ctx context.Context, itemID uuid.UUID, page, limit int) ([]models.InventoryTransaction, int64, error)

	DBHealth(ctx context.Context) error
	RedisHealth(ctx context.Context) error
}

// StockAdjuster applies stock adjustments atomically
type StockAdjuster interface {
	ApplyAdjustment(ctx context.Context, input ledger.AdjustmentInput) (*models.StockItem, *models.InventoryTransaction, error)
}

// TransactionReverser undoes recorded transactions
type TransactionReverser interface {
	Reverse(ctx context.Context, transactionID uuid.UUID, actorID *string) (*models.InventoryTransaction, error)
}

type LedgerHandler struct {
	store    Store
	adjuster StockAdjuster
	reverser TransactionReverser
}

func NewLedgerHandler(store Store, adjuster StockAdjuster, reverser TransactionReverser) *LedgerHandler {
	return &LedgerHandler{
		store:    store,
		adjuster: adjuster,
		reverser: reverser,
	}
}

// respondDomainError maps ledger error kinds to HTTP responses
func respondDomainError(c *gin.Context, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrInsufficientStock):
		status, code = http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, models.ErrCapacityExceeded):
		status, code = http.StatusConflict, "CAPACITY_EXCEEDED"
	case errors.Is(err, models.ErrAlreadyReversed):
		status, code = http.StatusConflict, "ALREADY_REVERSED"
	case errors.Is(err, models.ErrConcurrentModification):
		status, code = http.StatusConflict, "CONCURRENT_MODIFICATION"
	default:
		status, code = http.StatusInternalServerError, "INTERNAL_ERROR"
	}

	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: err.Error(),
		},
	})
}

// actorID extracts the acting user from the X-User-ID header, when present
func actorID(c *gin.Context) *string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return &id
	}
	return nil
}

// ========== Stock Item Handlers ==========

// RegisterItem registers a new tracked stock item. Items start at quantity
// zero; stock arrives through adjustments.
func (h *LedgerHandler) RegisterItem(c *gin.Context) {
	var req models.RegisterItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	switch req.Kind {
	case models.ItemKindPart, models.ItemKindLeather, models.ItemKindProduct:
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ARGUMENT",
				Message: "kind must be one of PART, LEATHER, PRODUCT",
			},
		})
		return
	}

	existing, err := h.store.FindStockItemBySKU(c.Request.Context(), req.SKU)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_SKU",
				Message: "An item with this SKU already exists",
			},
		})
		return
	}

	unit := models.UnitCount
	if req.Kind == models.ItemKindLeather {
		unit = models.UnitSquareFeet
	}
	if req.Unit != nil {
		unit = *req.Unit
	}

	// An item assigned to a location must share the location's unit so
	// occupancy stays capacity-comparable.
	if req.StorageLocationID != nil {
		loc, err := h.store.GetStorageLocation(c.Request.Context(), *req.StorageLocationID)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		if loc.Unit != unit {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_ARGUMENT",
					Message: "item unit does not match storage location unit",
				},
			})
			return
		}
	}

	status, err := ledger.Classify(0, req.WarningThreshold)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	item := &models.StockItem{
		SKU:               req.SKU,
		Name:              req.Name,
		Kind:              req.Kind,
		Unit:              unit,
		WarningThreshold:  req.WarningThreshold,
		Status:            status,
		StorageLocationID: req.StorageLocationID,
		Active:            true,
		Metadata:          req.Metadata,
		CreatedBy:         actorID(c),
	}

	if err := h.store.CreateStockItem(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATION_FAILED",
				Message: "Failed to register stock item",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.StockItemResponse{
		Success: true,
		Data:    item,
		Message: stringPtr("Stock item registered successfully"),
	})
}

// GetItem retrieves a stock item by ID
func (h *LedgerHandler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid stock item ID",
			},
		})
		return
	}

	item, err := h.store.GetStockItem(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockItemResponse{
		Success: true,
		Data:    item,
	})
}

// ListItems retrieves stock items with optional filters and pagination
func (h *LedgerHandler) ListItems(c *gin.Context) {
	var kind *models.ItemKind
	if kindStr := c.Query("kind"); kindStr != "" {
		k := models.ItemKind(kindStr)
		kind = &k
	}

	var status *models.StockStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.StockStatus(statusStr)
		status = &s
	}

	activeOnly := c.Query("includeInactive") != "true"
	page, limit := parsePagination(c)

	items, total, err := h.store.ListStockItems(c.Request.Context(), kind, status, activeOnly, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve stock items",
			},
		})
		return
	}

	response := models.StockItemListResponse{
		Success: true,
		Data:    items,
	}
	if page > 0 && limit > 0 {
		response.Pagination = paginationMeta(page, limit, total)
	}

	c.JSON(http.StatusOK, response)
}

// GetLowStockItems lists active items below their warning threshold
func (h *LedgerHandler) GetLowStockItems(c *gin.Context) {
	items, err := h.store.ListBelowThreshold(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve low stock items",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.StockItemListResponse{
		Success: true,
		Data:    items,
	})
}

// DeactivateItem soft-deactivates an item, preserving its history
func (h *LedgerHandler) DeactivateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid stock item ID",
			},
		})
		return
	}

	if err := h.store.DeactivateStockItem(c.Request.Context(), id, actorID(c)); err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Stock item deactivated"),
	})
}

// ========== Storage Location Handlers ==========

// CreateLocation creates a new storage location
func (h *LedgerHandler) CreateLocation(c *gin.Context) {
	var req models.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	unit := models.UnitCount
	if req.Unit != nil {
		unit = *req.Unit
	}

	loc := &models.StorageLocation{
		Label:     req.Label,
		Unit:      unit,
		Capacity:  req.Capacity,
		Metadata:  req.Metadata,
		CreatedBy: actorID(c),
	}

	if err := h.store.CreateStorageLocation(c.Request.Context(), loc); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATION_FAILED",
				Message: "Failed to create storage location",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.LocationResponse{
		Success: true,
		Data:    loc,
		Message: stringPtr("Storage location created successfully"),
	})
}

// GetLocation retrieves a storage location by ID
func (h *LedgerHandler) GetLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid storage location ID",
			},
		})
		return
	}

	loc, err := h.store.GetStorageLocation(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationResponse{
		Success: true,
		Data:    loc,
	})
}

// ListLocations retrieves storage locations with pagination
func (h *LedgerHandler) ListLocations(c *gin.Context) {
	page, limit := parsePagination(c)

	locations, total, err := h.store.ListStorageLocations(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve storage locations",
			},
		})
		return
	}

	response := models.LocationListResponse{
		Success: true,
		Data:    locations,
	}
	if page > 0 && limit > 0 {
		response.Pagination = paginationMeta(page, limit, total)
	}

	c.JSON(http.StatusOK, response)
}

// GetUtilization reports a location's occupancy as a percentage of capacity
func (h *LedgerHandler) GetUtilization(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid storage location ID",
			},
		})
		return
	}

	loc, err := h.store.GetStorageLocation(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UtilizationResponse{
		Success:            true,
		LocationID:         loc.ID.String(),
		Capacity:           loc.Capacity,
		CurrentOccupancy:   loc.CurrentOccupancy,
		UtilizationPercent: loc.UtilizationPercent(),
	})
}

// ========== Adjustment Handlers ==========

// AdjustStock applies a stock adjustment through the ledger service
func (h *LedgerHandler) AdjustStock(c *gin.Context) {
	var req models.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	item, tx, err := h.adjuster.ApplyAdjustment(c.Request.Context(), ledger.AdjustmentInput{
		ItemID:          req.ItemID,
		Delta:           req.Delta,
		TransactionType: req.TransactionType,
		Reference:       req.Reference,
		Notes:           req.Notes,
		ActorID:         actorID(c),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentResponse{
		Success:     true,
		Item:        item,
		Transaction: tx,
	})
}

// ReverseTransaction undoes a recorded transaction
func (h *LedgerHandler) ReverseTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid transaction ID",
			},
		})
		return
	}

	reversal, err := h.reverser.Reverse(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TransactionResponse{
		Success: true,
		Data:    reversal,
		Message: stringPtr("Transaction reversed"),
	})
}

// GetTransaction retrieves a single transaction by ID
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid transaction ID",
			},
		})
		return
	}

	tx, err := h.store.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionResponse{
		Success: true,
		Data:    tx,
	})
}

// ListItemTransactions returns an item's ledger in creation order
func (h *LedgerHandler) ListItemTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid stock item ID",
			},
		})
		return
	}

	page, limit := parsePagination(c)

	txs, total, err := h.store.ListTransactions(c.Request.Context(), id, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve transactions",
			},
		})
		return
	}

	response := models.TransactionListResponse{
		Success: true,
		Data:    txs,
	}
	if page > 0 && limit > 0 {
		response.Pagination = paginationMeta(page, limit, total)
	}

	c.JSON(http.StatusOK, response)
}

// ========== Helpers ==========

func parsePagination(c *gin.Context) (int, int) {
	page := 0
	limit := 0
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}

func paginationMeta(page, limit int, total int64) *models.PaginationMeta {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}
	return &models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func stringPtr(s string) *string {
	return &s
}
