package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/models"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) CreateStockItem(ctx context.Context, item *models.StockItem) error {
	args := m.Called(ctx, item)
	if args.Error(0) == nil && item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) GetStockItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockItem), args.Error(1)
}

func (m *MockStore) FindStockItemBySKU(ctx context.Context, sku string) (*models.StockItem, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockItem), args.Error(1)
}

func (m *MockStore) ListStockItems(ctx context.Context, kind *models.ItemKind, status *models.StockStatus, activeOnly bool, page, limit int) ([]models.StockItem, int64, error) {
	args := m.Called(ctx, kind, status, activeOnly, page, limit)
	return args.Get(0).([]models.StockItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) ListBelowThreshold(ctx context.Context) ([]models.StockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.StockItem), args.Error(1)
}

func (m *MockStore) DeactivateStockItem(ctx context.Context, id uuid.UUID, actorID *string) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}

func (m *MockStore) CreateStorageLocation(ctx context.Context, loc *models.StorageLocation) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockStore) GetStorageLocation(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageLocation), args.Error(1)
}

func (m *MockStore) ListStorageLocations(ctx context.Context, page, limit int) ([]models.StorageLocation, int64, error) {
	args := m.Called(ctx, page, limit)
	return args.Get(0).([]models.StorageLocation), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryTransaction), args.Error(1)
}

func (m *MockStore) FindTransactionByReference(ctx context.Context, reference string, txType models.TransactionType) (*models.InventoryTransaction, error) {
	args := m.Called(ctx, reference, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryTransaction), args.Error(1)
}

func (m *MockStore) ListTransactions(ctx context.Context, itemID uuid.UUID, page, limit int) ([]models.InventoryTransaction, int64, error) {
	args := m.Called(ctx, itemID, page, limit)
	return args.Get(0).([]models.InventoryTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) DBHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) RedisHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockAdjuster is a mock implementation of StockAdjuster
type MockAdjuster struct {
	mock.Mock
}

func (m *MockAdjuster) ApplyAdjustment(ctx context.Context, input ledger.AdjustmentInput) (*models.StockItem, *models.InventoryTransaction, error) {
	args := m.Called(ctx, input)
	var item *models.StockItem
	var tx *models.InventoryTransaction
	if args.Get(0) != nil {
		item = args.Get(0).(*models.StockItem)
	}
	if args.Get(1) != nil {
		tx = args.Get(1).(*models.InventoryTransaction)
	}
	return item, tx, args.Error(2)
}

// MockReverser is a mock implementation of TransactionReverser
type MockReverser struct {
	mock.Mock
}

func (m *MockReverser) Reverse(ctx context.Context, transactionID uuid.UUID, actorID *string) (*models.InventoryTransaction, error) {
	args := m.Called(ctx, transactionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryTransaction), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdjustStock_Success(t *testing.T) {
	mockAdjuster := new(MockAdjuster)
	handler := NewLedgerHandler(nil, mockAdjuster, nil)

	router := setupTestRouter()
	router.POST("/stock/adjust", handler.AdjustStock)

	itemID := uuid.New()
	item := &models.StockItem{ID: itemID, SKU: "HW-RIVET-8MM", Quantity: 150, Status: models.StockStatusOK}
	tx := &models.InventoryTransaction{ID: uuid.New(), StockItemID: itemID, Quantity: 100, IsAddition: true}

	mockAdjuster.On("ApplyAdjustment", mock.Anything, mock.MatchedBy(func(input ledger.AdjustmentInput) bool {
		return input.ItemID == itemID && input.Delta == 100 && input.TransactionType == models.TransactionTypePurchase
	})).Return(item, tx, nil)

	w := performJSON(router, http.MethodPost, "/stock/adjust", models.AdjustStockRequest{
		ItemID:          itemID,
		Delta:           100,
		TransactionType: models.TransactionTypePurchase,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AdjustmentResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 150.0, resp.Item.Quantity)
	mockAdjuster.AssertExpectations(t)
}

func TestAdjustStock_InsufficientStock(t *testing.T) {
	mockAdjuster := new(MockAdjuster)
	handler := NewLedgerHandler(nil, mockAdjuster, nil)

	router := setupTestRouter()
	router.POST("/stock/adjust", handler.AdjustStock)

	mockAdjuster.On("ApplyAdjustment", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("%w: item HW-RIVET-8MM has 10.000, cannot remove 25.000", models.ErrInsufficientStock))

	w := performJSON(router, http.MethodPost, "/stock/adjust", models.AdjustStockRequest{
		ItemID:          uuid.New(),
		Delta:           -25,
		TransactionType: models.TransactionTypeConsumption,
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
}

func TestAdjustStock_CapacityExceeded(t *testing.T) {
	mockAdjuster := new(MockAdjuster)
	handler := NewLedgerHandler(nil, mockAdjuster, nil)

	router := setupTestRouter()
	router.POST("/stock/adjust", handler.AdjustStock)

	mockAdjuster.On("ApplyAdjustment", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("%w: location full", models.ErrCapacityExceeded))

	w := performJSON(router, http.MethodPost, "/stock/adjust", models.AdjustStockRequest{
		ItemID:          uuid.New(),
		Delta:           10,
		TransactionType: models.TransactionTypePurchase,
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CAPACITY_EXCEEDED", resp.Error.Code)
}

func TestAdjustStock_ConcurrentModification(t *testing.T) {
	mockAdjuster := new(MockAdjuster)
	handler := NewLedgerHandler(nil, mockAdjuster, nil)

	router := setupTestRouter()
	router.POST("/stock/adjust", handler.AdjustStock)

	mockAdjuster.On("ApplyAdjustment", mock.Anything, mock.Anything).
		Return(nil, nil, models.ErrConcurrentModification)

	w := performJSON(router, http.MethodPost, "/stock/adjust", models.AdjustStockRequest{
		ItemID:          uuid.New(),
		Delta:           -5,
		TransactionType: models.TransactionTypeConsumption,
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONCURRENT_MODIFICATION", resp.Error.Code)
}

func TestAdjustStock_ValidationError(t *testing.T) {
	handler := NewLedgerHandler(nil, new(MockAdjuster), nil)

	router := setupTestRouter()
	router.POST("/stock/adjust", handler.AdjustStock)

	// Missing itemId and transactionType
	w := performJSON(router, http.MethodPost, "/stock/adjust", map[string]interface{}{
		"delta": 10,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReverseTransaction_Success(t *testing.T) {
	mockReverser := new(MockReverser)
	handler := NewLedgerHandler(nil, nil, mockReverser)

	router := setupTestRouter()
	router.POST("/transactions/:id/reverse", handler.ReverseTransaction)

	originalID := uuid.New()
	reversal := &models.InventoryTransaction{
		ID:              uuid.New(),
		TransactionType: models.TransactionTypeReversal,
		Quantity:        15,
		IsAddition:      true,
		ReversedOf:      &originalID,
	}

	mockReverser.On("Reverse", mock.Anything, originalID, (*string)(nil)).Return(reversal, nil)

	w := performJSON(router, http.MethodPost, "/transactions/"+originalID.String()+"/reverse", nil)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.TransactionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.TransactionTypeReversal, resp.Data.TransactionType)
	mockReverser.AssertExpectations(t)
}

func TestReverseTransaction_AlreadyReversed(t *testing.T) {
	mockReverser := new(MockReverser)
	handler := NewLedgerHandler(nil, nil, mockReverser)

	router := setupTestRouter()
	router.POST("/transactions/:id/reverse", handler.ReverseTransaction)

	id := uuid.New()
	mockReverser.On("Reverse", mock.Anything, id, (*string)(nil)).
		Return(nil, fmt.Errorf("%w: transaction %s", models.ErrAlreadyReversed, id))

	w := performJSON(router, http.MethodPost, "/transactions/"+id.String()+"/reverse", nil)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ALREADY_REVERSED", resp.Error.Code)
}

func TestReverseTransaction_InvalidID(t *testing.T) {
	handler := NewLedgerHandler(nil, nil, new(MockReverser))

	router := setupTestRouter()
	router.POST("/transactions/:id/reverse", handler.ReverseTransaction)

	w := performJSON(router, http.MethodPost, "/transactions/not-a-uuid/reverse", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetItem_NotFound(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.GET("/items/:id", handler.GetItem)

	id := uuid.New()
	mockStore.On("GetStockItem", mock.Anything, id).
		Return(nil, fmt.Errorf("%w: stock item %s", models.ErrNotFound, id))

	w := performJSON(router, http.MethodGet, "/items/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestRegisterItem_DuplicateSKU(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.POST("/items", handler.RegisterItem)

	existing := &models.StockItem{ID: uuid.New(), SKU: "LTH-VEG-TAN-A"}
	mockStore.On("FindStockItemBySKU", mock.Anything, "LTH-VEG-TAN-A").Return(existing, nil)

	w := performJSON(router, http.MethodPost, "/items", models.RegisterItemRequest{
		SKU:              "LTH-VEG-TAN-A",
		Name:             "Veg-tan shoulder, grade A",
		Kind:             models.ItemKindLeather,
		WarningThreshold: 25,
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DUPLICATE_SKU", resp.Error.Code)
	mockStore.AssertNotCalled(t, "CreateStockItem", mock.Anything, mock.Anything)
}

func TestRegisterItem_LeatherDefaultsToSquareFeet(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.POST("/items", handler.RegisterItem)

	mockStore.On("FindStockItemBySKU", mock.Anything, "LTH-CHROME-BLK").Return(nil, nil)
	mockStore.On("CreateStockItem", mock.Anything, mock.MatchedBy(func(item *models.StockItem) bool {
		return item.Unit == models.UnitSquareFeet &&
			item.Status == models.StockStatusOutOfStock &&
			item.Active
	})).Return(nil)

	w := performJSON(router, http.MethodPost, "/items", models.RegisterItemRequest{
		SKU:              "LTH-CHROME-BLK",
		Name:             "Chrome-tan side, black",
		Kind:             models.ItemKindLeather,
		WarningThreshold: 30,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	mockStore.AssertExpectations(t)
}

func TestRegisterItem_InvalidKind(t *testing.T) {
	handler := NewLedgerHandler(new(MockStore), nil, nil)

	router := setupTestRouter()
	router.POST("/items", handler.RegisterItem)

	w := performJSON(router, http.MethodPost, "/items", models.RegisterItemRequest{
		SKU:  "X-1",
		Name: "Mystery item",
		Kind: "GADGET",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterItem_UnitMismatchWithLocation(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.POST("/items", handler.RegisterItem)

	locID := uuid.New()
	loc := &models.StorageLocation{ID: locID, Label: "Parts drawer", Unit: models.UnitCount, Capacity: 500}

	mockStore.On("FindStockItemBySKU", mock.Anything, "LTH-SUEDE-GRY").Return(nil, nil)
	mockStore.On("GetStorageLocation", mock.Anything, locID).Return(loc, nil)

	w := performJSON(router, http.MethodPost, "/items", models.RegisterItemRequest{
		SKU:               "LTH-SUEDE-GRY",
		Name:              "Suede split, grey",
		Kind:              models.ItemKindLeather,
		WarningThreshold:  10,
		StorageLocationID: &locID,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockStore.AssertNotCalled(t, "CreateStockItem", mock.Anything, mock.Anything)
}

func TestGetUtilization(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.GET("/locations/:id/utilization", handler.GetUtilization)

	loc := &models.StorageLocation{
		ID:               uuid.New(),
		Label:            "Shelf A",
		Capacity:         200,
		CurrentOccupancy: 50,
	}
	mockStore.On("GetStorageLocation", mock.Anything, loc.ID).Return(loc, nil)

	w := performJSON(router, http.MethodGet, "/locations/"+loc.ID.String()+"/utilization", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.UtilizationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 25.0, resp.UtilizationPercent)
}

func TestListItemTransactions(t *testing.T) {
	mockStore := new(MockStore)
	handler := NewLedgerHandler(mockStore, nil, nil)

	router := setupTestRouter()
	router.GET("/items/:id/transactions", handler.ListItemTransactions)

	itemID := uuid.New()
	txs := []models.InventoryTransaction{
		{ID: uuid.New(), StockItemID: itemID, TransactionType: models.TransactionTypePurchase, Quantity: 50, IsAddition: true},
		{ID: uuid.New(), StockItemID: itemID, TransactionType: models.TransactionTypeConsumption, Quantity: 15, IsAddition: false},
	}
	mockStore.On("ListTransactions", mock.Anything, itemID, 0, 0).Return(txs, int64(2), nil)

	w := performJSON(router, http.MethodGet, "/items/"+itemID.String()+"/transactions", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TransactionListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, models.TransactionTypePurchase, resp.Data[0].TransactionType)
}
