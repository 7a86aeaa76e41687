package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/models"
)

// Cache TTL constants
const (
	StockItemCacheTTL = 5 * time.Minute  // items change on every adjustment
	LocationCacheTTL  = 30 * time.Minute // locations rarely change shape
)

const cacheKeyPrefix = "stockledger:"

// LedgerRepository is the gorm/postgres implementation of ledger.Repository,
// plus the listing and registration operations the HTTP layer needs. Plain
// reads go through a Redis cache-aside layer when a client is configured;
// locked reads and writes always hit Postgres.
type LedgerRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *gorm.DB, redisClient *redis.Client) *LedgerRepository {
	return &LedgerRepository{
		db:    db,
		redis: redisClient,
	}
}

// WithTransaction runs fn inside a single database transaction. The
// repository handed to fn shares this repository's cache client but is bound
// to the transaction, so row locks taken through it hold until fn returns.
func (r *LedgerRepository) WithTransaction(ctx context.Context, fn func(txRepo ledger.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LedgerRepository{db: tx, redis: r.redis})
	})
}

func itemCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("%sitem:%s", cacheKeyPrefix, id.String())
}

func locationCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("%slocation:%s", cacheKeyPrefix, id.String())
}

func (r *LedgerRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (r *LedgerRepository) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = r.redis.Set(ctx, key, data, ttl).Err()
}

func (r *LedgerRepository) cacheDelete(ctx context.Context, keys ...string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, keys...).Err()
}

// ========== Stock Item Operations ==========

// CreateStockItem registers a new item. Status is derived from the initial
// (zero) quantity before insert.
func (r *LedgerRepository) CreateStockItem(ctx context.Context, item *models.StockItem) error {
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *LedgerRepository) GetStockItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	if r.cacheGet(ctx, itemCacheKey(id), &item) {
		return &item, nil
	}

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: stock item %s", models.ErrNotFound, id)
		}
		return nil, err
	}

	r.cacheSet(ctx, itemCacheKey(id), &item, StockItemCacheTTL)
	return &item, nil
}

func (r *LedgerRepository) GetStockItemForUpdate(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: stock item %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &item, nil
}

// SaveStockItem persists ledger-managed fields with an optimistic version
// check. A zero-row update means another writer got there first.
func (r *LedgerRepository) SaveStockItem(ctx context.Context, item *models.StockItem) error {
	oldVersion := item.Version

	result := r.db.WithContext(ctx).Model(item).
		Where("id = ? AND version = ?", item.ID, oldVersion).
		Updates(map[string]interface{}{
			"quantity":   item.Quantity,
			"status":     item.Status,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
			"updated_by": item.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrConcurrentModification
	}

	item.Version = oldVersion + 1
	r.cacheDelete(ctx, itemCacheKey(item.ID))
	return nil
}

// DeactivateStockItem soft-deactivates an item so its transaction history
// stays intact. Deactivated items reject further adjustments.
func (r *LedgerRepository) DeactivateStockItem(ctx context.Context, id uuid.UUID, actorID *string) error {
	result := r.db.WithContext(ctx).Model(&models.StockItem{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
			"updated_by": actorID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: active stock item %s", models.ErrNotFound, id)
	}

	r.cacheDelete(ctx, itemCacheKey(id))
	return nil
}

// ListStockItems retrieves items with optional kind/status filters and
// pagination.
func (r *LedgerRepository) ListStockItems(ctx context.Context, kind *models.ItemKind, status *models.StockStatus, activeOnly bool, page, limit int) ([]models.StockItem, int64, error) {
	var items []models.StockItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.StockItem{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("sku ASC").Find(&items).Error
	return items, total, err
}

// ListBelowThreshold returns active items whose status is anything other
// than OK, most depleted first.
func (r *LedgerRepository) ListBelowThreshold(ctx context.Context) ([]models.StockItem, error) {
	var items []models.StockItem
	err := r.db.WithContext(ctx).
		Where("active = ? AND status <> ?", true, models.StockStatusOK).
		Order("quantity ASC").
		Find(&items).Error
	return items, err
}

// FindStockItemBySKU resolves an item by its SKU. Returns (nil, nil) when no
// item carries the SKU.
func (r *LedgerRepository) FindStockItemBySKU(ctx context.Context, sku string) (*models.StockItem, error) {
	var item models.StockItem
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ========== Storage Location Operations ==========

func (r *LedgerRepository) CreateStorageLocation(ctx context.Context, loc *models.StorageLocation) error {
	loc.CreatedAt = time.Now()
	loc.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *LedgerRepository) GetStorageLocation(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error) {
	var loc models.StorageLocation
	if r.cacheGet(ctx, locationCacheKey(id), &loc) {
		return &loc, nil
	}

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: storage location %s", models.ErrNotFound, id)
		}
		return nil, err
	}

	r.cacheSet(ctx, locationCacheKey(id), &loc, LocationCacheTTL)
	return &loc, nil
}

func (r *LedgerRepository) GetStorageLocationForUpdate(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error) {
	var loc models.StorageLocation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: storage location %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &loc, nil
}

func (r *LedgerRepository) SaveStorageLocation(ctx context.Context, loc *models.StorageLocation) error {
	oldVersion := loc.Version

	result := r.db.WithContext(ctx).Model(loc).
		Where("id = ? AND version = ?", loc.ID, oldVersion).
		Updates(map[string]interface{}{
			"current_occupancy": loc.CurrentOccupancy,
			"version":           oldVersion + 1,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrConcurrentModification
	}

	loc.Version = oldVersion + 1
	r.cacheDelete(ctx, locationCacheKey(loc.ID))
	return nil
}

func (r *LedgerRepository) ListStorageLocations(ctx context.Context, page, limit int) ([]models.StorageLocation, int64, error) {
	var locations []models.StorageLocation
	var total int64

	query := r.db.WithContext(ctx).Model(&models.StorageLocation{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("label ASC").Find(&locations).Error
	return locations, total, err
}

// ========== Transaction Operations ==========

func (r *LedgerRepository) AppendTransaction(ctx context.Context, tx *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error) {
	var tx models.InventoryTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: transaction %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &tx, nil
}

func (r *LedgerRepository) FindTransactionByReference(ctx context.Context, reference string, txType models.TransactionType) (*models.InventoryTransaction, error) {
	var tx models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Where("reference = ? AND transaction_type = ?", reference, txType).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *LedgerRepository) FindReversalOf(ctx context.Context, transactionID uuid.UUID) (*models.InventoryTransaction, error) {
	var tx models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Where("reversed_of = ?", transactionID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// ListTransactions returns an item's ledger in append order, oldest first,
// keyed on the monotonic sequence column. Per item, appends happen under the
// item row lock, so sequence order is commit order.
func (r *LedgerRepository) ListTransactions(ctx context.Context, itemID uuid.UUID, page, limit int) ([]models.InventoryTransaction, int64, error) {
	var txs []models.InventoryTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("stock_item_id = ?", itemID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("seq ASC").Find(&txs).Error
	return txs, total, err
}

// ========== Health ==========

func (r *LedgerRepository) DBHealth(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *LedgerRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}
