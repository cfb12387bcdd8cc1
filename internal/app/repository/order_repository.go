package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"gorm.io/gorm"
)

// OrderFilter selects orders for the back office listing.
type OrderFilter struct {
	UserID uint
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByUserID(ctx context.Context, userID uint, limit, offset int) ([]model.Order, int64, error)
	FindByUserAndIdempotencyKey(ctx context.Context, userID uint, key string) (*model.Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.OrderStatus, stamps map[string]interface{}) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	})
}

// Create inserts the order header and its lines in one call.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
	})

	if err := r.db.WithContext(ctx).Omit("User").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"order_number": order.OrderNumber,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"items":        len(order.Items),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := preloadOrder(r.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uint, limit, offset int) ([]model.Order, int64, error) {
	return r.FindAll(ctx, OrderFilter{UserID: userID, Limit: limit, Offset: offset})
}

func (r *orderRepository) FindByUserAndIdempotencyKey(ctx context.Context, userID uint, key string) (*model.Order, error) {
	logger.Debug("Finding order by idempotency key", map[string]interface{}{
		"user_id": userID,
	})

	var order model.Order
	err := preloadOrder(r.db.WithContext(ctx)).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders in database", map[string]interface{}{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	query := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err, map[string]interface{}{
			"user_id": filter.UserID,
		})
		return nil, 0, err
	}

	var orders []model.Order
	page := preloadOrder(query).Order("order_date DESC").Order("id DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := page.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders", err, map[string]interface{}{
			"user_id": filter.UserID,
		})
		return nil, 0, err
	}

	logger.Debug("Orders found in database", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

// UpdateStatus moves the order from one status to another only if it is
// still in the expected status. It reports false when another writer got
// there first.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to model.OrderStatus, stamps map[string]interface{}) (bool, error) {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range stamps {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
