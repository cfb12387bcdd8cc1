package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindItem(ctx context.Context, cartID, productID uint) (*model.CartItem, error)
	AddItem(ctx context.Context, cartID, productID uint, quantity int, unitPrice decimal.Decimal) error
	UpdateItemQuantity(ctx context.Context, cartID, productID uint, quantity int) (bool, error)
	DeleteItem(ctx context.Context, cartID, productID uint) error
	DeleteItems(ctx context.Context, cartID uint) error
	ConsumeItems(ctx context.Context, cartID uint, quantities map[uint]int) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func preloadCart(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id ASC")
		}).
		Preload("Items.Product").
		Preload("Items.Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_images.display_order ASC, product_images.id ASC")
		})
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	err := preloadCart(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find cart by user ID", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}
	return &cart, nil
}

// FindOrCreateByUserID tolerates two first requests racing to create the cart:
// the loser's insert is a no-op and both read the same row.
func (r *cartRepository) FindOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	cart, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	logger.Debug("Creating cart for user", map[string]interface{}{
		"user_id": userID,
	})

	newCart := model.Cart{UserID: userID}
	err = r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&newCart).Error
	if err != nil {
		logger.Error("Failed to create cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	return r.FindByUserID(ctx, userID)
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AddItem inserts the line or, when the product is already in the cart,
// adds quantity to the stored value in the same statement. The unit price
// snapshot of an existing line is left untouched.
func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uint, quantity int, unitPrice decimal.Decimal) error {
	logger.Debug("Upserting cart item in database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	item := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": time.Now(),
			}),
		}).
		Create(&item).Error
	if err != nil {
		logger.Error("Failed to upsert cart item", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, productID uint, quantity int) (bool, error) {
	logger.Debug("Updating cart item quantity in database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to update cart item quantity", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	return true, r.touch(ctx, cartID)
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, productID uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
	})

	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{}).Error
	if err != nil {
		logger.Error("Failed to delete cart item", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uint) error {
	logger.Debug("Deleting all cart items from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return r.touch(ctx, cartID)
}

// ConsumeItems takes the given quantities (keyed by product ID) out of the
// cart. Lines that drop to zero are deleted; quantity added to a line after
// the quantities were read is kept.
func (r *cartRepository) ConsumeItems(ctx context.Context, cartID uint, quantities map[uint]int) error {
	logger.Debug("Consuming checked out cart items", map[string]interface{}{
		"cart_id": cartID,
		"lines":   len(quantities),
	})

	db := r.db.WithContext(ctx)
	for productID, quantity := range quantities {
		err := db.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ? AND quantity > ?", cartID, productID, quantity).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity - ?", quantity),
				"updated_at": time.Now(),
			}).Error
		if err == nil {
			err = db.Where("cart_id = ? AND product_id = ? AND quantity <= ?", cartID, productID, quantity).
				Delete(&model.CartItem{}).Error
		}
		if err != nil {
			logger.Error("Failed to consume cart item", err, map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
			})
			return err
		}
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) touch(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error
}
