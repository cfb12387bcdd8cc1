package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItemView is one cart line as returned to the client.
type CartItemView struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductSKU    string          `json:"product_sku"`
	ImageURL      string          `json:"image_url,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Available     bool            `json:"available"`
	StockQuantity int             `json:"stock_quantity"`
}

// CartView is the full cart projection every cart operation returns.
// Subtotal is priced at current catalog prices; checkout re-reads them.
type CartView struct {
	CartID    uint            `json:"cart_id"`
	UserID    uint            `json:"user_id"`
	Items     []CartItemView  `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func (v CartItemView) MarshalJSON() ([]byte, error) {
	type itemView CartItemView
	return json.Marshal(struct {
		itemView
		UnitPrice    money.Amount `json:"unit_price"`
		CurrentPrice money.Amount `json:"current_price"`
		LineTotal    money.Amount `json:"line_total"`
	}{
		itemView:     itemView(v),
		UnitPrice:    money.Amount(v.UnitPrice),
		CurrentPrice: money.Amount(v.CurrentPrice),
		LineTotal:    money.Amount(v.LineTotal),
	})
}

func (v CartView) MarshalJSON() ([]byte, error) {
	type cartView CartView
	return json.Marshal(struct {
		cartView
		Subtotal money.Amount `json:"subtotal"`
	}{cartView(v), money.Amount(v.Subtotal)})
}

type CartService interface {
	GetCart(ctx context.Context, userID uint) (*CartView, error)
	AddItem(ctx context.Context, userID, productID uint, quantity int) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, productID uint) (*CartView, error)
	ClearCart(ctx context.Context, userID uint) (*CartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func newCartView(cart *model.Cart) *CartView {
	view := &CartView{
		CartID:   cart.ID,
		UserID:   cart.UserID,
		Items:    make([]CartItemView, 0, len(cart.Items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range cart.Items {
		price := item.Product.Price
		line := money.LineTotal(price, item.Quantity)
		view.Items = append(view.Items, CartItemView{
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			ProductSKU:    item.Product.SKU,
			ImageURL:      item.Product.PrimaryImageURL(),
			UnitPrice:     item.UnitPrice,
			CurrentPrice:  price,
			Quantity:      item.Quantity,
			LineTotal:     line,
			Available:     item.Product.IsActive && item.Product.StockQuantity >= item.Quantity,
			StockQuantity: item.Product.StockQuantity,
		})
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line)
	}
	return view
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return newCartView(cart), nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.AddItem(ctx, cart.ID, product.ID, quantity, product.Price); err != nil {
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) (*CartView, error) {
	logger.Info("Updating cart item quantity", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if !updated {
		logger.Warn("Cannot update quantity: product not in cart", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, ErrItemNotInCart
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uint) (*CartView, error) {
	logger.Info("Removing item from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) (*CartView, error) {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}
