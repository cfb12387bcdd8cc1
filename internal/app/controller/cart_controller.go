package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the user's cart, creating it on first use
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "fetch cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// AddToCart adds quantity of a product, merging with an existing line
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		respondBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err, "add item to cart")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpdateCartItem sets the quantity of one line
// PUT /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.UpdateQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondError(c, err, "update cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveCartItem drops one line; removing an absent line is not an error
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveCartItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err, "remove cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.ClearCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}
