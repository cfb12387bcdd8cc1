package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CheckoutRequest struct {
	ShippingName    string `json:"shipping_name" binding:"required,max=100"`
	ShippingAddress string `json:"shipping_address" binding:"required,max=500"`
	ShippingCity    string `json:"shipping_city" binding:"max=100"`
	ShippingState   string `json:"shipping_state" binding:"max=100"`
	ShippingZipCode string `json:"shipping_zip_code" binding:"max=20"`
	ShippingCountry string `json:"shipping_country" binding:"max=100"`
	PaymentMethod   string `json:"payment_method" binding:"omitempty,oneof=card"`
	Currency        string `json:"currency" binding:"omitempty,len=3,alpha"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled refunded"`
}

// Checkout turns the cart into an order. The response carries
// payment_client_secret for the client to confirm the payment with.
// POST /api/v1/checkout
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		respondBindingError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > 128 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, IdempotencyKeyHeader+" must be at most 128 characters")
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	order, err := ctrl.orderService.Checkout(c.Request.Context(), service.CheckoutRequest{
		UserID: userID,
		Shipping: service.ShippingAddress{
			Name:    req.ShippingName,
			Address: req.ShippingAddress,
			City:    req.ShippingCity,
			State:   req.ShippingState,
			ZipCode: req.ShippingZipCode,
			Country: req.ShippingCountry,
		},
		PaymentMethod:  paymentMethod,
		Currency:       req.Currency,
		IdempotencyKey: key,
	})
	if err != nil {
		respondError(c, err, "check out")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	resp := gin.H{"order": order}
	if order.PaymentClientSecret != "" {
		resp["payment_client_secret"] = order.PaymentClientSecret
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMyOrders returns the caller's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) ListMyOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page, err := ctrl.orderService.ListUserOrders(c.Request.Context(), userID, queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetMyOrder returns one of the caller's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetMyOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetUserOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err, "fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrders returns every order, optionally filtered by status (privileged)
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	page, err := ctrl.orderService.ListOrders(c.Request.Context(), service.OrderListQuery{
		Status:   model.OrderStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
	})
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateOrderStatus moves an order along its lifecycle (privileged)
// PATCH /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err, "update order status")
		return
	}

	actor, _ := middleware.GetUserID(c)
	log.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   order.Status,
		"actor_id": actor,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}
