package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
	"github.com/hairpin-store/hairpin-backend/pkg/util"
)

// errorCodes picks the response code for a known service error. Order
// matters where one error wraps another.
var errorCodes = []struct {
	err  error
	code string
}{
	{service.ErrCheckoutFatal, apperrors.OrderCheckoutFatal},
	{service.ErrInsufficientStock, apperrors.OrderInsufficientStock},
	{service.ErrPaymentFailed, apperrors.OrderPaymentFailed},
	{service.ErrProductNotFound, apperrors.ProductNotFound},
	{service.ErrItemNotInCart, apperrors.CartItemNotFound},
	{service.ErrOrderNotFound, apperrors.OrderNotFound},
	{service.ErrRoleNotFound, apperrors.AuthzRoleNotFound},
	{service.ErrRoleNotAssigned, apperrors.AuthzRoleNotAssigned},
	{service.ErrSKUConflict, apperrors.ProductSKUExists},
	{service.ErrRoleAlreadyAssigned, apperrors.AuthzRoleAssigned},
	{service.ErrRoleAlreadyExists, apperrors.AuthzRoleExists},
	{service.ErrLastAdministrator, apperrors.AuthzLastAdmin},
	{service.ErrEmailAlreadyExists, apperrors.AuthEmailAlreadyExists},
	{service.ErrInvalidQuantity, apperrors.CartInvalidQuantity},
	{service.ErrEmptyCart, apperrors.CartEmpty},
	{service.ErrInvalidStockAdjustment, apperrors.ProductStockRange},
	{service.ErrInvalidStatusTransition, apperrors.OrderInvalidTransition},
	{service.ErrInvalidCredentials, apperrors.AuthInvalidCredentials},
	{util.ErrWeakPassword, apperrors.AuthWeakPassword},
}

func codeFor(err error, fallback string) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return fallback
}

// respondError maps a service error onto the HTTP error body.
func respondError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	switch service.KindOf(err) {
	case service.KindNotFound:
		apperrors.NotFound(c, codeFor(err, apperrors.ResourceNotFound), err.Error())

	case service.KindConflict:
		apperrors.Conflict(c, codeFor(err, apperrors.ResourceConflict), err.Error())

	case service.KindInvalid:
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			apperrors.RespondWithValidationError(c, map[string]string{verr.Field: verr.Reason})
			return
		}
		apperrors.BadRequest(c, codeFor(err, apperrors.ValidationInvalidInput), err.Error())

	case service.KindInsufficientStock:
		var stockErr *service.InsufficientStockError
		if errors.As(err, &stockErr) {
			apperrors.RespondWithDetails(c, http.StatusConflict, apperrors.OrderInsufficientStock, err.Error(), map[string]interface{}{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			})
			return
		}
		apperrors.Conflict(c, apperrors.OrderInsufficientStock, err.Error())

	case service.KindPaymentFailed:
		apperrors.PaymentRequired(c, apperrors.OrderPaymentFailed, "Payment was declined or could not be completed")

	case service.KindFatal:
		// Reconciliation details are already logged by the service.
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.OrderCheckoutFatal,
			"Your order could not be completed. Support has been notified")

	case service.KindUnauthorized:
		apperrors.RespondWithError(c, http.StatusUnauthorized, codeFor(err, apperrors.AuthUnauthorized), err.Error())

	default:
		log.Error("Failed to "+action, err, nil)
		apperrors.InternalError(c, "")
	}
}

// parseID reads a positive uint path parameter, responding 400 when it is
// malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid path id", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireUser reads the authenticated user id.
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
