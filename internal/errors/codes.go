package errors

// Error codes returned in the "error" field of every failure response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map on the code, not the message.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed or forged token
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // logged out
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // email taken
	AuthWeakPassword       = "AUTH_WEAK_PASSWORD"       // password too short

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden       = "AUTHZ_FORBIDDEN"          // missing role
	AuthzAdminOnly       = "AUTHZ_ADMIN_ONLY"         // Administrator only
	AuthzRoleNotFound    = "AUTHZ_ROLE_NOT_FOUND"     // unknown role
	AuthzRoleExists      = "AUTHZ_ROLE_EXISTS"        // role name taken
	AuthzRoleAssigned    = "AUTHZ_ROLE_ASSIGNED"      // user already holds role
	AuthzRoleNotAssigned = "AUTHZ_ROLE_NOT_ASSIGNED"  // user does not hold role
	AuthzLastAdmin       = "AUTHZ_LAST_ADMINISTRATOR" // would leave no Administrator

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // bad request body or query
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // bad path id
	ValidationRequired     = "VALIDATION_REQUIRED"      // required field missing

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // not found
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // duplicate
	ResourceConflict      = "RESOURCE_CONFLICT"       // concurrent change

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound   = "PRODUCT_NOT_FOUND"   // missing or inactive product
	ProductSKUExists  = "PRODUCT_SKU_EXISTS"  // duplicate SKU
	ProductStockRange = "PRODUCT_STOCK_RANGE" // adjustment would go negative

	// ==================== Cart (CART_) ====================
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"   // product not in cart
	CartInvalidQuantity = "CART_INVALID_QUANTITY" // quantity must be positive
	CartEmpty           = "CART_EMPTY"            // nothing to check out

	// ==================== Order (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"          // missing or foreign order
	OrderInsufficientStock = "ORDER_INSUFFICIENT_STOCK" // a line could not be reserved
	OrderPaymentFailed     = "ORDER_PAYMENT_FAILED"     // declined or gateway down
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION" // status change not allowed
	OrderCheckoutFatal     = "ORDER_CHECKOUT_FATAL"     // paid but not recorded

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // server error
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB error
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // upstream failure
)
