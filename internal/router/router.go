package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/config"
	"github.com/hairpin-store/hairpin-backend/internal/app/controller"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a backing store is reachable.
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	authController    *controller.AuthController
	productController *controller.ProductController
	cartController    *controller.CartController
	orderController   *controller.OrderController
	adminController   *controller.AdminController
	authMiddleware    *middleware.AuthMiddleware
	metrics           *metrics.Metrics
	gatherer          prometheus.Gatherer
	config            *config.Config
	ready             ReadinessCheck
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		productController: productController,
		cartController:    cartController,
		orderController:   orderController,
		adminController:   adminController,
		authMiddleware:    authMiddleware,
		metrics:           m,
		gatherer:          gatherer,
		config:            cfg,
	}
}

// WithReadinessCheck makes /health answer 503 while check fails.
func (r *Router) WithReadinessCheck(check ReadinessCheck) *Router {
	r.ready = check
	return r
}

func (r *Router) Setup() (*gin.Engine, error) {
	gin.SetMode(r.config.Server.GinMode)

	if err := controller.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(r.metrics))
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler(r.gatherer)))

	auth := r.authMiddleware
	privileged := []gin.HandlerFunc{auth.Authenticate(), auth.RequirePrivileged()}
	adminOnly := []gin.HandlerFunc{auth.Authenticate(), auth.RequireAdministrator()}
	with := func(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guards...), h)
	}

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", r.authController.Register)
			authGroup.POST("/login", r.authController.Login)
			authGroup.POST("/refresh", r.authController.RefreshToken)
			authGroup.POST("/logout", auth.Authenticate(), r.authController.Logout)
			authGroup.GET("/me", auth.Authenticate(), r.authController.GetMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/filters", r.productController.GetFilterOptions)
			products.GET("/count", r.productController.CountProducts)
			products.GET("/:id", r.productController.GetProduct)

			products.POST("", with(privileged, r.productController.CreateProduct)...)
			products.PUT("/:id", with(privileged, r.productController.UpdateProduct)...)
			products.PATCH("/:id/stock", with(privileged, r.productController.AdjustStock)...)
			products.DELETE("/:id", with(privileged, r.productController.DeactivateProduct)...)
		}

		cart := v1.Group("/cart")
		cart.Use(auth.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:productId", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:productId", r.cartController.RemoveCartItem)
		}

		v1.POST("/checkout", auth.Authenticate(), r.orderController.Checkout)

		orders := v1.Group("/orders")
		orders.Use(auth.Authenticate())
		{
			orders.GET("", r.orderController.ListMyOrders)
			orders.GET("/:id", r.orderController.GetMyOrder)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/products/low-stock", with(privileged, r.adminController.ListLowStock)...)
			admin.GET("/products/export", with(privileged, r.adminController.ExportProducts)...)

			admin.GET("/orders", with(privileged, r.orderController.ListOrders)...)
			admin.PATCH("/orders/:id/status", with(privileged, r.orderController.UpdateOrderStatus)...)

			admin.GET("/users", with(privileged, r.adminController.ListUsers)...)
			admin.GET("/users/:id/roles", with(privileged, r.adminController.ListUserRoles)...)
			admin.GET("/roles", with(privileged, r.adminController.ListRoles)...)

			admin.POST("/roles", with(adminOnly, r.adminController.CreateRole)...)
			admin.POST("/users/:id/roles", with(adminOnly, r.adminController.AssignRole)...)
			admin.DELETE("/users/:id/roles/:role", with(adminOnly, r.adminController.RemoveRole)...)
		}
	}

	return router, nil
}

func (r *Router) health(c *gin.Context) {
	if r.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := r.ready(ctx); err != nil {
			middleware.GetLoggerFromContext(c).Error("Readiness check failed", err, nil)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"message": "Database is unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Hairpin Store API is running",
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, Idempotency-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
