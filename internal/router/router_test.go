package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/config"
	"github.com/hairpin-store/hairpin-backend/internal/app/controller"
	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/hairpin-store/hairpin-backend/pkg/payment/stripe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

// memoryRevocations keeps revoked tokens in a map in place of Redis.
type memoryRevocations struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}

func (m *memoryRevocations) BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = struct{}{}
	return nil
}

func (m *memoryRevocations) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	router *Router
}

func setupTestServer(t *testing.T) *testServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"pi_%s","object":"payment_intent","status":"requires_confirmation","client_secret":"secret"}`,
			r.Header.Get("Idempotency-Key"))
	}))
	t.Cleanup(provider.Close)

	gateway, err := stripe.NewClient(stripe.Config{SecretKey: "sk_test", BaseURL: provider.URL, Timeout: time.Second})
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	userRepo := repository.NewUserRepository(testDB)
	roleRepo := repository.NewRoleRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	revocations := &memoryRevocations{tokens: map[string]struct{}{}}

	authService := service.NewAuthService(userRepo, roleRepo, revocations, testSecret, 15*time.Minute, time.Hour)
	productService := service.NewProductService(testDB, productRepo, nil)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(testDB, orderRepo, cartRepo, productRepo, gateway, m, service.CheckoutConfig{
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		TaxRate:               decimal.RequireFromString("0.08"),
	})
	roleService := service.NewRoleService(testDB, userRepo, roleRepo)

	r := NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService),
		controller.NewAdminController(productService, roleService),
		middleware.NewAuthMiddleware(testSecret, revocations, roleService),
		m,
		registry,
		cfg,
	)
	engine, err := r.Setup()
	require.NoError(t, err)

	return &testServer{engine: engine, db: testDB, router: r}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type authResponse struct {
	User   model.User `json:"user"`
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
}

func (s *testServer) register(t *testing.T, email string) authResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) grant(t *testing.T, userID uint, roleName string) {
	t.Helper()
	var role model.Role
	require.NoError(t, s.db.Where("normalized_name = ?", model.NormalizeRoleName(roleName)).First(&role).Error)
	require.NoError(t, s.db.Create(&model.UserRole{UserID: userID, RoleID: role.ID}).Error)
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	s.router.WithReadinessCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	s.router.WithReadinessCheck(sqlDB.PingContext)
	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkout", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestShoppingFlow(t *testing.T) {
	s := setupTestServer(t)

	customer := s.register(t, "customer@example.com")
	staff := s.register(t, "staff@example.com")
	s.grant(t, staff.User.ID, model.RoleManager)

	product := map[string]interface{}{
		"sku":            "HP-PEARL-01",
		"name":           "Pearl Clip",
		"price":          "12.50",
		"stock_quantity": 5,
	}

	w := s.do(t, http.MethodPost, "/api/v1/products", "", product)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/products", customer.Tokens.AccessToken, product)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/products", staff.Tokens.AccessToken, product)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Product model.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "HP-PEARL-01")

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", customer.Tokens.AccessToken, map[string]interface{}{
		"product_id": created.Product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/checkout", customer.Tokens.AccessToken, map[string]interface{}{
		"shipping_name":    "Customer",
		"shipping_address": "1 Main Street",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order        model.Order `json:"order"`
		ClientSecret string      `json:"payment_client_secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	// 25.00 + 5.99 shipping + 2.00 tax
	assert.Equal(t, "32.99", placed.Order.Total.StringFixed(2))
	assert.Contains(t, w.Body.String(), `"shipping_cost":"5.99"`)
	assert.NotEmpty(t, placed.Order.PaymentReference)
	assert.Equal(t, "secret", placed.ClientSecret)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", created.Product.ID), "", nil)
	assert.Contains(t, w.Body.String(), `"stock_quantity":3`)

	w = s.do(t, http.MethodGet, "/api/v1/cart", customer.Tokens.AccessToken, nil)
	assert.Contains(t, w.Body.String(), `"item_count":0`)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", placed.Order.ID), staff.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "orders are scoped to their owner")

	statusPath := fmt.Sprintf("/api/v1/admin/orders/%d/status", placed.Order.ID)
	w = s.do(t, http.MethodPatch, statusPath, customer.Tokens.AccessToken, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPatch, statusPath, staff.Tokens.AccessToken, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hairpin_checkout_attempts_total{outcome="created"} 1`)
}

func TestRoleManagement(t *testing.T) {
	s := setupTestServer(t)

	admin := s.register(t, "admin@example.com")
	s.grant(t, admin.User.ID, model.RoleAdministrator)
	staff := s.register(t, "staff@example.com")
	s.grant(t, staff.User.ID, model.RoleManager)

	w := s.do(t, http.MethodPost, "/api/v1/admin/roles", staff.Tokens.AccessToken, map[string]string{"name": "Stylist"})
	assert.Equal(t, http.StatusForbidden, w.Code, "managers cannot manage roles")

	w = s.do(t, http.MethodPost, "/api/v1/admin/roles", admin.Tokens.AccessToken, map[string]string{"name": "Stylist"})
	assert.Equal(t, http.StatusCreated, w.Code)

	lastAdmin := fmt.Sprintf("/api/v1/admin/users/%d/roles/%s", admin.User.ID, model.RoleAdministrator)
	w = s.do(t, http.MethodDelete, lastAdmin, admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHZ_LAST_ADMINISTRATOR")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/roles", staff.User.ID), admin.Tokens.AccessToken,
		map[string]string{"role": model.RoleAdministrator})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, lastAdmin, admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Roles are read per request, so the old token loses admin rights at once.
	w = s.do(t, http.MethodGet, "/api/v1/admin/roles", admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupTestServer(t)
	user := s.register(t, "leaver@example.com")

	w := s.do(t, http.MethodGet, "/api/v1/auth/me", user.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", user.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", user.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_REVOKED")

	w = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": user.Tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
}
