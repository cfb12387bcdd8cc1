package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminController serves catalog reports and role management.
type AdminController struct {
	productService service.ProductService
	roleService    service.RoleService
}

func NewAdminController(productService service.ProductService, roleService service.RoleService) *AdminController {
	return &AdminController{
		productService: productService,
		roleService:    roleService,
	}
}

type CreateRoleRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,max=64"`
}

// ListLowStock returns active products at or below a stock threshold
// GET /api/v1/admin/products/low-stock
func (ctrl *AdminController) ListLowStock(c *gin.Context) {
	threshold := queryInt(c, "threshold", service.DefaultLowStockThreshold)

	products, err := ctrl.productService.ListLowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err, "list low stock products")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":  products,
		"count":     len(products),
		"threshold": threshold,
	})
}

// ExportProducts downloads the whole catalog as a workbook
// GET /api/v1/admin/products/export
func (ctrl *AdminController) ExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := ctrl.productService.ExportProducts(c.Request.Context(), &buf); err != nil {
		respondError(c, err, "export products")
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListUsers returns users with their role names
// GET /api/v1/admin/users
func (ctrl *AdminController) ListUsers(c *gin.Context) {
	page, err := ctrl.roleService.ListUsers(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		respondError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListUserRoles returns one user's role names
// GET /api/v1/admin/users/:id/roles
func (ctrl *AdminController) ListUserRoles(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	roles, err := ctrl.roleService.ListUserRoles(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "list user roles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "roles": roles})
}

// ListRoles returns every role
// GET /api/v1/admin/roles
func (ctrl *AdminController) ListRoles(c *gin.Context) {
	roles, err := ctrl.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err, "list roles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// CreateRole defines a new role (Administrator only)
// POST /api/v1/admin/roles
func (ctrl *AdminController) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	role, err := ctrl.roleService.CreateRole(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err, "create role")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": role})
}

// AssignRole grants a role to a user (Administrator only)
// POST /api/v1/admin/users/:id/roles
func (ctrl *AdminController) AssignRole(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := ctrl.roleService.AssignRole(c.Request.Context(), userID, req.Role); err != nil {
		respondError(c, err, "assign role")
		return
	}

	actor, _ := middleware.GetUserID(c)
	log.Info("Role granted", map[string]interface{}{
		"user_id":  userID,
		"role":     req.Role,
		"actor_id": actor,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Role assigned"})
}

// RemoveRole revokes a role from a user (Administrator only)
// DELETE /api/v1/admin/users/:id/roles/:role
func (ctrl *AdminController) RemoveRole(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	role := c.Param("role")

	if err := ctrl.roleService.RemoveRole(c.Request.Context(), userID, role); err != nil {
		respondError(c, err, "remove role")
		return
	}

	actor, _ := middleware.GetUserID(c)
	log.Info("Role revoked", map[string]interface{}{
		"user_id":  userID,
		"role":     role,
		"actor_id": actor,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Role removed"})
}
