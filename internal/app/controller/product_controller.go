package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductImageRequest struct {
	URL       string `json:"url" binding:"required,url"`
	AltText   string `json:"alt_text" binding:"max=200"`
	IsPrimary bool   `json:"is_primary"`
}

type ProductRequest struct {
	SKU           string                `json:"sku" binding:"required,sku"`
	Name          string                `json:"name" binding:"required,max=200"`
	Description   string                `json:"description"`
	Price         decimal.Decimal       `json:"price"`
	StockQuantity int                   `json:"stock_quantity" binding:"gte=0"`
	Material      string                `json:"material" binding:"max=50"`
	Color         string                `json:"color" binding:"max=50"`
	Size          string                `json:"size" binding:"max=50"`
	Style         string                `json:"style" binding:"max=50"`
	Images        []ProductImageRequest `json:"images" binding:"omitempty,max=10,dive"`
}

func (r ProductRequest) toInput() service.ProductInput {
	input := service.ProductInput{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		Material:      r.Material,
		Color:         r.Color,
		Size:          r.Size,
		Style:         r.Style,
	}
	for _, img := range r.Images {
		input.Images = append(input.Images, service.ProductImageInput{
			URL:       img.URL,
			AltText:   img.AltText,
			IsPrimary: img.IsPrimary,
		})
	}
	return input
}

type AdjustStockRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

type ProductListQuery struct {
	Search   string `form:"search"`
	Material string `form:"material"`
	Color    string `form:"color"`
	Style    string `form:"style"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListProducts returns one page of active products
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var q ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		log.Warn("Invalid product list query", map[string]interface{}{
			"error": err.Error(),
		})
		respondBindingError(c, err)
		return
	}

	minPrice, err := parsePrice(q.MinPrice)
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"min_price": "must be a decimal number"})
		return
	}
	maxPrice, err := parsePrice(q.MaxPrice)
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"max_price": "must be a decimal number"})
		return
	}

	page, err := ctrl.productService.ListProducts(c.Request.Context(), service.ProductQuery{
		Search:   q.Search,
		Material: q.Material,
		Color:    q.Color,
		Style:    q.Style,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		SortBy:   q.Sort,
		SortDesc: strings.EqualFold(strings.TrimSpace(q.Order), "desc"),
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		respondError(c, err, "list products")
		return
	}

	log.Info("Products fetched successfully", map[string]interface{}{
		"count": len(page.Items),
		"total": page.TotalCount,
	})
	c.JSON(http.StatusOK, page)
}

// GetFilterOptions returns the values available to the catalog filters
// GET /api/v1/products/filters
func (ctrl *ProductController) GetFilterOptions(c *gin.Context) {
	opts, err := ctrl.productService.GetFilterOptions(c.Request.Context())
	if err != nil {
		respondError(c, err, "load filter options")
		return
	}
	c.JSON(http.StatusOK, opts)
}

// CountProducts returns the number of active products
// GET /api/v1/products/count
func (ctrl *ProductController) CountProducts(c *gin.Context) {
	count, err := ctrl.productService.CountProducts(c.Request.Context())
	if err != nil {
		respondError(c, err, "count products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetProduct returns an active product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct adds a product to the catalog (privileged)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		respondBindingError(c, err)
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err, "create product")
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct replaces a product's descriptive fields (privileged)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		respondBindingError(c, err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// AdjustStock adds delta to a product's stock (privileged)
// PATCH /api/v1/products/:id/stock
func (ctrl *ProductController) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, err := ctrl.productService.AdjustStock(c.Request.Context(), id, *req.Delta)
	if err != nil {
		respondError(c, err, "adjust stock")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeactivateProduct retires a product (privileged)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeactivateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeactivateProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, "deactivate product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deactivated"})
}
