package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/hairpin-store/hairpin-backend/pkg/pagination"
	"github.com/hairpin-store/hairpin-backend/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	filterOptionsCacheKey = "catalog:filter-options"
	filterOptionsCacheTTL = 5 * time.Minute

	// DefaultLowStockThreshold applies when the caller passes a non-positive threshold.
	DefaultLowStockThreshold = 10
)

// Cache is the subset of the Redis store the catalog uses.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type ProductQuery struct {
	Search   string
	Material string
	Color    string
	Style    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

type ProductPage struct {
	Items      []model.Product `json:"items"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

type ProductImageInput struct {
	URL       string
	AltText   string
	IsPrimary bool
}

type ProductInput struct {
	SKU           string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Material      string
	Color         string
	Size          string
	Style         string
	Images        []ProductImageInput
}

type ProductService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, input ProductInput) (*model.Product, error)
	AdjustStock(ctx context.Context, id uint, delta int) (*model.Product, error)
	DeactivateProduct(ctx context.Context, id uint) error
	GetFilterOptions(ctx context.Context) (*repository.ProductFilterOptions, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	ExportProducts(ctx context.Context, w io.Writer) error
	ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	cache       Cache
}

// NewProductService wires the catalog. cache may be nil.
func NewProductService(db *gorm.DB, productRepo repository.ProductRepository, cache Cache) ProductService {
	return &productService{
		db:          db,
		productRepo: productRepo,
		cache:       cache,
	}
}

func (s *productService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	params := pagination.Normalize(query.Page, query.PageSize)

	filter := repository.ProductFilter{
		Search:         query.Search,
		Material:       strings.TrimSpace(query.Material),
		Color:          strings.TrimSpace(query.Color),
		Style:          strings.TrimSpace(query.Style),
		MinPrice:       query.MinPrice,
		MaxPrice:       query.MaxPrice,
		SortBy:         repository.ProductSort(strings.ToLower(query.SortBy)),
		SortDescending: query.SortDesc,
		Limit:          params.PageSize,
		Offset:         params.Offset(),
	}

	products, total, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"page":      params.Page,
			"page_size": params.PageSize,
		})
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}

	return &ProductPage{
		Items:      products,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pagination.TotalPages(total, params.PageSize),
	}, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func validateProductInput(input *ProductInput) error {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)

	if input.SKU == "" {
		return invalidProduct("sku", "is required")
	}
	if input.Name == "" {
		return invalidProduct("name", "is required")
	}
	if err := money.Validate(input.Price); err != nil {
		return invalidProduct("price", err.Error())
	}
	if input.StockQuantity < 0 {
		return invalidProduct("stock_quantity", "must not be negative")
	}
	for i, img := range input.Images {
		if strings.TrimSpace(img.URL) == "" {
			return invalidProduct(fmt.Sprintf("images[%d].url", i), "is required")
		}
	}
	return nil
}

func applyProductInput(product *model.Product, input ProductInput) {
	product.SKU = input.SKU
	product.Name = input.Name
	product.Description = input.Description
	product.Price = money.Round(input.Price)
	product.Material = strings.TrimSpace(input.Material)
	product.Color = strings.TrimSpace(input.Color)
	product.Size = strings.TrimSpace(input.Size)
	product.Style = strings.TrimSpace(input.Style)

	product.Images = make([]model.ProductImage, 0, len(input.Images))
	hasPrimary := false
	for i, img := range input.Images {
		primary := img.IsPrimary && !hasPrimary
		hasPrimary = hasPrimary || primary
		product.Images = append(product.Images, model.ProductImage{
			ImageURL:     strings.TrimSpace(img.URL),
			AltText:      img.AltText,
			IsPrimary:    primary,
			DisplayOrder: i,
		})
	}
	if !hasPrimary && len(product.Images) > 0 {
		product.Images[0].IsPrimary = true
	}
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	if err := validateProductInput(&input); err != nil {
		logger.Warn("Rejected product input", map[string]interface{}{
			"sku":   input.SKU,
			"error": err.Error(),
		})
		return nil, err
	}

	product := &model.Product{IsActive: true, StockQuantity: input.StockQuantity}
	applyProductInput(product, input)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if _, err := repo.FindBySKU(ctx, product.SKU); err == nil {
			return ErrSKUConflict
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := repo.Create(ctx, product); err != nil {
			if apperrors.IsUniqueViolation(err) {
				return ErrSKUConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSKUConflict) {
			logger.Warn("Product SKU already in use", map[string]interface{}{
				"sku": product.SKU,
			})
		}
		return nil, err
	}

	s.invalidateCatalogCache(ctx)
	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	if err := validateProductInput(&input); err != nil {
		logger.Warn("Rejected product input", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	var product *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		if input.SKU != existing.SKU {
			other, err := repo.FindBySKU(ctx, input.SKU)
			if err == nil && other.ID != existing.ID {
				return ErrSKUConflict
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		applyProductInput(existing, input)
		if err := repo.Update(ctx, existing); err != nil {
			if apperrors.IsUniqueViolation(err) {
				return ErrSKUConflict
			}
			return err
		}
		product = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalogCache(ctx)
	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return product, nil
}

func (s *productService) AdjustStock(ctx context.Context, id uint, delta int) (*model.Product, error) {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	applied, err := s.productRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Warn("Stock adjustment rejected", map[string]interface{}{
			"product_id": id,
			"delta":      delta,
		})
		return nil, ErrInvalidStockAdjustment
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("Product stock adjusted", map[string]interface{}{
		"product_id": id,
		"delta":      delta,
		"stock":      product.StockQuantity,
	})
	return product, nil
}

func (s *productService) DeactivateProduct(ctx context.Context, id uint) error {
	return s.setActive(ctx, id, false)
}

// setActive is a no-op when the product already has the requested state.
func (s *productService) setActive(ctx context.Context, id uint, active bool) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if product.IsActive == active {
		return nil
	}

	if err := s.productRepo.SetActive(ctx, id, active); err != nil {
		return err
	}

	s.invalidateCatalogCache(ctx)
	msg := "Product deactivated"
	if active {
		msg = "Product reactivated"
	}
	logger.Info(msg, map[string]interface{}{
		"product_id": id,
		"sku":        product.SKU,
	})
	return nil
}

func (s *productService) GetFilterOptions(ctx context.Context) (*repository.ProductFilterOptions, error) {
	if s.cache != nil {
		var cached repository.ProductFilterOptions
		err := s.cache.GetJSON(ctx, filterOptionsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			logger.Warn("Filter options cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	opts, err := s.productRepo.ListFilterOptions(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, filterOptionsCacheKey, opts, filterOptionsCacheTTL); err != nil {
			logger.Warn("Filter options cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return opts, nil
}

func (s *productService) invalidateCatalogCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, filterOptionsCacheKey); err != nil {
		logger.Warn("Failed to invalidate catalog cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *productService) ListLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	products, err := s.productRepo.FindLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *productService) CountProducts(ctx context.Context) (int64, error) {
	return s.productRepo.CountActive(ctx)
}

// ProductSheetColumns is the workbook layout shared by export and import.
var ProductSheetColumns = []string{"SKU", "Name", "Description", "Price", "Stock", "Material", "Color", "Size", "Style", "ImageURL", "Active"}

const productSheetName = "Products"

// ExportProducts writes every product, active or not, as an xlsx workbook.
func (s *productService) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), productSheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(productSheetName, "A1", &ProductSheetColumns); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.SKU, p.Name, p.Description, p.Price.StringFixed(2), p.StockQuantity,
			p.Material, p.Color, p.Size, p.Style, p.PrimaryImageURL(), p.IsActive,
		}
		if err := f.SetSheetRow(productSheetName, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		logger.Error("Failed to write product export", err, nil)
		return err
	}

	logger.Info("Products exported", map[string]interface{}{
		"count": len(products),
	})
	return nil
}

// ImportResult counts what ImportProducts did. Errors holds one entry per
// rejected row.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
	Errors  error
}

// ImportProducts upserts products by SKU from a workbook laid out like
// ExportProducts. Existing products get their catalog fields and active flag
// updated but keep their stock; stock only moves through AdjustStock and
// checkout.
func (s *productService) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		line := i + 1

		input, active, err := parseProductRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = multierr.Append(result.Errors, fmt.Errorf("row %d: %w", line, err))
			continue
		}

		existing, err := s.productRepo.FindBySKU(ctx, input.SKU)
		switch {
		case err == nil:
			_, err = s.UpdateProduct(ctx, existing.ID, input)
			if err == nil {
				err = s.setActive(ctx, existing.ID, active)
			}
			if err == nil {
				result.Updated++
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			var created *model.Product
			created, err = s.CreateProduct(ctx, input)
			if err == nil && !active {
				err = s.setActive(ctx, created.ID, false)
			}
			if err == nil {
				result.Created++
			}
		}
		if err != nil {
			if KindOf(err) == KindInternal {
				return result, err
			}
			result.Skipped++
			result.Errors = multierr.Append(result.Errors, fmt.Errorf("row %d: %w", line, err))
		}
	}

	logger.Info("Products imported", map[string]interface{}{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
	return result, nil
}

func parseProductRow(row []string) (ProductInput, bool, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	price, err := decimal.NewFromString(cell(3))
	if err != nil {
		return ProductInput{}, false, invalidProduct("price", "is not a number")
	}
	stock := 0
	if raw := cell(4); raw != "" {
		if stock, err = strconv.Atoi(raw); err != nil {
			return ProductInput{}, false, invalidProduct("stock_quantity", "is not an integer")
		}
	}
	active := true
	if raw := cell(10); raw != "" {
		if active, err = strconv.ParseBool(raw); err != nil {
			return ProductInput{}, false, invalidProduct("active", "is not TRUE or FALSE")
		}
	}

	input := ProductInput{
		SKU:           cell(0),
		Name:          cell(1),
		Description:   cell(2),
		Price:         price,
		StockQuantity: stock,
		Material:      cell(5),
		Color:         cell(6),
		Size:          cell(7),
		Style:         cell(8),
	}
	if url := cell(9); url != "" {
		input.Images = []ProductImageInput{{URL: url, IsPrimary: true}}
	}
	return input, active, nil
}
