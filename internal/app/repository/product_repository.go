package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductSort string

const (
	ProductSortName      ProductSort = "name"
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "created"
	ProductSortStock     ProductSort = "stock"
)

var productSortColumns = map[ProductSort]string{
	ProductSortName:      "products.name",
	ProductSortPrice:     "products.price",
	ProductSortCreatedAt: "products.created_at",
	ProductSortStock:     "products.stock_quantity",
}

type ProductFilter struct {
	Search         string
	Material       string
	Color          string
	Style          string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	SortBy         ProductSort
	SortDescending bool
	Limit          int
	Offset         int
}

type ProductFilterOptions struct {
	Materials []string        `json:"materials"`
	Colors    []string        `json:"colors"`
	Styles    []string        `json:"styles"`
	MinPrice  decimal.Decimal `json:"min_price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
}

func (o ProductFilterOptions) MarshalJSON() ([]byte, error) {
	type options ProductFilterOptions
	return json.Marshal(struct {
		options
		MinPrice money.Amount `json:"min_price"`
		MaxPrice money.Amount `json:"max_price"`
	}{options(o), money.Amount(o.MinPrice), money.Amount(o.MaxPrice)})
}

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindActiveByID(ctx context.Context, id uint) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	FindLowStock(ctx context.Context, threshold int) ([]model.Product, error)
	CountActive(ctx context.Context) (int64, error)
	ListFilterOptions(ctx context.Context) (*ProductFilterOptions, error)
	AdjustStock(ctx context.Context, id uint, delta int) (bool, error)
	DecrementStock(ctx context.Context, id uint, quantity int) (bool, error)
	IncrementStock(ctx context.Context, id uint, quantity int) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func withImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_images.display_order ASC, product_images.id ASC")
	})
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"sku":  product.SKU,
		"name": product.Name,
	})

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"sku":  product.SKU,
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

// Update writes the descriptive columns and replaces the image list. Stock is
// only ever changed through AdjustStock, DecrementStock and IncrementStock.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})

	db := r.db.WithContext(ctx)
	err := db.Model(product).
		Omit(clause.Associations).
		Select("sku", "name", "description", "price", "material", "color", "size", "style", "updated_at").
		Updates(product).Error
	if err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	if err := db.Where("product_id = ?", product.ID).Delete(&model.ProductImage{}).Error; err != nil {
		logger.Error("Failed to clear product images", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	for i := range product.Images {
		product.Images[i].ID = 0
		product.Images[i].ProductID = product.ID
	}
	if len(product.Images) > 0 {
		if err := db.Create(&product.Images).Error; err != nil {
			logger.Error("Failed to write product images", err, map[string]interface{}{
				"product_id": product.ID,
			})
			return err
		}
	}
	return nil
}

func applyProductFilter(query *gorm.DB, filter ProductFilter) *gorm.DB {
	query = query.Where("products.is_active = ?", true)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where("(LOWER(products.name) LIKE ? ESCAPE '\\' OR LOWER(products.description) LIKE ? ESCAPE '\\')", like, like)
	}
	if filter.Material != "" {
		query = query.Where("LOWER(products.material) = ?", strings.ToLower(filter.Material))
	}
	if filter.Color != "" {
		query = query.Where("LOWER(products.color) = ?", strings.ToLower(filter.Color))
	}
	if filter.Style != "" {
		query = query.Where("LOWER(products.style) = ?", strings.ToLower(filter.Style))
	}
	if filter.MinPrice != nil {
		query = query.Where("products.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("products.price <= ?", *filter.MaxPrice)
	}
	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"search":     filter.Search,
		"material":   filter.Material,
		"color":      filter.Color,
		"style":      filter.Style,
		"min_price":  filter.MinPrice,
		"max_price":  filter.MaxPrice,
		"sort_by":    filter.SortBy,
		"descending": filter.SortDescending,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})

	db := r.db.WithContext(ctx)

	var total int64
	if err := applyProductFilter(db.Model(&model.Product{}), filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count products with filter", err, nil)
		return nil, 0, err
	}

	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		column = productSortColumns[ProductSortName]
	}
	direction := "ASC"
	if filter.SortDescending {
		direction = "DESC"
	}

	query := applyProductFilter(withImages(db.Model(&model.Product{})), filter).
		Order(column + " " + direction).
		Order("products.id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, nil)
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := withImages(r.db.WithContext(ctx)).First(&product, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by ID", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindActiveByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	err := withImages(r.db.WithContext(ctx)).
		Where("is_active = ?", true).
		First(&product, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find active product by ID", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := withImages(r.db.WithContext(ctx)).Order("sku ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to list products", err, nil)
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	logger.Debug("Finding low stock products", map[string]interface{}{
		"threshold": threshold,
	})

	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity ASC, id ASC").
		Find(&products).Error
	if err != nil {
		logger.Error("Failed to find low stock products", err, map[string]interface{}{
			"threshold": threshold,
		})
		return nil, err
	}
	return products, nil
}

func (r *productRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		logger.Error("Failed to count products", err, nil)
		return 0, err
	}
	return count, nil
}

func (r *productRepository) ListFilterOptions(ctx context.Context) (*ProductFilterOptions, error) {
	db := r.db.WithContext(ctx)
	opts := &ProductFilterOptions{
		Materials: []string{},
		Colors:    []string{},
		Styles:    []string{},
	}

	pluck := func(column string, dest *[]string) error {
		return db.Model(&model.Product{}).
			Where("is_active = ? AND "+column+" <> ''", true).
			Distinct().
			Order(column).
			Pluck(column, dest).Error
	}
	if err := pluck("material", &opts.Materials); err != nil {
		logger.Error("Failed to list product materials", err, nil)
		return nil, err
	}
	if err := pluck("color", &opts.Colors); err != nil {
		logger.Error("Failed to list product colors", err, nil)
		return nil, err
	}
	if err := pluck("style", &opts.Styles); err != nil {
		logger.Error("Failed to list product styles", err, nil)
		return nil, err
	}

	var bounds struct {
		MinPrice decimal.NullDecimal
		MaxPrice decimal.NullDecimal
	}
	err := db.Model(&model.Product{}).
		Select("MIN(price) AS min_price, MAX(price) AS max_price").
		Where("is_active = ?", true).
		Scan(&bounds).Error
	if err != nil {
		logger.Error("Failed to read product price range", err, nil)
		return nil, err
	}
	if bounds.MinPrice.Valid {
		opts.MinPrice = bounds.MinPrice.Decimal
	}
	if bounds.MaxPrice.Valid {
		opts.MaxPrice = bounds.MaxPrice.Decimal
	}
	return opts, nil
}

// AdjustStock applies delta unless the result would be negative.
func (r *productRepository) AdjustStock(ctx context.Context, id uint, delta int) (bool, error) {
	logger.Debug("Adjusting product stock", map[string]interface{}{
		"product_id": id,
		"delta":      delta,
	})

	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		UpdateColumns(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to adjust product stock", result.Error, map[string]interface{}{
			"product_id": id,
			"delta":      delta,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementStock is a compare-and-swap: it only succeeds while the product is
// active and has at least quantity units.
func (r *productRepository) DecrementStock(ctx context.Context, id uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND is_active = ? AND stock_quantity >= ?", id, true, quantity).
		UpdateColumns(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to decrement product stock", result.Error, map[string]interface{}{
			"product_id": id,
			"quantity":   quantity,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id uint, quantity int) error {
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		logger.Error("Failed to increment product stock", err, map[string]interface{}{
			"product_id": id,
			"quantity":   quantity,
		})
	}
	return err
}

// SetActive retires (false) or restores (true) a product without touching
// its catalog fields.
func (r *productRepository) SetActive(ctx context.Context, id uint, active bool) error {
	logger.Debug("Setting product active flag", map[string]interface{}{
		"product_id": id,
		"active":     active,
	})

	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		logger.Error("Failed to set product active flag", err, map[string]interface{}{
			"product_id": id,
		})
	}
	return err
}
