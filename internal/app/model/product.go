package model

import (
	"encoding/json"
	"time"

	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Product is never hard-deleted; IsActive=false retires it while keeping
// cart and order references valid.
type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	SKU           string          `gorm:"column:sku;type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	Material      string          `gorm:"type:varchar(50);index" json:"material"`
	Color         string          `gorm:"type:varchar(50);index" json:"color"`
	Size          string          `gorm:"type:varchar(50)" json:"size"`
	Style         string          `gorm:"type:varchar(50);index" json:"style"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	Images     []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	OrderItems []OrderItem    `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem     `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price money.Amount `json:"price"`
	}{product(p), money.Amount(p.Price)})
}

// PrimaryImageURL returns the primary image, falling back to the first one.
func (p *Product) PrimaryImageURL() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImageURL
	}
	return ""
}

type ProductImage struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	ImageURL     string    `gorm:"not null" json:"image_url"`
	AltText      string    `json:"alt_text"`
	IsPrimary    bool      `gorm:"not null" json:"is_primary"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
