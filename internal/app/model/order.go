package model

import (
	"encoding/json"
	"time"

	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/shopspring/decimal"
)

type OrderStatus string // order lifecycle state

const (
	OrderStatusPending    OrderStatus = "pending"    // paid, awaiting processing
	OrderStatusProcessing OrderStatus = "processing" // being packed
	OrderStatusShipped    OrderStatus = "shipped"    // handed to carrier
	OrderStatusDelivered  OrderStatus = "delivered"  // received by customer
	OrderStatusCancelled  OrderStatus = "cancelled"  // cancelled before shipping
	OrderStatusRefunded   OrderStatus = "refunded"   // refunded after delivery
)

// Order is written once by checkout. Only Status, ShippedAt and DeliveredAt
// change afterwards.
type Order struct {
	ID               uint            `gorm:"primarykey" json:"id"`                                                  // order ID
	OrderNumber      string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`             // public order number
	UserID           uint            `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"` // buyer
	IdempotencyKey   *string         `gorm:"type:varchar(128);uniqueIndex:idx_orders_user_idempotency" json:"-"`    // client retry key
	Status           OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`             // order status
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`                           // sum of line totals
	ShippingCost     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`                      // shipping fee
	Tax              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`                                // tax
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`                              // amount charged
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`                              // ISO currency
	ShippingName     string          `gorm:"not null" json:"shipping_name"`                                         // recipient
	ShippingAddress  string          `gorm:"type:text;not null" json:"shipping_address"`                            // street address
	ShippingCity     string          `json:"shipping_city"`                                                         // city
	ShippingState    string          `json:"shipping_state"`                                                        // state or province
	ShippingZipCode  string          `json:"shipping_zip_code"`                                                     // postal code
	ShippingCountry  string          `json:"shipping_country"`                                                      // country
	PaymentMethod    string          `gorm:"type:varchar(32)" json:"payment_method"`                                // card, etc.
	PaymentReference string          `gorm:"type:varchar(128);index" json:"payment_reference"`                      // provider transaction id
	OrderDate        time.Time       `gorm:"not null" json:"order_date"`                                            // checkout time
	ShippedAt        *time.Time      `json:"shipped_at,omitempty"`                                                  // shipped timestamp
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`                                                // delivered timestamp
	CreatedAt        time.Time       `json:"created_at"`                                                            // created
	UpdatedAt        time.Time       `json:"updated_at"`                                                            // updated

	User  User        `gorm:"foreignKey:UserID" json:"-"`                                            // buyer
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // order lines

	// PaymentClientSecret is the provider handle the client confirms the
	// payment with. Only set on the order a checkout just created.
	PaymentClientSecret string `gorm:"-" json:"-"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	return json.Marshal(struct {
		order
		Subtotal     money.Amount `json:"subtotal"`
		ShippingCost money.Amount `json:"shipping_cost"`
		Tax          money.Amount `json:"tax"`
		Total        money.Amount `json:"total"`
	}{
		order:        order(o),
		Subtotal:     money.Amount(o.Subtotal),
		ShippingCost: money.Amount(o.ShippingCost),
		Tax:          money.Amount(o.Tax),
		Total:        money.Amount(o.Total),
	})
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots name, SKU and price so the order stays accurate after
// the product changes or is retired.
type OrderItem struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"not null" json:"product_name"`
	ProductSKU  string          `gorm:"column:product_sku;type:varchar(64)" json:"product_sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type orderItem OrderItem
	return json.Marshal(struct {
		orderItem
		UnitPrice money.Amount `json:"unit_price"`
		LineTotal money.Amount `json:"line_total"`
	}{
		orderItem: orderItem(i),
		UnitPrice: money.Amount(i.UnitPrice),
		LineTotal: money.Amount(i.LineTotal),
	})
}
