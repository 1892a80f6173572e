// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/product"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseStatus converts a raw value into an OrderStatus
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// Order represents the order entity. TotalAmount and item prices are frozen
// at creation.
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"userId"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"totalAmount"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName overrides the table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents one purchased product line
type OrderItem struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	OrderID   uint             `gorm:"not null;index" json:"orderId"`
	ProductID uint             `gorm:"not null;index" json:"productId"`
	Quantity  int              `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"unitPrice"`
	Subtotal  decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Product   *product.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// TableName overrides the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem snapshots the product's current price for quantity units
func NewOrderItem(p *product.Product, quantity int) OrderItem {
	return OrderItem{
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
		Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Product:   p,
	}
}
