// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/product"
)

// Cart represents the single shopping cart owned by a user
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"userId"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// CartItem represents one product line in a cart
type CartItem struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	CartID    uint             `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cartId"`
	ProductID uint             `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_product" json:"productId"`
	Quantity  int              `gorm:"not null;default:1;check:chk_cart_items_quantity_positive,quantity >= 1" json:"quantity"`
	Product   *product.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal is the live product price times quantity
func (i *CartItem) Subtotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemView is a cart item with its computed subtotal
type ItemView struct {
	CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View is a cart with per-item subtotals and the cart total
type View struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"userId"`
	Items     []ItemView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewView computes subtotals and the total from current product prices
func NewView(c *Cart) *View {
	v := &View{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     make([]ItemView, 0, len(c.Items)),
		Total:     decimal.Zero,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, item := range c.Items {
		subtotal := item.Subtotal()
		v.Items = append(v.Items, ItemView{CartItem: item, Subtotal: subtotal})
		v.Total = v.Total.Add(subtotal)
	}
	return v
}

func newItemView(item *CartItem) *ItemView {
	return &ItemView{CartItem: *item, Subtotal: item.Subtotal()}
}
