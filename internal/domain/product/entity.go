// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;size:255" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0" json:"stockQuantity"`
	ImageURL      string          `gorm:"size:500" json:"imageUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides the table name for Product
func (Product) TableName() string {
	return "products"
}

// InStock reports whether qty units can be taken from current stock
func (p *Product) InStock(qty int) bool {
	return qty <= p.StockQuantity
}

// Changes holds the fields of a partial update; nil fields are left alone
type Changes struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
}

// Columns maps the supplied fields to their column names
func (c Changes) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.StockQuantity != nil {
		cols["stock_quantity"] = *c.StockQuantity
	}
	if c.ImageURL != nil {
		cols["image_url"] = *c.ImageURL
	}
	return cols
}

// Apply copies the supplied fields onto p
func (c Changes) Apply(p *Product) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.StockQuantity != nil {
		p.StockQuantity = *c.StockQuantity
	}
	if c.ImageURL != nil {
		p.ImageURL = *c.ImageURL
	}
}

// Filter narrows a product listing
type Filter struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Offset   int
	Limit    int
}
