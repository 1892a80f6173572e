// internal/domain/cart/repository.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

// Repository persists carts and their items
type Repository interface {
	// FindOrCreateByUser returns the user's cart with items and products loaded.
	FindOrCreateByUser(ctx context.Context, userID uint) (*Cart, error)
	// AddItem inserts a line or increments the existing line for the product.
	AddItem(ctx context.Context, cartID, productID uint, quantity int) (*CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uint) (*CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed cart repository
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id ASC")
		}).
		Preload("Items.Product")
}

func (r *gormRepository) FindOrCreateByUser(ctx context.Context, userID uint) (*Cart, error) {
	db := r.db.WithContext(ctx)

	var c Cart
	err := preloadItems(db).Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	// A concurrent first read may insert the same row; keep whichever won.
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&Cart{UserID: userID}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	c = Cart{}
	if err := preloadItems(db).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return &c, nil
}

func (r *gormRepository) AddItem(ctx context.Context, cartID, productID uint, quantity int) (*CartItem, error) {
	db := r.db.WithContext(ctx)

	item := CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.FindItem(ctx, cartID, item.ID)
}

func (r *gormRepository) FindItem(ctx context.Context, cartID, itemID uint) (*CartItem, error) {
	var item CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve cart item: %w", err)
	}
	return &item, nil
}

func (r *gormRepository) UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	result := r.db.WithContext(ctx).Model(&CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *gormRepository) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}
