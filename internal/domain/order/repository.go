// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound is returned when no order has the requested id
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartChanged is returned when the cart lost or gained items mid-checkout
	ErrCartChanged = errors.New("cart changed during checkout")
)

const maxCheckoutAttempts = 3

// CheckoutTx is the unit of work available while placing an order.
// Every call runs inside the same database transaction.
type CheckoutTx interface {
	// LoadCart locks the cart row and returns it with its items, or
	// cart.ErrCartNotFound. A second checkout of the same cart waits here.
	LoadCart(cartID uint) (*cart.Cart, error)
	// LockProducts reads live products and holds their rows until commit.
	LockProducts(ids []uint) (map[uint]*product.Product, error)
	CreateOrder(o *Order) error
	// DecrementStock reports false when stock is below quantity.
	DecrementStock(productID uint, quantity int) (bool, error)
	// ClearCart deletes the cart's items and returns ErrCartChanged unless
	// exactly itemCount rows went away.
	ClearCart(cartID uint, itemCount int) error
}

// Store persists orders
type Store interface {
	// Checkout runs fn in one transaction; an error from fn rolls back everything.
	Checkout(ctx context.Context, fn func(tx CheckoutTx) error) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	UpdateStatus(ctx context.Context, id uint, status OrderStatus) error
	ListByUser(ctx context.Context, userID uint) ([]Order, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a gorm-backed order store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Checkout(ctx context.Context, fn func(tx CheckoutTx) error) error {
	var err error
	for attempt := 1; attempt <= maxCheckoutAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormCheckoutTx{tx: tx})
		})
		if err == nil || !isRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}
	return fmt.Errorf("checkout failed after %d attempts: %w", maxCheckoutAttempts, err)
}

// isRetryable reports serialization failures and deadlocks
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func (s *gormStore) FindByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	err := preloadItems(s.db.WithContext(ctx)).First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

func (s *gormStore) UpdateStatus(ctx context.Context, id uint, status OrderStatus) error {
	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *gormStore) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	var orders []Order
	err := preloadItems(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// Soft-deleted products stay visible so past orders keep their details.
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		})
}

type gormCheckoutTx struct {
	tx *gorm.DB
}

func (t *gormCheckoutTx) LoadCart(cartID uint) (*cart.Cart, error) {
	var c cart.Cart
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	// Read after the lock so a checkout that just committed is visible.
	if err := t.tx.Where("cart_id = ?", c.ID).Order("id ASC").Find(&c.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return &c, nil
}

func (t *gormCheckoutTx) LockProducts(ids []uint) (map[uint]*product.Product, error) {
	var products []product.Product
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	locked := make(map[uint]*product.Product, len(products))
	for i := range products {
		locked[products[i].ID] = &products[i]
	}
	return locked, nil
}

func (t *gormCheckoutTx) CreateOrder(o *Order) error {
	// Detach loaded products so gorm does not try to save them again.
	products := make([]*product.Product, len(o.Items))
	for i := range o.Items {
		products[i] = o.Items[i].Product
		o.Items[i].Product = nil
	}

	err := t.tx.Create(o).Error

	for i := range o.Items {
		o.Items[i].Product = products[i]
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (t *gormCheckoutTx) DecrementStock(productID uint, quantity int) (bool, error) {
	result := t.tx.Model(&product.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (t *gormCheckoutTx) ClearCart(cartID uint, itemCount int) error {
	result := t.tx.Where("cart_id = ?", cartID).Delete(&cart.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear cart: %w", result.Error)
	}
	if result.RowsAffected != int64(itemCount) {
		return ErrCartChanged
	}
	return nil
}
