// internal/infrastructure/database/memory/order.go
package memory

import (
	"context"
	"sort"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
)

type orderStore struct {
	db *DB
}

// Checkout holds the lock for the whole unit of work and restores the
// previous tables if fn fails.
func (s *orderStore) Checkout(ctx context.Context, fn func(tx order.CheckoutTx) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.db.tables.clone()
	if err := fn(&checkoutTx{t: &s.db.tables}); err != nil {
		s.db.tables = snapshot
		return err
	}
	return nil
}

func (s *orderStore) FindByID(_ context.Context, id uint) (*order.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.orders[id]; !ok {
		return nil, order.ErrOrderNotFound
	}
	return s.db.loadOrder(id), nil
}

func (s *orderStore) UpdateStatus(_ context.Context, id uint, status order.OrderStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o, ok := s.db.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now()
	s.db.orders[id] = o
	return nil
}

func (s *orderStore) ListByUser(_ context.Context, userID uint) ([]order.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	orders := []order.Order{}
	for id, o := range s.db.orders {
		if o.UserID == userID {
			orders = append(orders, *s.db.loadOrder(id))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// loadOrder includes soft-deleted products on its items
func (t *tables) loadOrder(id uint) *order.Order {
	o := t.orders[id]
	o.Items = []order.OrderItem{}
	for _, item := range t.orderItems {
		if item.OrderID != id {
			continue
		}
		if p, ok := t.products[item.ProductID]; ok {
			item.Product = &p
		}
		o.Items = append(o.Items, item)
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })
	return &o
}

type checkoutTx struct {
	t *tables
}

func (tx *checkoutTx) LoadCart(cartID uint) (*cart.Cart, error) {
	if _, ok := tx.t.carts[cartID]; !ok {
		return nil, cart.ErrCartNotFound
	}
	return tx.t.loadCart(cartID, false), nil
}

func (tx *checkoutTx) LockProducts(ids []uint) (map[uint]*product.Product, error) {
	locked := make(map[uint]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := tx.t.liveProduct(id); ok {
			locked[id] = p
		}
	}
	return locked, nil
}

func (tx *checkoutTx) CreateOrder(o *order.Order) error {
	o.ID = tx.t.nextID("orders")
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	if o.Status == "" {
		o.Status = order.OrderStatusPending
	}

	stored := *o
	stored.Items = nil
	tx.t.orders[o.ID] = stored

	for i := range o.Items {
		o.Items[i].ID = tx.t.nextID("order_items")
		o.Items[i].OrderID = o.ID
		o.Items[i].CreatedAt = o.CreatedAt

		item := o.Items[i]
		item.Product = nil
		tx.t.orderItems[item.ID] = item
	}
	return nil
}

func (tx *checkoutTx) DecrementStock(productID uint, quantity int) (bool, error) {
	p, ok := tx.t.liveProduct(productID)
	if !ok || p.StockQuantity < quantity {
		return false, nil
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = now()
	tx.t.products[productID] = *p
	return true, nil
}

func (tx *checkoutTx) ClearCart(cartID uint, itemCount int) error {
	deleted := 0
	for id, item := range tx.t.cartItems {
		if item.CartID == cartID {
			delete(tx.t.cartItems, id)
			deleted++
		}
	}
	if deleted != itemCount {
		return order.ErrCartChanged
	}
	return nil
}
