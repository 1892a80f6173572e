// internal/infrastructure/database/memory/cart.go
package memory

import (
	"context"
	"sort"

	"github.com/your-org/storefront-api/internal/domain/cart"
)

type cartRepo struct {
	db *DB
}

func (r *cartRepo) FindOrCreateByUser(_ context.Context, userID uint) (*cart.Cart, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, c := range r.db.carts {
		if c.UserID == userID {
			return r.db.loadCart(id, true), nil
		}
	}

	c := cart.Cart{ID: r.db.nextID("carts"), UserID: userID, CreatedAt: now()}
	c.UpdatedAt = c.CreatedAt
	r.db.carts[c.ID] = c
	return r.db.loadCart(c.ID, true), nil
}

func (r *cartRepo) AddItem(_ context.Context, cartID, productID uint, quantity int) (*cart.CartItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, item := range r.db.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			item.UpdatedAt = now()
			r.db.cartItems[id] = item
			return r.db.loadItem(id), nil
		}
	}

	item := cart.CartItem{
		ID:        r.db.nextID("cart_items"),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now(),
	}
	item.UpdatedAt = item.CreatedAt
	r.db.cartItems[item.ID] = item
	return r.db.loadItem(item.ID), nil
}

func (r *cartRepo) FindItem(_ context.Context, cartID, itemID uint) (*cart.CartItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.db.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return nil, cart.ErrItemNotFound
	}
	return r.db.loadItem(itemID), nil
}

func (r *cartRepo) UpdateItemQuantity(_ context.Context, itemID uint, quantity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.db.cartItems[itemID]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = now()
	r.db.cartItems[itemID] = item
	return nil
}

func (r *cartRepo) DeleteItem(_ context.Context, cartID, itemID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.db.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return cart.ErrItemNotFound
	}
	delete(r.db.cartItems, itemID)
	return nil
}

// loadCart assembles a cart with its items ordered by id
func (t *tables) loadCart(cartID uint, withProducts bool) *cart.Cart {
	c := t.carts[cartID]
	c.Items = []cart.CartItem{}
	for id, item := range t.cartItems {
		if item.CartID != cartID {
			continue
		}
		if withProducts {
			item = *t.loadItem(id)
		}
		c.Items = append(c.Items, item)
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ID < c.Items[j].ID })
	return &c
}

func (t *tables) loadItem(itemID uint) *cart.CartItem {
	item := t.cartItems[itemID]
	if p, ok := t.liveProduct(item.ProductID); ok {
		item.Product = p
	}
	return &item
}
