// internal/infrastructure/database/memory/memory.go

// Package memory keeps every repository in process memory. It backs the
// service and HTTP tests and `serve --memory` for local runs without postgres.
package memory

import (
	"sync"
	"time"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
)

// DB is a mutex-guarded set of tables
type DB struct {
	mu sync.Mutex
	tables
}

type tables struct {
	seq        map[string]uint
	users      map[uint]user.User
	products   map[uint]product.Product
	carts      map[uint]cart.Cart
	cartItems  map[uint]cart.CartItem
	orders     map[uint]order.Order
	orderItems map[uint]order.OrderItem
}

// New creates an empty database
func New() *DB {
	return &DB{tables: tables{
		seq:        map[string]uint{},
		users:      map[uint]user.User{},
		products:   map[uint]product.Product{},
		carts:      map[uint]cart.Cart{},
		cartItems:  map[uint]cart.CartItem{},
		orders:     map[uint]order.Order{},
		orderItems: map[uint]order.OrderItem{},
	}}
}

// Users returns the user repository view
func (db *DB) Users() user.Repository { return &userRepo{db: db} }

// Products returns the product repository view
func (db *DB) Products() product.Repository { return &productRepo{db: db} }

// Carts returns the cart repository view
func (db *DB) Carts() cart.Repository { return &cartRepo{db: db} }

// Orders returns the order store view
func (db *DB) Orders() order.Store { return &orderStore{db: db} }

func (t *tables) nextID(table string) uint {
	t.seq[table]++
	return t.seq[table]
}

func (t *tables) clone() tables {
	return tables{
		seq:        cloneMap(t.seq),
		users:      cloneMap(t.users),
		products:   cloneMap(t.products),
		carts:      cloneMap(t.carts),
		cartItems:  cloneMap(t.cartItems),
		orders:     cloneMap(t.orders),
		orderItems: cloneMap(t.orderItems),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func now() time.Time {
	return time.Now().UTC()
}

// liveProduct returns a copy of a non-deleted product
func (t *tables) liveProduct(id uint) (*product.Product, bool) {
	p, ok := t.products[id]
	if !ok || p.DeletedAt.Valid {
		return nil, false
	}
	return &p, true
}
