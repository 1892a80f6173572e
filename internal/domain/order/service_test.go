// internal/domain/order/service_test.go
package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/events"
	"github.com/your-org/storefront-api/internal/pkg/logger"
)

var (
	alice = auth.Principal{UserID: 1, Email: "alice@example.com", Role: auth.RoleUser}
	bob   = auth.Principal{UserID: 2, Email: "bob@example.com", Role: auth.RoleUser}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderPlaced
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	db        *memory.DB
	carts     *cart.Service
	products  *product.Service
	orders    *order.Service
	publisher *recordingPublisher
}

func newFixture() *fixture {
	db := memory.New()
	log := logger.Discard()
	pub := &recordingPublisher{}
	return &fixture{
		db:        db,
		carts:     cart.NewService(db.Carts(), db.Products(), log),
		products:  product.NewService(db.Products(), log),
		orders:    order.NewService(db.Orders(), pub, log),
		publisher: pub,
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *product.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), &product.CreateRequest{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: &stock,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return p
}

func (f *fixture) fill(t *testing.T, who auth.Principal, productID uint, qty int) uint {
	t.Helper()
	res, err := f.carts.AddToCart(context.Background(), who, &cart.AddToCartRequest{ProductID: productID, Quantity: qty})
	if err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}
	return res.Cart.ID
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	return p.StockQuantity
}

func TestCreateOrderFromCart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	cartID := f.fill(t, alice, coffee.ID, 2)

	o, err := f.orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if o.Status != order.OrderStatusPaid {
		t.Errorf("status = %s, want PAID", o.Status)
	}
	if want := decimal.RequireFromString("31.98"); !o.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", o.TotalAmount, want)
	}
	if len(o.Items) != 1 || !o.Items[0].UnitPrice.Equal(coffee.Price) || o.Items[0].Quantity != 2 {
		t.Errorf("items = %+v", o.Items)
	}
	if got := f.stock(t, coffee.ID); got != 98 {
		t.Errorf("stock = %d, want 98", got)
	}

	view, _ := f.carts.GetOrCreateCart(ctx, alice.UserID)
	if len(view.Items) != 0 {
		t.Errorf("cart still has %d items", len(view.Items))
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0].OrderID != o.ID {
		t.Errorf("published events = %+v", f.publisher.events)
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	press := f.product(t, "French Press", "29.99", 1)
	f.fill(t, alice, coffee.ID, 2)
	cartID := f.fill(t, alice, press.ID, 2)

	_, err := f.orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})
	appErr, ok := apperror.From(err)
	if !ok || appErr.Kind != apperror.KindBadRequest {
		t.Fatalf("CreateOrder() error = %v, want bad request", err)
	}
	if want := `Insufficient stock for product "French Press". Only 1 left.`; appErr.Message != want {
		t.Errorf("message = %q, want %q", appErr.Message, want)
	}

	if got := f.stock(t, coffee.ID); got != 100 {
		t.Errorf("coffee stock = %d, want unchanged 100", got)
	}
	view, _ := f.carts.GetOrCreateCart(ctx, alice.UserID)
	if len(view.Items) != 2 {
		t.Errorf("cart has %d items, want 2 after rollback", len(view.Items))
	}
	orders, _ := f.orders.GetUserOrders(ctx, alice)
	if len(orders) != 0 {
		t.Errorf("order persisted after failure")
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("event published for failed order")
	}
}

func TestCreateOrderRejectsEmptyAndForeignCarts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	aliceCart := f.fill(t, alice, coffee.ID, 1)

	bobCart, err := f.carts.GetOrCreateCart(ctx, bob.UserID)
	if err != nil {
		t.Fatalf("GetOrCreateCart() error = %v", err)
	}

	tests := []struct {
		name    string
		who     auth.Principal
		cartID  uint
		kind    apperror.Kind
		message string
	}{
		{"empty cart", bob, bobCart.ID, apperror.KindBadRequest, "Cart is empty"},
		{"another user's cart", bob, aliceCart, apperror.KindForbidden, "Invalid or unauthorized cart"},
		{"unknown cart", alice, 999, apperror.KindForbidden, "Invalid or unauthorized cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, tt.who, &order.CreateOrderRequest{CartID: tt.cartID})
			appErr, ok := apperror.From(err)
			if !ok || appErr.Kind != tt.kind || appErr.Message != tt.message {
				t.Fatalf("CreateOrder() error = %v, want %q", err, tt.message)
			}
		})
	}

	if got := f.stock(t, coffee.ID); got != 100 {
		t.Errorf("stock = %d, want 100", got)
	}
}

func TestOrderPricesAreFrozen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	cartID := f.fill(t, alice, coffee.ID, 2)

	placed, err := f.orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	price := decimal.RequireFromString("99.00")
	if _, err := f.products.Update(ctx, coffee.ID, &product.UpdateRequest{Price: &price}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := f.products.Delete(ctx, coffee.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	orders, err := f.orders.GetUserOrders(ctx, alice)
	if err != nil {
		t.Fatalf("GetUserOrders() error = %v", err)
	}
	got := orders[0]
	if got.ID != placed.ID || !got.TotalAmount.Equal(decimal.RequireFromString("31.98")) {
		t.Errorf("order total changed: %s", got.TotalAmount)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.RequireFromString("15.99")) {
		t.Errorf("unit price changed: %s", got.Items[0].UnitPrice)
	}
	if got.Items[0].Product == nil || got.Items[0].Product.Name != "Coffee Beans" {
		t.Errorf("deleted product not attached to order item")
	}
}

func TestGetUserOrdersNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)

	var ids []uint
	for i := 0; i < 3; i++ {
		cartID := f.fill(t, alice, coffee.ID, 1)
		o, err := f.orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})
		if err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		ids = append(ids, o.ID)
	}
	f.fill(t, bob, coffee.ID, 1)

	orders, err := f.orders.GetUserOrders(ctx, alice)
	if err != nil {
		t.Fatalf("GetUserOrders() error = %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(orders))
	}
	for i, o := range orders {
		if o.ID != ids[len(ids)-1-i] {
			t.Errorf("orders[%d] = %d, want %d", i, o.ID, ids[len(ids)-1-i])
		}
	}

	bobOrders, _ := f.orders.GetUserOrders(ctx, bob)
	if len(bobOrders) != 0 {
		t.Errorf("bob sees %d orders", len(bobOrders))
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	cartID := f.fill(t, alice, coffee.ID, 1)
	placed, _ := f.orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})

	for _, status := range []order.OrderStatus{order.OrderStatusShipped, order.OrderStatusPending, order.OrderStatusCancelled} {
		o, err := f.orders.UpdateOrderStatus(ctx, placed.ID, &order.UpdateStatusRequest{Status: status})
		if err != nil {
			t.Fatalf("UpdateOrderStatus(%s) error = %v", status, err)
		}
		if o.Status != status || len(o.Items) != 1 {
			t.Errorf("UpdateOrderStatus(%s) = %+v", status, o)
		}
	}

	_, err := f.orders.UpdateOrderStatus(ctx, 999, &order.UpdateStatusRequest{Status: order.OrderStatusPaid})
	if appErr, ok := apperror.From(err); !ok || appErr.Kind != apperror.KindNotFound || appErr.Message != "Order not found" {
		t.Fatalf("UpdateOrderStatus(missing) error = %v", err)
	}
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker unavailable")
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	cartID := f.fill(t, alice, coffee.ID, 1)

	if _, err := f.orders.CreateOrder(context.Background(), alice, &order.CreateOrderRequest{CartID: cartID}); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got := f.stock(t, coffee.ID); got != 99 {
		t.Errorf("stock = %d, want 99", got)
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lamp := f.product(t, "Last Lamp", "10.00", 1)

	buyers := []auth.Principal{alice, bob}
	cartIDs := make([]uint, len(buyers))
	for i, who := range buyers {
		cartIDs[i] = f.fill(t, who, lamp.ID, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, who := range buyers {
		wg.Add(1)
		go func(i int, who auth.Principal) {
			defer wg.Done()
			_, errs[i] = f.orders.CreateOrder(ctx, who, &order.CreateOrderRequest{CartID: cartIDs[i]})
		}(i, who)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !apperror.IsKind(err, apperror.KindBadRequest):
			t.Errorf("unexpected error = %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d orders succeeded, want exactly 1", succeeded)
	}
	if got := f.stock(t, lamp.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

// staleCartStore hands checkout a cart missing its newest item, as if that
// item was added after the cart was read.
type staleCartStore struct {
	order.Store
}

func (s staleCartStore) Checkout(ctx context.Context, fn func(tx order.CheckoutTx) error) error {
	return s.Store.Checkout(ctx, func(tx order.CheckoutTx) error {
		return fn(staleCartTx{tx})
	})
}

type staleCartTx struct {
	order.CheckoutTx
}

func (tx staleCartTx) LoadCart(cartID uint) (*cart.Cart, error) {
	c, err := tx.CheckoutTx.LoadCart(cartID)
	if err == nil && len(c.Items) > 0 {
		c.Items = c.Items[:len(c.Items)-1]
	}
	return c, err
}

func TestCreateOrderFailsWhenCartChangesMidCheckout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	coffee := f.product(t, "Coffee Beans", "15.99", 100)
	press := f.product(t, "French Press", "29.99", 10)
	f.fill(t, alice, coffee.ID, 2)
	cartID := f.fill(t, alice, press.ID, 1)

	orders := order.NewService(staleCartStore{f.db.Orders()}, f.publisher, logger.Discard())
	_, err := orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: cartID})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("CreateOrder() error = %v, want conflict", err)
	}

	if got := f.stock(t, coffee.ID); got != 100 {
		t.Errorf("coffee stock = %d, want unchanged 100", got)
	}
	view, _ := f.carts.GetOrCreateCart(ctx, alice.UserID)
	if len(view.Items) != 2 {
		t.Errorf("cart has %d items, want 2 after rollback", len(view.Items))
	}
	placed, _ := f.orders.GetUserOrders(ctx, alice)
	if len(placed) != 0 || len(f.publisher.events) != 0 {
		t.Errorf("orders = %d, events = %d after failed checkout", len(placed), len(f.publisher.events))
	}
}
