// internal/infrastructure/database/postgres/postgres_test.go
package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/events"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"gorm.io/gorm"
)

var (
	testDB   *gorm.DB
	setupErr error
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "storefront-test", Environment: "test"},
		Database: config.DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 2, MaxLifetime: time.Minute},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-at-least-32-characters", Expiry: time.Hour},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func setupTestDB(ctx context.Context) (teardown func(context.Context) error, err error) {
	defer func() {
		// testcontainers panics when no Docker host can be found
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := tcpostgres.Run(ctx,
		"postgres:15",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container.Terminate, err
	}

	testDB, err = postgres.Open(dsn, testConfig(), logger.Discard())
	if err != nil {
		return container.Terminate, err
	}

	migration := postgres.NewMigration(testDB, auth.NewPasswordManager(testConfig()), logger.Discard())
	if err := migration.RunAutoMigrations(); err != nil {
		return container.Terminate, err
	}
	if err := migration.CreateIndexes(); err != nil {
		return container.Terminate, err
	}

	return container.Terminate, nil
}

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		setupErr = errors.New("SKIP_INTEGRATION set")
		os.Exit(m.Run())
	}

	ctx := context.Background()
	teardown, err := setupTestDB(ctx)
	setupErr = err

	code := m.Run()

	if testDB != nil {
		_ = postgres.Close(testDB)
	}
	if teardown != nil {
		_ = teardown(ctx)
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if setupErr != nil {
		t.Skipf("postgres container unavailable: %v", setupErr)
	}

	err := testDB.Exec("TRUNCATE users, products, carts, cart_items, orders, order_items RESTART IDENTITY CASCADE").Error
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
	return testDB
}

func createProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{Name: name, Price: decimal.RequireFromString(price), StockQuantity: stock}
	if err := product.NewRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return p
}

func TestSeedIsIdempotent(t *testing.T) {
	db := requireDB(t)
	migration := postgres.NewMigration(db, auth.NewPasswordManager(testConfig()), logger.Discard())

	for i := 0; i < 2; i++ {
		if err := migration.SeedInitialData(); err != nil {
			t.Fatalf("SeedInitialData() run %d error = %v", i+1, err)
		}
	}

	var users, products, items int64
	db.Model(&user.User{}).Count(&users)
	db.Model(&product.Product{}).Count(&products)
	db.Model(&cart.CartItem{}).Count(&items)
	if users != 2 || products != 2 || items != 1 {
		t.Fatalf("counts users=%d products=%d items=%d, want 2/2/1", users, products, items)
	}

	bob, err := user.NewRepository(db).FindByEmail(context.Background(), "bob@example.com")
	if err != nil || bob.Role != auth.RoleAdmin {
		t.Fatalf("bob = %+v, %v; want ADMIN", bob, err)
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := requireDB(t)
	repo := user.NewRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &user.User{FullName: "Alice", Email: "alice@example.com", Password: "hash"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &user.User{FullName: "Alice 2", Email: "ALICE@example.com", Password: "hash"})
	if !errors.Is(err, user.ErrUserAlreadyExists) {
		t.Fatalf("Create(duplicate) error = %v, want ErrUserAlreadyExists", err)
	}
}

func TestProductRepositoryListAndDelete(t *testing.T) {
	db := requireDB(t)
	repo := product.NewRepository(db)
	carts := cart.NewRepository(db)
	ctx := context.Background()

	coffee := createProduct(t, db, "Coffee Beans", "15.99", 100)
	createProduct(t, db, "French Press", "29.99", 50)
	createProduct(t, db, "100% Cotton Filter", "3.50", 10)

	minPrice := decimal.RequireFromString("15.99")
	got, total, err := repo.List(ctx, product.Filter{Search: "coffee", MinPrice: &minPrice, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || got[0].ID != coffee.ID {
		t.Fatalf("List(search=coffee) = %d products, total %d", len(got), total)
	}

	_, total, _ = repo.List(ctx, product.Filter{Search: "%", Limit: 10})
	if total != 1 {
		t.Errorf("List(search=%%) total = %d, want 1 literal match", total)
	}

	c, err := carts.FindOrCreateByUser(ctx, 7)
	if err != nil {
		t.Fatalf("FindOrCreateByUser() error = %v", err)
	}
	if _, err := carts.AddItem(ctx, c.ID, coffee.ID, 2); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	if err := repo.Delete(ctx, coffee.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, coffee.ID); !errors.Is(err, product.ErrProductNotFound) {
		t.Errorf("FindByID(deleted) error = %v", err)
	}

	c, _ = carts.FindOrCreateByUser(ctx, 7)
	if len(c.Items) != 0 {
		t.Errorf("deleted product still in cart")
	}
}

func TestCartRepositoryUpsertIncrements(t *testing.T) {
	db := requireDB(t)
	repo := cart.NewRepository(db)
	ctx := context.Background()
	coffee := createProduct(t, db, "Coffee Beans", "15.99", 100)

	c, err := repo.FindOrCreateByUser(ctx, 1)
	if err != nil {
		t.Fatalf("FindOrCreateByUser() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AddItem(ctx, c.ID, coffee.ID, 2); err != nil {
				t.Errorf("AddItem() error = %v", err)
			}
		}()
	}
	wg.Wait()

	c, _ = repo.FindOrCreateByUser(ctx, 1)
	if len(c.Items) != 1 || c.Items[0].Quantity != 10 {
		t.Fatalf("items = %+v, want one line with quantity 10", c.Items)
	}
	if !cart.NewView(c).Total.Equal(decimal.RequireFromString("159.90")) {
		t.Errorf("total = %s, want 159.90", cart.NewView(c).Total)
	}
}

func TestCheckoutWithinTransaction(t *testing.T) {
	db := requireDB(t)
	log := logger.Discard()
	ctx := context.Background()

	coffee := createProduct(t, db, "Coffee Beans", "15.99", 100)
	carts := cart.NewService(cart.NewRepository(db), product.NewRepository(db), log)
	orders := order.NewService(order.NewStore(db), events.NopPublisher{}, log)
	alice := auth.Principal{UserID: 1, Role: auth.RoleUser}

	added, err := carts.AddToCart(ctx, alice, &cart.AddToCartRequest{ProductID: coffee.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}

	o, err := orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: added.Cart.ID})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("31.98")) || o.Status != order.OrderStatusPaid {
		t.Errorf("order = %+v", o)
	}

	p, _ := product.NewRepository(db).FindByID(ctx, coffee.ID)
	if p.StockQuantity != 98 {
		t.Errorf("stock = %d, want 98", p.StockQuantity)
	}

	listed, err := orders.GetUserOrders(ctx, alice)
	if err != nil || len(listed) != 1 || len(listed[0].Items) != 1 || listed[0].Items[0].Product == nil {
		t.Fatalf("GetUserOrders() = %+v, %v", listed, err)
	}

	view, _ := carts.GetOrCreateCart(ctx, alice.UserID)
	if len(view.Items) != 0 {
		t.Errorf("cart not cleared")
	}
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	db := requireDB(t)
	log := logger.Discard()
	ctx := context.Background()

	lamp := createProduct(t, db, "Last Lamp", "10.00", 1)
	carts := cart.NewService(cart.NewRepository(db), product.NewRepository(db), log)
	orders := order.NewService(order.NewStore(db), events.NopPublisher{}, log)

	buyers := []auth.Principal{{UserID: 1, Role: auth.RoleUser}, {UserID: 2, Role: auth.RoleUser}}
	cartIDs := make([]uint, len(buyers))
	for i, who := range buyers {
		res, err := carts.AddToCart(ctx, who, &cart.AddToCartRequest{ProductID: lamp.ID, Quantity: 1})
		if err != nil {
			t.Fatalf("AddToCart() error = %v", err)
		}
		cartIDs[i] = res.Cart.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, who := range buyers {
		wg.Add(1)
		go func(i int, who auth.Principal) {
			defer wg.Done()
			_, errs[i] = orders.CreateOrder(ctx, who, &order.CreateOrderRequest{CartID: cartIDs[i]})
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
		t.Fatalf("%d orders succeeded, want exactly 1", succeeded)
	}

	p, _ := product.NewRepository(db).FindByID(ctx, lamp.ID)
	if p.StockQuantity != 0 {
		t.Errorf("stock = %d, want 0", p.StockQuantity)
	}
}

func TestConcurrentCheckoutSameCart(t *testing.T) {
	db := requireDB(t)
	log := logger.Discard()
	ctx := context.Background()

	coffee := createProduct(t, db, "Coffee Beans", "15.99", 100)
	carts := cart.NewService(cart.NewRepository(db), product.NewRepository(db), log)
	orders := order.NewService(order.NewStore(db), events.NopPublisher{}, log)
	alice := auth.Principal{UserID: 1, Role: auth.RoleUser}

	added, err := carts.AddToCart(ctx, alice, &cart.AddToCartRequest{ProductID: coffee.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.CreateOrder(ctx, alice, &order.CreateOrderRequest{CartID: added.Cart.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		appErr, ok := apperror.From(err)
		if !ok || appErr.Kind != apperror.KindBadRequest || appErr.Message != "Cart is empty" {
			t.Errorf("unexpected error = %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d checkouts succeeded, want exactly 1", succeeded)
	}

	var placed int64
	db.Model(&order.Order{}).Count(&placed)
	if placed != 1 {
		t.Errorf("orders = %d, want 1", placed)
	}
	p, _ := product.NewRepository(db).FindByID(ctx, coffee.ID)
	if p.StockQuantity != 98 {
		t.Errorf("stock = %d, want 98", p.StockQuantity)
	}
}

func TestProductUpdateKeepsStockWrittenSinceRead(t *testing.T) {
	db := requireDB(t)
	repo := product.NewRepository(db)
	ctx := context.Background()

	coffee := createProduct(t, db, "Coffee Beans", "15.99", 100)
	if _, err := repo.FindByID(ctx, coffee.ID); err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	err := db.Model(&product.Product{}).
		Where("id = ?", coffee.ID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", 2)).Error
	if err != nil {
		t.Fatalf("decrement error = %v", err)
	}

	name := "Coffee Beans (1kg)"
	updated, err := repo.Update(ctx, coffee.ID, product.Changes{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != name || updated.StockQuantity != 98 || !updated.Price.Equal(coffee.Price) {
		t.Errorf("updated = %q stock %d price %s, want %q stock 98 price %s",
			updated.Name, updated.StockQuantity, updated.Price, name, coffee.Price)
	}

	if _, err := repo.Update(ctx, 9999, product.Changes{Name: &name}); !errors.Is(err, product.ErrProductNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrProductNotFound", err)
	}
}
