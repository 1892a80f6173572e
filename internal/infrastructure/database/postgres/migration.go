// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration handles database migrations
type Migration struct {
	db        *gorm.DB
	passwords *auth.PasswordManager
	log       logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, passwords *auth.PasswordManager, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:        db,
		passwords: passwords,
		log:       log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	// Dependency order
	models := []interface{}{
		&user.User{},
		&product.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes and constraints
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_name_lower ON products(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",

		`DO $$ BEGIN
			ALTER TABLE products ADD CONSTRAINT chk_products_price_positive CHECK (price > 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`DO $$ BEGIN
			ALTER TABLE orders ADD CONSTRAINT chk_orders_status CHECK (status IN ('PENDING','PAID','SHIPPED','DELIVERED','CANCELLED'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`DO $$ BEGIN
			ALTER TABLE users ADD CONSTRAINT chk_users_role CHECK (role IN ('USER','ADMIN'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}

	successCount := 0
	failCount := 0

	for _, stmt := range statements {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.log.WithError(err).Warn("⚠️ Failed to create index or constraint")
			failCount++
		} else {
			successCount++
		}
	}

	m.log.Infof("✅ Applied %d index/constraint statements (%d failed)", successCount, failCount)
	return nil
}

type seedUser struct {
	fullName string
	email    string
	role     auth.Role
}

// SeedInitialData inserts demo users, products and a cart
func (m *Migration) SeedInitialData() error {
	m.log.Info("🌱 Seeding initial data...")

	return m.db.Transaction(func(tx *gorm.DB) error {
		users := map[string]*user.User{}
		for _, su := range []seedUser{
			{"Alice Doe", "alice@example.com", auth.RoleUser},
			{"Bob Admin", "bob@example.com", auth.RoleAdmin},
		} {
			u, err := m.seedUser(tx, su)
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", su.email, err)
			}
			users[su.email] = u
		}

		coffee, err := m.seedProduct(tx, product.Product{
			Name:          "Coffee Beans",
			Description:   "Premium roasted coffee beans",
			Price:         decimal.RequireFromString("15.99"),
			StockQuantity: 100,
			ImageURL:      "https://example.com/coffee.jpg",
		})
		if err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}

		if _, err := m.seedProduct(tx, product.Product{
			Name:          "French Press",
			Description:   "Glass French press coffee maker",
			Price:         decimal.RequireFromString("29.99"),
			StockQuantity: 50,
			ImageURL:      "https://example.com/frenchpress.jpg",
		}); err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}

		if err := m.seedCart(tx, users["alice@example.com"], coffee, 2); err != nil {
			return fmt.Errorf("failed to seed cart: %w", err)
		}

		m.log.Info("✅ Initial data seeded successfully")
		return nil
	})
}

func (m *Migration) seedUser(tx *gorm.DB, su seedUser) (*user.User, error) {
	var existing user.User
	err := tx.Where("email = ?", su.email).First(&existing).Error
	if err == nil {
		m.log.Infof("⏭️ User already exists: %s", su.email)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := m.passwords.HashPassword("password123")
	if err != nil {
		return nil, err
	}

	u := &user.User{FullName: su.fullName, Email: su.email, Password: hash, Role: su.role}
	if err := tx.Create(u).Error; err != nil {
		return nil, err
	}

	m.log.Infof("✅ Created %s user: %s (password: password123)", su.role, su.email)
	return u, nil
}

func (m *Migration) seedProduct(tx *gorm.DB, p product.Product) (*product.Product, error) {
	var existing product.Product
	err := tx.Where("name = ?", p.Name).First(&existing).Error
	if err == nil {
		m.log.Infof("⏭️ Product already exists: %s", p.Name)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}

	m.log.Infof("✅ Created product: %s", p.Name)
	return &p, nil
}

func (m *Migration) seedCart(tx *gorm.DB, owner *user.User, p *product.Product, quantity int) error {
	c := cart.Cart{UserID: owner.ID}
	if err := tx.Where("user_id = ?", owner.ID).FirstOrCreate(&c).Error; err != nil {
		return err
	}

	item := cart.CartItem{CartID: c.ID, ProductID: p.ID, Quantity: quantity}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&item).Error
}
