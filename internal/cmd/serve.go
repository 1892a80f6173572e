// internal/cmd/serve.go
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	server "github.com/your-org/storefront-api/internal/interfaces/http"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/events"
	"gorm.io/gorm"
)

var (
	useMemory  bool
	skipRedis  bool
	runMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the storefront HTTP server.

By default the server connects to PostgreSQL, applies migrations and, in
development, seeds the demo catalog. --memory keeps all data in process,
which is handy for local experiments.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&useMemory, "memory", false, "use the in-memory store instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&skipRedis, "no-redis", false, "disable redis backed rate limiting")
	serveCmd.Flags().BoolVar(&runMigrate, "migrate", true, "apply database migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

type repositories struct {
	users    user.Repository
	products product.Repository
	carts    cart.Repository
	orders   order.Store
	health   server.HealthCheck
	close    func() error
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	log.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	repos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}()

	products := product.NewService(repos.products, log)
	services := server.Services{
		Users:    user.NewService(repos.users, cfg, log),
		Products: products,
		Carts:    cart.NewService(repos.carts, products, log),
		Orders:   order.NewService(repos.orders, publisher, log),
	}

	srv := server.NewServer(cfg, log, services, repos.health, redisClient)

	log.Info("✅ All systems operational!")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("👋 Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		return err
	}

	log.Info("✅ Server shutdown completed")
	return nil
}

func openRepositories(cfg *config.Config, log logrus.FieldLogger) (*repositories, error) {
	if useMemory {
		log.Warn("Using in-memory store, data is lost on exit")
		db := memory.New()
		return &repositories{
			users:    db.Users(),
			products: db.Products(),
			carts:    db.Carts(),
			orders:   db.Orders(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return nil, err
	}

	if runMigrate {
		if err := migrate(db, cfg, log, cfg.IsDevelopment()); err != nil {
			_ = postgres.Close(db)
			return nil, err
		}
	}

	return &repositories{
		users:    user.NewRepository(db),
		products: product.NewRepository(db),
		carts:    cart.NewRepository(db),
		orders:   order.NewStore(db),
		health: func(ctx context.Context) error {
			return postgres.Health(ctx, db)
		},
		close: func() error { return postgres.Close(db) },
	}, nil
}

// connectRedis returns nil when redis is disabled or unreachable; the API
// then runs without rate limiting
func connectRedis(cfg *config.Config, log logrus.FieldLogger) *redis.Client {
	if skipRedis {
		log.Info("Redis disabled, rate limiting is off")
		return nil
	}

	client, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, rate limiting is off")
		return nil
	}
	return client
}

func newMigration(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) *postgres.Migration {
	return postgres.NewMigration(db, auth.NewPasswordManager(cfg), log)
}

// migrate applies the schema and, when seed is set, the demo data. Seeding
// problems only warn here; the seed command reports them as failures.
func migrate(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger, seed bool) error {
	m := newMigration(db, cfg, log)
	if err := applySchema(m); err != nil {
		return err
	}

	if seed {
		if err := m.SeedInitialData(); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}
	return nil
}

func applySchema(m *postgres.Migration) error {
	if err := m.RunAutoMigrations(); err != nil {
		return err
	}
	return m.CreateIndexes()
}
