// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
)

// Handlers groups the endpoint handlers mounted by SetupRoutes
type Handlers struct {
	Auth    *handlers.AuthHandler
	Product *handlers.ProductHandler
	Cart    *handlers.CartHandler
	Order   *handlers.OrderHandler
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", h.Auth.GetProfile)
		}
	}
}

// SetupProductRoutes sets up product related routes
func SetupProductRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)

		admin := products.Group("")
		admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
		{
			admin.POST("", h.Product.CreateProduct)
			admin.PUT("/:id", h.Product.UpdateProduct)
			admin.DELETE("/:id", h.Product.DeleteProduct)
		}
	}
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	cart := rg.Group("/cart")
	cart.Use(middleware.AuthMiddleware(cfg))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/add", h.Cart.AddToCart)
		cart.PUT("/update/:cartItemId", h.Cart.UpdateCartItem)
		cart.DELETE("/remove/:cartItemId", h.Cart.RemoveCartItem)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", h.Order.GetUserOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.PUT("/:orderId/status", middleware.AdminMiddleware(), h.Order.UpdateOrderStatus)
	}
}

// SetupRoutes mounts every route group on rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	SetupAuthRoutes(rg, h, cfg)
	SetupProductRoutes(rg, h, cfg)
	SetupCartRoutes(rg, h, cfg)
	SetupOrderRoutes(rg, h, cfg)
}
