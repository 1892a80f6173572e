// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	view, err := h.cartService.GetOrCreateCart(c.Request.Context(), p.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// AddToCart handles POST /cart/add
func (h *CartHandler) AddToCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req cart.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.AddToCart(c.Request.Context(), p, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// UpdateCartItem handles PUT /cart/update/:cartItemId
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	itemID, ok := pathID(c, "cartItemId")
	if !ok {
		return
	}

	var req cart.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.UpdateCartItem(c.Request.Context(), p, itemID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// RemoveCartItem handles DELETE /cart/remove/:cartItemId
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	itemID, ok := pathID(c, "cartItemId")
	if !ok {
		return
	}

	message, err := h.cartService.RemoveCartItem(c.Request.Context(), p, itemID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, http.StatusOK, message)
}
