// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.orderService.CreateOrder(c.Request.Context(), p, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, o)
}

// GetUserOrders handles GET /orders
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.orderService.GetUserOrders(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, orders)
}

// UpdateOrderStatus handles PUT /orders/:orderId/status (admin)
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, o)
}
