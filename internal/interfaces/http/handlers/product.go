// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	result, err := h.productService.FindAll(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.FindByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// CreateProduct handles POST /products (admin)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, p)
}

// UpdateProduct handles PUT /products/:id (admin)
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req product.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// DeleteProduct handles DELETE /products/:id (admin)
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, http.StatusOK, "Product deleted successfully")
}
