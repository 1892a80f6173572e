// internal/domain/product/service.go
package product

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// numeric(10,2) upper bound
var maxPrice = decimal.New(1, 8)

// Service handles product business logic
type Service struct {
	repo Repository
	log  logrus.FieldLogger
}

// NewService creates a new product service
func NewService(repo Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// ListRequest represents product list query parameters
type ListRequest struct {
	Search   string   `form:"search" binding:"max=255"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Page     int      `form:"page,default=1" binding:"min=1"`
	Limit    int      `form:"limit,default=10" binding:"min=1,max=100"`
}

// CreateRequest represents product creation data
type CreateRequest struct {
	Name          string          `json:"name" binding:"required,min=2,max=255"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required,gt=0"`
	StockQuantity *int            `json:"stockQuantity" binding:"required,gte=0"`
	ImageURL      string          `json:"imageUrl" binding:"omitempty,url,max=500"`
}

// UpdateRequest represents a partial product update
type UpdateRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=2,max=255"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" binding:"omitempty,gt=0"`
	StockQuantity *int             `json:"stockQuantity" binding:"omitempty,gte=0"`
	ImageURL      *string          `json:"imageUrl" binding:"omitempty,url,max=500"`
}

// ListResponse represents a page of products
type ListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// FindAll retrieves products with filtering and pagination, newest first
func (s *Service) FindAll(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filter := Filter{
		Search: req.Search,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if req.MinPrice != nil {
		v := decimal.NewFromFloat(*req.MinPrice)
		filter.MinPrice = &v
	}
	if req.MaxPrice != nil {
		v := decimal.NewFromFloat(*req.MaxPrice)
		filter.MaxPrice = &v
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if products == nil {
		products = []Product{}
	}

	return &ListResponse{
		Products: products,
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// FindByID retrieves a single product
func (s *Service) FindByID(ctx context.Context, id uint) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// Create adds a product to the catalog
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Product, error) {
	price, err := normalizePrice(req.Price)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: *req.StockQuantity,
		ImageURL:      req.ImageURL,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "name": p.Name}).Info("product created")
	return p, nil
}

// Update applies the provided fields to an existing product. Columns that
// were not supplied are never written.
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*Product, error) {
	changes := Changes{
		Name:          req.Name,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	}
	if req.Price != nil {
		price, err := normalizePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		changes.Price = &price
	}

	p, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, mapError(err)
	}

	s.log.WithField("product_id", p.ID).Info("product updated")
	return p, nil
}

// Delete removes a product from the catalog and from every cart holding it
func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapError(err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}

	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// normalizePrice accepts positive amounts with at most two decimal places
func normalizePrice(price decimal.Decimal) (decimal.Decimal, error) {
	fieldErr := func(msg string) error {
		return apperror.Validation(apperror.FieldError{Field: "price", Message: msg})
	}

	rounded := price.Round(2)
	switch {
	case !rounded.Equal(price):
		return decimal.Zero, fieldErr("price must have at most 2 decimal places")
	case !rounded.IsPositive():
		return decimal.Zero, fieldErr("price must be positive")
	case rounded.GreaterThanOrEqual(maxPrice):
		return decimal.Zero, fieldErr("price must be less than 100000000")
	}
	return rounded, nil
}

func mapError(err error) error {
	if errors.Is(err, ErrProductNotFound) {
		return apperror.NotFound("Product not found")
	}
	return apperror.Internal(err)
}
