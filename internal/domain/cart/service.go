// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

const itemRemovedMessage = "Item removed from cart"

// ProductFinder looks up live products
type ProductFinder interface {
	FindByID(ctx context.Context, id uint) (*product.Product, error)
}

// Service handles cart business logic
type Service struct {
	repo     Repository
	products ProductFinder
	log      logrus.FieldLogger
}

// NewService creates a new cart service
func NewService(repo Repository, products ProductFinder, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, products: products, log: log}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"productId" binding:"required,min=1"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest holds the amount to take off a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// AddResult is returned after adding to the cart
type AddResult struct {
	Item *ItemView `json:"item"`
	Cart *View     `json:"cart"`
}

// UpdateResult is returned after decreasing a cart line
type UpdateResult struct {
	Item    *ItemView `json:"item,omitempty"`
	Removed bool      `json:"removed"`
	Message string    `json:"message,omitempty"`
	Cart    *View     `json:"cart"`
}

// GetOrCreateCart returns the user's cart, creating an empty one on first use
func (s *Service) GetOrCreateCart(ctx context.Context, userID uint) (*View, error) {
	c, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return NewView(c), nil
}

// AddToCart adds quantity units of a product, merging with an existing line
func (s *Service) AddToCart(ctx context.Context, principal auth.Principal, req *AddToCartRequest) (*AddResult, error) {
	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, product.ErrProductNotFound) || apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal(err)
	}

	c, err := s.repo.FindOrCreateByUser(ctx, principal.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	item, err := s.repo.AddItem(ctx, c.ID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    principal.UserID,
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	}).Debug("cart item added")

	view, err := s.GetOrCreateCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return &AddResult{Item: newItemView(item), Cart: view}, nil
}

// UpdateCartItem decreases a line by req.Quantity, removing it when nothing is left
func (s *Service) UpdateCartItem(ctx context.Context, principal auth.Principal, itemID uint, req *UpdateCartItemRequest) (*UpdateResult, error) {
	c, item, err := s.ownedItem(ctx, principal, itemID)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	newQuantity := item.Quantity - req.Quantity
	if newQuantity <= 0 {
		if err := s.repo.DeleteItem(ctx, c.ID, item.ID); err != nil {
			return nil, itemError(err)
		}
		result.Removed = true
		result.Message = itemRemovedMessage
	} else {
		if err := s.repo.UpdateItemQuantity(ctx, item.ID, newQuantity); err != nil {
			return nil, itemError(err)
		}
		item.Quantity = newQuantity
		result.Item = newItemView(item)
	}

	view, err := s.GetOrCreateCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	result.Cart = view
	return result, nil
}

// RemoveCartItem deletes a line from the caller's cart
func (s *Service) RemoveCartItem(ctx context.Context, principal auth.Principal, itemID uint) (string, error) {
	c, item, err := s.ownedItem(ctx, principal, itemID)
	if err != nil {
		return "", err
	}

	if err := s.repo.DeleteItem(ctx, c.ID, item.ID); err != nil {
		return "", itemError(err)
	}
	return itemRemovedMessage, nil
}

func (s *Service) ownedItem(ctx context.Context, principal auth.Principal, itemID uint) (*Cart, *CartItem, error) {
	c, err := s.repo.FindOrCreateByUser(ctx, principal.UserID)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}

	item, err := s.repo.FindItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, nil, itemError(err)
	}
	return c, item, nil
}

func itemError(err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return apperror.NotFound("Cart item not found")
	}
	return apperror.Internal(err)
}
