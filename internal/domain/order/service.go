// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/events"
)

// Service handles order business logic
type Service struct {
	store     Store
	publisher events.Publisher
	log       logrus.FieldLogger
}

// NewService creates a new order service
func NewService(store Store, publisher events.Publisher, log logrus.FieldLogger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, publisher: publisher, log: log}
}

// CreateOrderRequest represents order creation request
type CreateOrderRequest struct {
	CartID uint `json:"cartId" binding:"required,min=1"`
}

// UpdateStatusRequest represents order status update request
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,oneof=PENDING PAID SHIPPED DELIVERED CANCELLED"`
}

func insufficientStock(name string, left int) error {
	return apperror.BadRequest(fmt.Sprintf("Insufficient stock for product %q. Only %d left.", name, left))
}

// CreateOrder turns the caller's cart into a PAID order. Stock checks, the
// order insert, stock decrements and clearing the cart commit together or
// not at all.
func (s *Service) CreateOrder(ctx context.Context, principal auth.Principal, req *CreateOrderRequest) (*Order, error) {
	var placed *Order

	err := s.store.Checkout(ctx, func(tx CheckoutTx) error {
		c, err := tx.LoadCart(req.CartID)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				return apperror.Forbidden("Invalid or unauthorized cart")
			}
			return err
		}
		if c.UserID != principal.UserID {
			return apperror.Forbidden("Invalid or unauthorized cart")
		}

		if len(c.Items) == 0 {
			return apperror.BadRequest("Cart is empty")
		}

		ids := make([]uint, 0, len(c.Items))
		for _, item := range c.Items {
			ids = append(ids, item.ProductID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		products, err := tx.LockProducts(ids)
		if err != nil {
			return err
		}

		o := &Order{
			UserID:      principal.UserID,
			Status:      OrderStatusPaid,
			TotalAmount: decimal.Zero,
			Items:       make([]OrderItem, 0, len(c.Items)),
		}
		for _, item := range c.Items {
			p, ok := products[item.ProductID]
			if !ok {
				return apperror.NotFound("Product not found")
			}
			if !p.InStock(item.Quantity) {
				return insufficientStock(p.Name, p.StockQuantity)
			}

			line := NewOrderItem(p, item.Quantity)
			o.Items = append(o.Items, line)
			o.TotalAmount = o.TotalAmount.Add(line.Subtotal)
		}

		if err := tx.CreateOrder(o); err != nil {
			return err
		}

		for _, line := range o.Items {
			ok, err := tx.DecrementStock(line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return insufficientStock(line.Product.Name, line.Product.StockQuantity)
			}
			line.Product.StockQuantity -= line.Quantity
		}

		if err := tx.ClearCart(c.ID, len(c.Items)); err != nil {
			if errors.Is(err, ErrCartChanged) {
				return apperror.Conflict("Cart changed during checkout, please try again")
			}
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		if _, ok := apperror.From(err); ok {
			return nil, err
		}
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     placed.ID,
		"user_id":      placed.UserID,
		"total_amount": placed.TotalAmount.StringFixed(2),
		"items":        len(placed.Items),
	}).Info("order placed")

	s.publishPlaced(ctx, placed)
	return placed, nil
}

// publishPlaced runs after commit; a delivery failure never fails the order
func (s *Service) publishPlaced(ctx context.Context, o *Order) {
	event := events.OrderPlaced{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		Items:       make([]events.OrderPlacedItem, 0, len(o.Items)),
		PlacedAt:    o.CreatedAt,
	}
	for _, item := range o.Items {
		event.Items = append(event.Items, events.OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := s.publisher.PublishOrderPlaced(context.WithoutCancel(ctx), event); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("failed to publish order event")
	}
}

// UpdateOrderStatus sets an order's status. Any status may follow any other.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, req *UpdateStatusRequest) (*Order, error) {
	if !req.Status.Valid() {
		return nil, apperror.Validation(apperror.FieldError{Field: "status", Message: "status is invalid"})
	}

	if err := s.store.UpdateStatus(ctx, orderID, req.Status); err != nil {
		return nil, mapError(err)
	}

	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}

	s.log.WithFields(logrus.Fields{"order_id": orderID, "status": req.Status}).Info("order status updated")
	return o, nil
}

// GetUserOrders returns the caller's orders, newest first
func (s *Service) GetUserOrders(ctx context.Context, principal auth.Principal) ([]Order, error) {
	orders, err := s.store.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func mapError(err error) error {
	if errors.Is(err, ErrOrderNotFound) {
		return apperror.NotFound("Order not found")
	}
	return apperror.Internal(err)
}
