// internal/pkg/events/events.go
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const EventTypeOrderPlaced = "order.placed"

// OrderPlacedItem is one line of a placed order
type OrderPlacedItem struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderPlaced is emitted once an order transaction has committed
type OrderPlaced struct {
	EventID     string            `json:"eventId"`
	EventType   string            `json:"eventType"`
	OrderID     uint              `json:"orderId"`
	UserID      uint              `json:"userId"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Status      string            `json:"status"`
	Items       []OrderPlacedItem `json:"items"`
	PlacedAt    time.Time         `json:"placedAt"`
}

// Publisher delivers domain events to downstream consumers
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (NopPublisher) Close() error { return nil }
