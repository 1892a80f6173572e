// internal/pkg/events/kafka.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
)

const publishTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer used for publishing
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id
type KafkaPublisher struct {
	writer messageWriter
	log    logrus.FieldLogger
}

// NewPublisher returns a Kafka publisher, or a NopPublisher when no brokers
// are configured
func NewPublisher(cfg *config.Config, log logrus.FieldLogger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("Kafka brokers not configured, order events disabled")
		return NopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	log.WithFields(logrus.Fields{
		"brokers": cfg.Kafka.Brokers,
		"topic":   cfg.Kafka.Topic,
	}).Info("✅ Kafka publisher configured")

	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	event.EventType = EventTypeOrderPlaced

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventTypeOrderPlaced)},
			{Key: "event-id", Value: []byte(event.EventID)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"order_id": event.OrderID,
	}).Debug("order event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
