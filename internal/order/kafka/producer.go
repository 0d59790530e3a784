package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-marketplace/internal/models"
)

// Lifecycle event types streamed to the order-events topic.
const (
	OrderCreated   = "order.created"
	OrderAccepted  = "order.accepted"
	OrderUpdated   = "order.updated"
	OrderCompleted = "order.completed"
	OrderCancelled = "order.cancelled"
	OrderDeleted   = "order.deleted"
)

type OrderEvent struct {
	Type      string       `json:"type"`
	Order     models.Order `json:"order"`
	Timestamp time.Time    `json:"timestamp"`
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishOrderEvent streams an order lifecycle event, keyed by order ID
// so all events for one order land in the same partition, in order.
func (p *Producer) PublishOrderEvent(eventType string, order models.Order) error {
	msgBytes, err := json.Marshal(OrderEvent{
		Type:      eventType,
		Order:     order,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.ID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
