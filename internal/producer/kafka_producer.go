package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"github.com/segmentio/kafka-go"
)

type OrderEventProducer struct {
	writer *kafka.Writer
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	return &OrderEventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type orderEvent struct {
	Event          string             `json:"event"`
	OrderID        string             `json:"order_id"`
	UserID         string             `json:"user_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    int64              `json:"total_amount"`
	OccurredAt     int64              `json:"occurred_at"`
}

func (p *OrderEventProducer) PublishOrderPlaced(ctx context.Context, order models.Order) error {
	return p.send(ctx, order.ID, orderEvent{
		Event:       "order.placed",
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UnixMilli(),
	})
}

func (p *OrderEventProducer) PublishOrderStatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error {
	return p.send(ctx, order.ID, orderEvent{
		Event:          "order.status_changed",
		OrderID:        order.ID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		OccurredAt:     time.Now().UnixMilli(),
	})
}

func (p *OrderEventProducer) send(ctx context.Context, key string, evt orderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
