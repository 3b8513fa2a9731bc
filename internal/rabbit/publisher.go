package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-dashboard/internal/model"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Channel es la parte de *amqp091.Channel que usa el publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Mismo sobre que los mensajes que consume el dashboard.
type PromotionCreatedMessage struct {
	CorrelationID string          `json:"correlation_id"`
	Exchange      string          `json:"exchange"`
	RoutingKey    string          `json:"routing_key"`
	Message       model.Promotion `json:"message"`
}

type Publisher struct {
	ch Channel
}

// NewPublisher declara el exchange fanout promotion_created.
func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(ExchangePromotionCreated, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangePromotionCreated, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) PublishPromotionCreated(ctx context.Context, promo model.Promotion) error {
	correlationID := uuid.NewString()
	body, err := json.Marshal(PromotionCreatedMessage{
		CorrelationID: correlationID,
		Exchange:      ExchangePromotionCreated,
		Message:       promo,
	})
	if err != nil {
		return fmt.Errorf("marshal promotion_created: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, ExchangePromotionCreated, "", false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: correlationID,
		MessageId:     promo.ID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish promotion_created: %w", err)
	}
	return nil
}
