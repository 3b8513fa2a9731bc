// setup.go
package rabbit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeOrderPlaced      = "order_placed"
	ExchangePromotionCreated = "promotion_created"
	QueueDashboardOrders     = "delivery_dashboard_orders"
)

// SetupConsumers declara la cola del dashboard, la bindea al exchange fanout
// order_placed y consume hasta que se cancele ctx o se cierre el canal.
func SetupConsumers(ctx context.Context, logger *slog.Logger, ch *amqp091.Channel, consumer *PlaceOrderConsumer) error {
	// 1. Declarar la queue
	q, err := ch.QueueDeclare(
		QueueDashboardOrders, // cola exclusiva del dashboard
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 2. Bindear al exchange fanout
	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		ExchangeOrderPlaced,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue to %s: %w", ExchangeOrderPlaced, err)
	}

	// 3. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					logger.Warn("rabbit delivery channel closed")
					return
				}
				if err := consumer.Handle(m.Body); err != nil {
					// un mensaje ilegible no se reencola
					_ = m.Nack(false, false)
					continue
				}
				_ = m.Ack(false)
			}
		}
	}()

	logger.Info("subscribed to exchange", slog.String("exchange", ExchangeOrderPlaced), slog.String("queue", q.Name))
	return nil
}
