package rabbit

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// AggregateInvalidator descarta los agregados cacheados del dashboard.
type AggregateInvalidator interface {
	InvalidateAggregates()
}

type PlaceOrderConsumer struct {
	dashboard AggregateInvalidator
	logger    *slog.Logger
}

func NewPlaceOrderConsumer(logger *slog.Logger, d AggregateInvalidator) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{dashboard: d, logger: logger.With(slog.String("component", "rabbit"))}
}

// Formato del mensaje publicado en el exchange order_placed.
type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID  string `json:"orderId"`
		CartID   string `json:"cartId"`
		UserID   string `json:"userId"`
		Articles []struct {
			ArticleID string `json:"articleId"`
			Quantity  int    `json:"quantity"`
		} `json:"articles"`
	} `json:"message"`
}

// Handle invalida los agregados: la orden nueva cambia los totales. La
// orden en sí se lee del document store en la próxima consulta.
func (c *PlaceOrderConsumer) Handle(msg []byte) error {
	var event PlacedOrderMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		c.logger.Error("failed to parse order_placed message", slog.Any("error", err))
		return fmt.Errorf("parse order_placed: %w", err)
	}

	c.dashboard.InvalidateAggregates()

	c.logger.Info("order placed, dashboard aggregates invalidated",
		slog.String("order_id", event.Message.OrderID),
		slog.String("correlation_id", event.CorrelationID),
	)
	return nil
}
