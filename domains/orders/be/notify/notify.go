// Package notify delivers new-order summaries to the store's WhatsApp channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/messaging"
)

// RoutingKey is the topic new orders are published under.
const RoutingKey = "order.placed"

// Publisher is the broker surface used by the queue notifier.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, options ...messaging.PublishOption) error
}

// Message is the payload consumed by the WhatsApp delivery worker.
type Message struct {
	OrderID   string    `json:"orderId"`
	TenantID  string    `json:"tenantId"`
	StoreName string    `json:"storeName"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Link      string    `json:"link"`
	Total     int64     `json:"total"`
	PlacedAt  time.Time `json:"placedAt"`
}

// QueueNotifier publishes each placed order to the notification exchange.
type QueueNotifier struct {
	pub Publisher
}

// NewQueueNotifier constructs a QueueNotifier.
func NewQueueNotifier(pub Publisher) *QueueNotifier {
	if pub == nil {
		panic("publisher is required")
	}
	return &QueueNotifier{pub: pub}
}

func (n *QueueNotifier) OrderPlaced(ctx context.Context, placed service.Placed) error {
	body, err := json.Marshal(toMessage(placed))
	if err != nil {
		return fmt.Errorf("encode order notification: %w", err)
	}
	id := placed.Order.ID.String()
	return n.pub.Publish(ctx, RoutingKey, body,
		messaging.WithMessageID(id),
		messaging.WithHeaders(amqp.Table{"tenant_id": placed.Order.TenantID}),
	)
}

// LogNotifier writes the notification to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		panic("logger is required")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPlaced(_ context.Context, placed service.Placed) error {
	n.logger.Info("order placed",
		zap.String("order_id", placed.Order.ID.String()),
		zap.String("tenant_id", placed.Order.TenantID),
		zap.String("to", placed.WhatsApp),
		zap.Int64("total", placed.Order.TotalPrice),
	)
	return nil
}

func toMessage(p service.Placed) Message {
	return Message{
		OrderID:   p.Order.ID.String(),
		TenantID:  p.Order.TenantID,
		StoreName: p.StoreName,
		To:        p.WhatsApp,
		Text:      p.Message,
		Link:      p.Link,
		Total:     p.Order.TotalPrice,
		PlacedAt:  p.Order.CreatedAt,
	}
}

var (
	_ service.Notifier = (*QueueNotifier)(nil)
	_ service.Notifier = (*LogNotifier)(nil)
)
