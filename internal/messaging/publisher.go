package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
)

// Publisher sends order events to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{conn: conn, logger: log}
}

// Publish routes the event on the orders topic exchange and, for status
// changes, broadcasts it on the notifications fanout
func (p *Publisher) Publish(ctx context.Context, ev models.OrderEvent) error {
	if err := p.publish(ctx, OrdersExchange, ev.RoutingKey(), ev, true); err != nil {
		return err
	}
	if ev.Type != models.EventStatusChanged {
		return nil
	}
	return p.publish(ctx, NotificationsExchange, "", ev, false)
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, ev models.OrderEvent, persistent bool) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Body:         body,
		DeliveryMode: amqp091.Transient,
		Timestamp:    time.Now(),
	}
	if persistent {
		msg.DeliveryMode = amqp091.Persistent
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.conn.Channel().PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			logger.RequestID(ctx), err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
				"order_id":    ev.OrderID,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		logger.RequestID(ctx), map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(body),
		})
	return nil
}
