package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"order-service/internal/logger"
	"order-service/internal/models"
)

// Publisher publishes messages to RabbitMQ queues through the default exchange.
// Connection setup is serialized by the Connection; publishes on the shared
// channel are safe for concurrent use.
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishToQueue publishes body as a persistent message on the named durable queue.
// Failures are returned as a NotificationPublishFailed error.
func (p *Publisher) PublishToQueue(ctx context.Context, queue string, body []byte) error {
	channel, err := p.conn.Channel(ctx)
	if err != nil {
		p.logger.Error("message_publish_failed", "RabbitMQ is unavailable", "", err, map[string]interface{}{
			"queue": queue,
		})
		return models.NewNotificationPublishFailed(err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now().UTC(),
	}

	err = channel.PublishWithContext(
		ctx,
		"",    // default exchange routes by queue name
		queue, // routing key
		false, // mandatory
		false, // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to queue %s", queue),
			"", err, map[string]interface{}{"queue": queue})
		return models.NewNotificationPublishFailed(err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to queue %s", queue),
		"", map[string]interface{}{
			"queue":        queue,
			"message_size": len(body),
		})

	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}
