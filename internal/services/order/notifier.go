package order

import (
	"context"
	"encoding/json"
	"time"

	"order-service/internal/models"
)

// QueuePublisher delivers a serialized message to a named durable queue
type QueuePublisher interface {
	PublishToQueue(ctx context.Context, queue string, body []byte) error
}

// DeliveryOutcome describes how a notification publish ended
type DeliveryOutcome string

const (
	DeliveryPublished DeliveryOutcome = "published"
	DeliveryDegraded  DeliveryOutcome = "degraded"
)

// Delivery is the result of a best-effort publish. It is never an error so
// a broker outage cannot fail the request that triggered it.
type Delivery struct {
	Outcome DeliveryOutcome
	Err     error
}

// Notifier serializes order events and hands them to the queue publisher
type Notifier struct {
	publisher QueuePublisher
	queue     string
	timeout   time.Duration
}

// NewNotifier creates a notifier publishing to queue with a per-publish timeout
func NewNotifier(publisher QueuePublisher, queue string, timeout time.Duration) *Notifier {
	return &Notifier{publisher: publisher, queue: queue, timeout: timeout}
}

// Notify publishes event once; there is no retry
func (n *Notifier) Notify(ctx context.Context, event *models.NotificationEvent) Delivery {
	body, err := json.Marshal(event)
	if err != nil {
		return Delivery{Outcome: DeliveryDegraded, Err: models.NewNotificationPublishFailed(err)}
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.publisher.PublishToQueue(ctx, n.queue, body); err != nil {
		if !models.IsKind(err, models.KindNotificationPublishFailed) {
			err = models.NewNotificationPublishFailed(err)
		}
		return Delivery{Outcome: DeliveryDegraded, Err: err}
	}
	return Delivery{Outcome: DeliveryPublished}
}
