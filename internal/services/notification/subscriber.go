package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"order-service/internal/logger"
	"order-service/internal/messaging"
	"order-service/internal/models"
)

// Source delivers raw notification messages to a handler until ctx is done
type Source interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints order notifications for staff terminals
type Subscriber struct {
	source Source
	logger *logger.Logger
	out    io.Writer
}

// NewSubscriber creates a new notification subscriber writing to out
func NewSubscriber(source Source, log *logger.Logger, out io.Writer) *Subscriber {
	return &Subscriber{
		source: source,
		logger: log,
		out:    out,
	}
}

// Start consumes notifications until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.handleNotification)

	s.logger.Info("graceful_shutdown", "Stopping notification subscriber", requestID, nil)
	if closeErr := s.source.Close(); closeErr != nil {
		s.logger.Error("graceful_shutdown", "Failed to close notification source", requestID, closeErr, nil)
	}

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// handleNotification decodes one event; a decode failure is returned so the
// source can nack the message
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	fmt.Fprintln(s.out, formatNotification(&event))

	s.logger.Info("notification_displayed", "Notification displayed to staff", requestID, map[string]interface{}{
		"order_id":       event.OrderID,
		"issuer_id":      event.IssuerID,
		"customer_id":    event.CustomerID,
		"coffee_shop_id": event.CoffeeShopID,
	})
	return nil
}

func formatNotification(event *models.NotificationEvent) string {
	timestamp := event.CreatedAt.Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] Order #%d for customer %d issued by %d: %s",
		timestamp,
		event.OrderID,
		event.CustomerID,
		event.IssuerID,
		event.Message,
	)
}
