// Package notification prints a human readable line for every order event
// fanned out on the notifications exchange.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/messaging"
	"pizza-lovers/internal/models"
)

// Consumer is the part of messaging.Consumer the subscriber needs
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber handles notification messages
type Subscriber struct {
	consumer Consumer
	logger   *logger.Logger
	out      io.Writer
}

// NewSubscriber creates a subscriber writing to stdout
func NewSubscriber(consumer Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, logger: log, out: os.Stdout}
}

// WithOutput redirects the printed notifications
func (s *Subscriber) WithOutput(w io.Writer) *Subscriber {
	s.out = w
	return s
}

// Run consumes until ctx is cancelled
func (s *Subscriber) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, map[string]interface{}{
		"queue": messaging.NotificationsQueue,
	})

	err := s.consumer.StartConsuming(ctx, s.handleNotification)

	s.logger.Info("graceful_shutdown", "Closing notification consumer", requestID, nil)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	var ev models.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("failed to parse notification: %v: %w", err, messaging.ErrPermanent)
	}
	if ev.OrderID <= 0 || ev.NewStatus == "" {
		return fmt.Errorf("notification without order or status: %w", messaging.ErrPermanent)
	}

	if _, err := fmt.Fprintln(s.out, formatNotification(&ev)); err != nil {
		return fmt.Errorf("failed to print notification: %w", err)
	}

	s.logger.Debug("notification_displayed", "Notification displayed", ev.EventID, map[string]interface{}{
		"order_id":   ev.OrderID,
		"type":       ev.Type,
		"old_status": ev.OldStatus,
		"new_status": ev.NewStatus,
		"changed_by": ev.ChangedBy,
	})
	return nil
}

// formatNotification renders one event as a console line
func formatNotification(ev *models.OrderEvent) string {
	timestamp := ev.Timestamp.Format("2006-01-02 15:04:05")

	if ev.Type == models.EventOrderCreated {
		return fmt.Sprintf("[%s] Order %d placed by %s, total %s.",
			timestamp, ev.OrderID, ev.ChangedBy, ev.Total.StringFixed(2))
	}

	switch ev.NewStatus {
	case models.StatusKitchen:
		return fmt.Sprintf("[%s] Order %d is now being prepared.", timestamp, ev.OrderID)
	case models.StatusReady:
		return fmt.Sprintf("[%s] Order %d is ready for delivery.", timestamp, ev.OrderID)
	case models.StatusInDelivery:
		if ev.DeliveryPersonID != nil {
			return fmt.Sprintf("[%s] Order %d is on its way with courier %d.", timestamp, ev.OrderID, *ev.DeliveryPersonID)
		}
		return fmt.Sprintf("[%s] Order %d is on its way.", timestamp, ev.OrderID)
	case models.StatusDelivered:
		return fmt.Sprintf("[%s] Order %d has been delivered. Thank you for your order!", timestamp, ev.OrderID)
	case models.StatusCancelled:
		return fmt.Sprintf("[%s] Order %d has been cancelled by %s.", timestamp, ev.OrderID, ev.ChangedBy)
	default:
		return fmt.Sprintf("[%s] Order %d status changed from '%s' to '%s' by %s.",
			timestamp, ev.OrderID, ev.OldStatus, ev.NewStatus, ev.ChangedBy)
	}
}
