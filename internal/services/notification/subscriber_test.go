package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/messaging"
	"pizza-lovers/internal/models"
)

var at = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func TestFormatNotification(t *testing.T) {
	courier := int64(4)
	tests := []struct {
		name string
		ev   models.OrderEvent
		want string
	}{
		{
			"created",
			models.OrderEvent{Type: models.EventOrderCreated, OrderID: 7, NewStatus: models.StatusPending, ChangedBy: "customer:3", Total: decimal.RequireFromString("12.5")},
			"[2026-03-14 19:30:00] Order 7 placed by customer:3, total 12.50.",
		},
		{
			"kitchen",
			models.OrderEvent{Type: models.EventStatusChanged, OrderID: 7, OldStatus: models.StatusPending, NewStatus: models.StatusKitchen},
			"[2026-03-14 19:30:00] Order 7 is now being prepared.",
		},
		{
			"in delivery with courier",
			models.OrderEvent{Type: models.EventStatusChanged, OrderID: 7, NewStatus: models.StatusInDelivery, DeliveryPersonID: &courier},
			"[2026-03-14 19:30:00] Order 7 is on its way with courier 4.",
		},
		{
			"cancelled",
			models.OrderEvent{Type: models.EventStatusChanged, OrderID: 7, NewStatus: models.StatusCancelled, ChangedBy: "order_manager:2"},
			"[2026-03-14 19:30:00] Order 7 has been cancelled by order_manager:2.",
		},
		{
			"fallback",
			models.OrderEvent{Type: models.EventStatusChanged, OrderID: 7, OldStatus: models.StatusPending, NewStatus: models.StatusWaiting, ChangedBy: "system"},
			"[2026-03-14 19:30:00] Order 7 status changed from 'Pendiente' to 'En_Espera' by system.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ev.Timestamp = at
			assert.Equal(t, tt.want, formatNotification(&tt.ev))
		})
	}
}

func TestHandleNotification(t *testing.T) {
	var out bytes.Buffer
	s := NewSubscriber(nil, logger.Discard()).WithOutput(&out)

	body, err := json.Marshal(models.OrderEvent{Type: models.EventStatusChanged, OrderID: 9, NewStatus: models.StatusDelivered, Timestamp: at})
	require.NoError(t, err)
	require.NoError(t, s.handleNotification(context.Background(), body))
	assert.Equal(t, "[2026-03-14 19:30:00] Order 9 has been delivered. Thank you for your order!\n", out.String())

	err = s.handleNotification(context.Background(), []byte("{not json"))
	assert.True(t, errors.Is(err, messaging.ErrPermanent))

	err = s.handleNotification(context.Background(), []byte(`{"order_id": 0}`))
	assert.True(t, errors.Is(err, messaging.ErrPermanent))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeConsumer struct {
	bodies [][]byte
	closed bool
}

func (f *fakeConsumer) StartConsuming(ctx context.Context, handler messaging.MessageHandler) error {
	for _, b := range f.bodies {
		if err := handler(ctx, b); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func TestRunStopsOnCancel(t *testing.T) {
	body, err := json.Marshal(models.OrderEvent{Type: models.EventStatusChanged, OrderID: 1, NewStatus: models.StatusReady, Timestamp: at})
	require.NoError(t, err)

	fc := &fakeConsumer{bodies: [][]byte{body}}
	out := &lockedBuffer{}
	s := NewSubscriber(fc, logger.Discard()).WithOutput(out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return out.String() != "" }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}
	assert.True(t, fc.closed)
	assert.Contains(t, out.String(), "Order 1 is ready for delivery.")
}
