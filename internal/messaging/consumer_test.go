package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"pizza-lovers/internal/logger"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{"success acks", nil, false, true, false},
		{"transient failure requeues", errors.New("db down"), false, false, true},
		{"second failure drops", errors.New("db down"), true, false, false},
		{"permanent failure drops", fmt.Errorf("bad json: %w", ErrPermanent), false, false, false},
	}

	c := &Consumer{logger: logger.Discard(), queueName: NotificationsQueue}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &ackRecorder{}
			d := amqp091.Delivery{Acknowledger: ack, Body: []byte("{}"), Redelivered: tt.redelivered}

			c.processMessage(context.Background(), d, func(context.Context, []byte) error { return tt.err })

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}
