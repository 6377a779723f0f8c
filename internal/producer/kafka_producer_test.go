package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"store-api/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type MockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	written           []kafka.Message
	closed            bool
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.WriteMessagesFunc != nil {
		return m.WriteMessagesFunc(ctx, msgs...)
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.closed = true
	return nil
}

func TestOrderProducer_PublishOrderCreated(t *testing.T) {
	w := &MockWriter{}
	p := newOrderProducer(w)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	orderID := uuid.New()
	ev := service.OrderCreatedEvent{
		OrderID:     orderID,
		UserID:      uuid.New(),
		TotalAmount: decimal.RequireFromString("25.00"),
		Currency:    "GBP",
		Items:       []service.OrderItemEvent{{ProductID: uuid.New(), Quantity: 2, Price: decimal.RequireFromString("10.00")}},
	}
	if err := p.PublishOrderCreated(context.Background(), ev); err != nil {
		t.Fatalf("PublishOrderCreated: %v", err)
	}

	if len(w.written) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.written))
	}
	msg := w.written[0]
	if string(msg.Key) != orderID.String() {
		t.Fatalf("key = %s, want order id", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != EventOrderCreated {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != EventOrderCreated || !env.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	var payload service.OrderCreatedEvent
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != orderID || !payload.TotalAmount.Equal(ev.TotalAmount) || len(payload.Items) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestOrderProducer_IgnoresRequestCancellation(t *testing.T) {
	var sawCancelled bool
	w := &MockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			sawCancelled = ctx.Err() != nil
			return nil
		},
	}
	p := newOrderProducer(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.PublishOrderDeleted(ctx, service.OrderDeletedEvent{OrderID: uuid.New()}); err != nil {
		t.Fatalf("PublishOrderDeleted: %v", err)
	}
	if sawCancelled {
		t.Fatal("writer must not receive the cancelled request context")
	}
}

func TestOrderProducer_PropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	w := &MockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error { return boom },
	}
	p := newOrderProducer(w)

	err := p.PublishOrderStatusChanged(context.Background(), service.OrderStatusChangedEvent{OrderID: uuid.New(), From: "pending", To: "shipped"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("Close: %v closed=%v", err, w.closed)
	}
}
