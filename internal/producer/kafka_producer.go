package producer

import (
	"context"
	"encoding/json"
	"time"

	"store-api/internal/metrics"
	"store-api/internal/service"

	"github.com/segmentio/kafka-go"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// Envelope: формат сообщения в топике заказов; ключ сообщения — id заказа,
// поэтому события одного заказа попадают в одну партицию по порядку.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderProducer реализует service.EventBus поверх kafka.
type OrderProducer struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

var _ service.EventBus = (*OrderProducer)(nil)

func NewOrderProducer(brokers []string, topic string) *OrderProducer {
	return newOrderProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

func newOrderProducer(w messageWriter) *OrderProducer {
	return &OrderProducer{writer: w, timeout: 5 * time.Second, now: time.Now}
}

func (p *OrderProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, EventOrderCreated, e.OrderID.String(), e)
}

func (p *OrderProducer) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.publish(ctx, EventOrderStatusChanged, e.OrderID.String(), e)
}

func (p *OrderProducer) PublishOrderDeleted(ctx context.Context, e service.OrderDeletedEvent) error {
	return p.publish(ctx, EventOrderDeleted, e.OrderID.String(), e)
}

func (p *OrderProducer) publish(ctx context.Context, typ, key string, payload any) error {
	// отправка не зависит от отмены запроса: заказ уже закоммичен
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{Type: typ, OccurredAt: p.now().UTC(), Payload: raw})
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(typ)},
		},
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EventsPublished.WithLabelValues(typ, status).Inc()
	return err
}

func (p *OrderProducer) Close() error {
	return p.writer.Close()
}
