package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"store-api/internal/producer"
	"store-api/internal/repository"
	"store-api/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// OrderEventConsumer читает топик заказов и пишет покупателю письмо
// о новом заказе и о смене статуса. order.deleted не рассылается.
type OrderEventConsumer struct {
	reader messageReader
	users  repository.UserRepo
	mailer Mailer
	log    *zap.Logger
}

func NewOrderEventConsumer(brokers []string, groupID, topic string, users repository.UserRepo, mailer Mailer, log *zap.Logger) *OrderEventConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return newOrderEventConsumer(r, users, mailer, log)
}

func newOrderEventConsumer(r messageReader, users repository.UserRepo, mailer Mailer, log *zap.Logger) *OrderEventConsumer {
	return &OrderEventConsumer{reader: r, users: users, mailer: mailer, log: log}
}

func (c *OrderEventConsumer) Run(ctx context.Context) error {
	c.log.Info("order event consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		if err := c.Handle(ctx, m.Value); err != nil {
			c.log.Error("handle order event", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Handle разбирает конверт и отправляет письмо. Ошибка не останавливает чтение.
func (c *OrderEventConsumer) Handle(ctx context.Context, value []byte) error {
	var env producer.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case producer.EventOrderCreated:
		var e service.OrderCreatedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		items := make([]map[string]any, 0, len(e.Items))
		for _, it := range e.Items {
			items = append(items, map[string]any{
				"ProductID": it.ProductID.String(),
				"Quantity":  it.Quantity,
				"Price":     it.Price.StringFixed(2),
			})
		}
		return c.sendTo(ctx, e.UserID, func(to, username string) Email {
			return Email{
				To:       to,
				Subject:  "Order " + e.OrderID.String() + " confirmed",
				Template: "order_created",
				Data: map[string]any{
					"Username": username,
					"OrderID":  e.OrderID.String(),
					"Items":    items,
					"Total":    e.TotalAmount.StringFixed(2),
					"Currency": e.Currency,
				},
			}
		})

	case producer.EventOrderStatusChanged:
		var e service.OrderStatusChangedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return c.sendTo(ctx, e.UserID, func(to, username string) Email {
			return Email{
				To:       to,
				Subject:  "Order " + e.OrderID.String() + " is now " + e.To,
				Template: "order_status",
				Data: map[string]any{
					"Username": username,
					"OrderID":  e.OrderID.String(),
					"From":     e.From,
					"To":       e.To,
				},
			}
		})

	case producer.EventOrderDeleted:
		return nil
	}

	c.log.Warn("unknown order event type", zap.String("type", env.Type))
	return nil
}

func (c *OrderEventConsumer) sendTo(ctx context.Context, userID uuid.UUID, build func(to, username string) Email) error {
	u, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", userID, err)
	}
	if u == nil {
		c.log.Warn("recipient not found", zap.String("user_id", userID.String()))
		return nil
	}
	msg := build(u.Email, u.Username)
	if err := c.mailer.Send(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Template, userID, err)
	}
	c.log.Info("email sent", zap.String("user_id", userID.String()), zap.String("template", msg.Template))
	return nil
}

func (c *OrderEventConsumer) Close() error { return c.reader.Close() }
