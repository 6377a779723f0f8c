package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemEvent struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedEvent struct {
	OrderID         uuid.UUID        `json:"order_id"`
	UserID          uuid.UUID        `json:"user_id"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	Items           []OrderItemEvent `json:"items"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Currency        string           `json:"currency"`
	CreatedAt       time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type OrderDeletedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

// EventBus публикует события после коммита. nil — публикация выключена.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishOrderDeleted(ctx context.Context, e OrderDeletedEvent) error
}
