package service

import (
	"context"

	"store-api/internal/models"

	"github.com/google/uuid"
)

type ListFilter struct {
	Status *models.OrderStatus
	Limit  int
	Offset int
}

// DeleteOutcome: что на самом деле сделал DeleteOrder.
type DeleteOutcome int

const (
	OrderCancelled DeleteOutcome = iota + 1
	OrderDeleted
)

// OrderService: жизненный цикл заказа. Пользователь и роль берутся из ctx (WithIdentity).
type OrderService interface {
	ListMyOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	GetMyOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)

	AdminListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	AdminGetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AdminUpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)

	// CancelOrder: отмена владельцем, только из pending.
	CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// DeleteOrder: DELETE /orders/:id: администратор удаляет, владелец отменяет.
	DeleteOrder(ctx context.Context, id uuid.UUID) (DeleteOutcome, error)
}
