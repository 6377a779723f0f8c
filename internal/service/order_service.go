package service

import (
	"context"
	"time"

	"store-api/internal/models"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type orderService struct {
	repo   *repository.Repository
	events EventBus
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderService(repo *repository.Repository, events EventBus, log *zap.Logger) OrderService {
	return &orderService{
		repo:   repo,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

func requireAdmin(ctx context.Context) (Identity, error) {
	id, err := requireAuth(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.IsAdmin() {
		return Identity{}, ErrForbidden
	}
	return id, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	id, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, &id.UserID, f)
}

func (s *orderService) GetMyOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	id, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	// чужой заказ неотличим от несуществующего
	ord, err := s.repo.Orders.GetByIDForUser(ctx, orderID, id.UserID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) AdminListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, nil, f)
}

func (s *orderService) AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	ord, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

// AdminUpdateStatus: любой статус из любого: переходы для администратора не проверяются.
func (s *orderService) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	ord, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	from := ord.Status

	ok, err := s.repo.Orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		// удалён между чтением и обновлением
		return nil, ErrOrderNotFound
	}

	ord, err = s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	s.log.Info("order status updated by admin",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.String("admin_id", admin.UserID.String()),
	)
	s.publishStatusChanged(ctx, ord, from, admin.UserID)
	return ord, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	id, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	ord, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if ord.UserID != id.UserID {
		return nil, ErrForbidden
	}
	if ord.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	// оптимистичная проверка: UPDATE ... WHERE status = 'pending'
	ok, err := s.repo.Orders.CancelIfPending(ctx, orderID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStatusChanged
	}

	ord.Status = models.OrderStatusCancelled
	s.log.Info("order cancelled by owner",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", id.UserID.String()),
	)
	s.publishStatusChanged(ctx, ord, models.OrderStatusPending, id.UserID)
	return ord, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) (DeleteOutcome, error) {
	id, err := requireAuth(ctx)
	if err != nil {
		return 0, err
	}
	if !id.IsAdmin() {
		if _, err := s.CancelOrder(ctx, orderID); err != nil {
			return 0, err
		}
		return OrderCancelled, nil
	}

	ord, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if ord == nil {
		return 0, ErrOrderNotFound
	}

	// жёсткое удаление мимо машины состояний; позиции уходят каскадом
	ok, err := s.repo.Orders.Delete(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrOrderNotFound
	}

	s.log.Info("order deleted by admin",
		zap.String("order_id", orderID.String()),
		zap.String("admin_id", id.UserID.String()),
	)
	if s.events != nil {
		if err := s.events.PublishOrderDeleted(ctx, OrderDeletedEvent{
			OrderID:   ord.ID,
			UserID:    ord.UserID,
			DeletedBy: id.UserID,
			DeletedAt: s.now(),
		}); err != nil {
			s.log.Warn("failed to publish order deleted event", zap.String("order_id", ord.ID.String()), zap.Error(err))
		}
	}
	return OrderDeleted, nil
}

func (s *orderService) list(ctx context.Context, userID *uuid.UUID, f ListFilter) ([]models.Order, int64, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		UserID: userID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

func (s *orderService) publishStatusChanged(ctx context.Context, ord *models.Order, from models.OrderStatus, by uuid.UUID) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
		OrderID:   ord.ID,
		UserID:    ord.UserID,
		From:      string(from),
		To:        string(ord.Status),
		ChangedBy: by,
		ChangedAt: s.now(),
	}); err != nil {
		s.log.Warn("failed to publish order status event", zap.String("order_id", ord.ID.String()), zap.Error(err))
	}
}
