package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"store-api/internal/metrics"
	"store-api/internal/models"
	"store-api/internal/payment"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompletedOrder: результат оформления. Replayed: заказ по этому платежу уже был создан раньше.
type CompletedOrder struct {
	Order    *models.Order
	Replayed bool
}

type CheckoutService interface {
	CompleteOrder(ctx context.Context, userID uuid.UUID, intentID string) (*CompletedOrder, error)
	// MaterializeCart: превращение корзины в заказ без проверки платежа.
	// Только для внутреннего использования и тестов, HTTP-маршрута нет.
	MaterializeCart(ctx context.Context, cartID, userID uuid.UUID) (*models.Order, error)
}

type checkoutService struct {
	repo     *repository.Repository
	provider payment.Provider
	events   EventBus
	currency string
	log      *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(repo *repository.Repository, provider payment.Provider, events EventBus, currency string, log *zap.Logger) CheckoutService {
	return &checkoutService{
		repo:     repo,
		provider: provider,
		events:   events,
		currency: strings.ToLower(currency),
		log:      log,
		now:      time.Now,
	}
}

func (s *checkoutService) CompleteOrder(ctx context.Context, userID uuid.UUID, intentID string) (*CompletedOrder, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, ErrMissingIntentID
	}

	// 1. только ответ провайдера по id, никаких сумм и статусов от клиента
	pi, err := s.provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		metrics.CheckoutOrders.WithLabelValues("failed").Inc()
		return nil, mapProviderError(err)
	}

	cartID, err := s.verifyIntent(ctx, userID, pi)
	if err != nil {
		metrics.CheckoutOrders.WithLabelValues("rejected").Inc()
		s.log.Warn("payment intent rejected",
			zap.String("intent_id", pi.ID),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	paid := pi.AmountReceived
	if paid == 0 {
		paid = pi.Amount
	}

	var (
		result *CompletedOrder
		items  []models.OrderItem
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		claimed, err := tx.Payments.Claim(ctx, &models.ProcessedPaymentIntent{
			ProviderIntentID: pi.ID,
			UserID:           userID,
			CartID:           cartID,
		})
		if err != nil {
			return err
		}
		if !claimed {
			ord, err := s.replay(ctx, tx, pi.ID, userID)
			if err != nil {
				return err
			}
			result = &CompletedOrder{Order: ord, Replayed: true}
			return nil
		}

		intentRef := pi.ID
		ord, its, err := s.materialize(ctx, tx, cartID, userID, &intentRef, &paid)
		if err != nil {
			return err
		}
		if err := tx.Payments.AttachOrder(ctx, pi.ID, ord.ID); err != nil {
			return err
		}
		result = &CompletedOrder{Order: ord}
		items = its
		return nil
	})
	if err != nil {
		s.countFailure(err)
		s.logFailure("checkout failed", userID, cartID, err, zap.String("intent_id", pi.ID))
		return nil, err
	}

	if result.Replayed {
		metrics.CheckoutOrders.WithLabelValues("replayed").Inc()
		s.log.Info("payment intent already consumed, returning existing order",
			zap.String("intent_id", pi.ID),
			zap.String("order_id", result.Order.ID.String()),
		)
		return result, nil
	}

	metrics.CheckoutOrders.WithLabelValues("created").Inc()
	s.log.Info("order created",
		zap.String("order_id", result.Order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("intent_id", pi.ID),
		zap.String("total", result.Order.TotalAmount.StringFixed(2)),
	)
	s.publishCreated(ctx, result.Order, items)
	return result, nil
}

// verifyIntent: шаги 2–5: статус, валюта, метаданные, владелец корзины. Возвращает id корзины.
func (s *checkoutService) verifyIntent(ctx context.Context, userID uuid.UUID, pi *payment.Intent) (uuid.UUID, error) {
	if pi.Status != payment.StatusSucceeded {
		return uuid.Nil, ErrPaymentIncomplete
	}
	if !strings.EqualFold(pi.Currency, s.currency) {
		return uuid.Nil, ErrUnsupportedCurrency
	}

	rawUser := strings.TrimSpace(pi.Metadata[payment.MetaUserID])
	rawCart := strings.TrimSpace(pi.Metadata[payment.MetaCartID])
	if rawUser == "" || rawCart == "" {
		return uuid.Nil, ErrMissingMetadata
	}

	metaUser, err := uuid.Parse(rawUser)
	if err != nil || metaUser != userID {
		return uuid.Nil, ErrForbidden
	}
	cartID, err := uuid.Parse(rawCart)
	if err != nil {
		return uuid.Nil, ErrForbidden
	}

	cart, err := s.repo.Carts.GetByID(ctx, cartID)
	if err != nil {
		return uuid.Nil, err
	}
	if cart == nil || cart.UserID != userID {
		return uuid.Nil, ErrForbidden
	}
	return cartID, nil
}

func (s *checkoutService) replay(ctx context.Context, tx *repository.Repository, intentID string, userID uuid.UUID) (*models.Order, error) {
	rec, err := tx.Payments.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.OrderID == nil {
		return nil, fmt.Errorf("%w: intent %s consumed without order", ErrInvariant, intentID)
	}
	if rec.UserID != userID {
		return nil, ErrForbidden
	}
	ord, err := tx.Orders.GetByID(ctx, *rec.OrderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		// заказ мог быть удалён администратором; платёж повторно не используем
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *checkoutService) MaterializeCart(ctx context.Context, cartID, userID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	cart, err := s.repo.Carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.UserID != userID {
		return nil, ErrForbidden
	}

	var (
		ord   *models.Order
		items []models.OrderItem
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		ord, items, err = s.materialize(ctx, tx, cartID, userID, nil, nil)
		return err
	})
	if err != nil {
		s.logFailure("materialization failed", userID, cartID, err)
		return nil, err
	}

	s.publishCreated(ctx, ord, items)
	return ord, nil
}

// materialize: транзакция корзина → заказ. Вызывается только внутри WithTx:
// любая ошибка откатывает и списание остатков, и заказ, и очистку корзины.
// paid != nil — сумма платежа в минимальных единицах, сверяется с пересчитанной.
func (s *checkoutService) materialize(
	ctx context.Context,
	tx *repository.Repository,
	cartID, userID uuid.UUID,
	intentID *string,
	paid *int64,
) (*models.Order, []models.OrderItem, error) {
	// a. строки корзины и товары под FOR UPDATE
	lines, err := tx.Carts.LockLines(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}

	// b. повторная проверка остатков: с момента расчёта цены прошло время
	for _, l := range lines {
		if l.Quantity > l.Stock {
			return nil, nil, &StockError{
				ProductID:   l.ProductID,
				ProductName: l.Name,
				Available:   l.Stock,
				Requested:   int64(l.Quantity),
			}
		}
	}

	total := decimal.Zero
	var minor int64
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt32(l.Quantity)))
		minor += LineMinor(l.Price, l.Quantity)
	}
	if paid != nil && *paid != minor {
		return nil, nil, fmt.Errorf("%w: paid %d, cart %d", ErrPaymentAmountMismatch, *paid, minor)
	}

	// c. списание одним UPDATE на товар
	for _, l := range lines {
		ok, err := tx.Products.DecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			// строка заблокирована выше, поэтому сюда попадать не должны
			return nil, nil, fmt.Errorf("%w: stock decrement failed for product %s", ErrInvariant, l.ProductID)
		}
	}

	// d. заказ с замороженной суммой
	now := s.now()
	ord := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalAmount:     total,
		CurrencyCode:    strings.ToUpper(s.currency),
		PaymentIntentID: intentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Orders.Create(ctx, ord); err != nil {
		return nil, nil, err
	}

	// e. позиции с текущей ценой как постоянным снимком
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			OrderID:   ord.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			CreatedAt: now,
		})
	}
	if err := tx.OrderItems.BulkCreate(ctx, items); err != nil {
		return nil, nil, err
	}
	ord.Items = items

	// f. корзина остаётся, удаляются только позиции
	cleared, err := tx.Carts.ClearItems(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if cleared != int64(len(lines)) {
		return nil, nil, fmt.Errorf("%w: cleared %d cart items, locked %d", ErrInvariant, cleared, len(lines))
	}

	return ord, items, nil
}

func (s *checkoutService) publishCreated(ctx context.Context, ord *models.Order, items []models.OrderItem) {
	if s.events == nil {
		return
	}
	evItems := make([]OrderItemEvent, 0, len(items))
	for _, it := range items {
		evItems = append(evItems, OrderItemEvent{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	ev := OrderCreatedEvent{
		OrderID:     ord.ID,
		UserID:      ord.UserID,
		Items:       evItems,
		TotalAmount: ord.TotalAmount,
		Currency:    ord.CurrencyCode,
		CreatedAt:   ord.CreatedAt,
	}
	if ord.PaymentIntentID != nil {
		ev.PaymentIntentID = *ord.PaymentIntentID
	}
	if err := s.events.PublishOrderCreated(ctx, ev); err != nil {
		s.log.Warn("failed to publish order created event", zap.String("order_id", ord.ID.String()), zap.Error(err))
	}
}

func (s *checkoutService) countFailure(err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		metrics.CheckoutOrders.WithLabelValues("stock_conflict").Inc()
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrEmptyCart), errors.Is(err, ErrPaymentAmountMismatch):
		metrics.CheckoutOrders.WithLabelValues("rejected").Inc()
	default:
		metrics.CheckoutOrders.WithLabelValues("failed").Inc()
	}
}

func (s *checkoutService) logFailure(msg string, userID, cartID uuid.UUID, err error, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("cart_id", cartID.String()),
		zap.Error(err),
	}, extra...)
	if errors.Is(err, ErrInvariant) {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Warn(msg, fields...)
}
