package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"store-api/internal/metrics"
	"store-api/internal/payment"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IntentResult struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
}

type PaymentService interface {
	CreateIntent(ctx context.Context, userID uuid.UUID) (*IntentResult, error)
}

type paymentService struct {
	repo     *repository.Repository
	provider payment.Provider
	currency string
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, provider payment.Provider, currency string, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		provider: provider,
		currency: strings.ToLower(currency),
		log:      log,
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, userID uuid.UUID) (*IntentResult, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	cart, err := s.repo.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.Carts.Lines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	// сумма считается только на сервере; клиент её не передаёт
	amount := TotalMinor(lines)
	if amount <= 0 {
		metrics.PaymentIntents.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	pi, err := s.provider.CreateIntent(ctx, payment.CreateParams{
		Amount:   amount,
		Currency: s.currency,
		Metadata: map[string]string{
			payment.MetaUserID: userID.String(),
			payment.MetaCartID: cart.ID.String(),
		},
	})
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("provider_error").Inc()
		return nil, mapProviderError(err)
	}

	s.log.Info("payment intent created",
		zap.String("intent_id", pi.ID),
		zap.String("user_id", userID.String()),
		zap.String("cart_id", cart.ID.String()),
		zap.Int64("amount", amount),
	)
	metrics.PaymentIntents.WithLabelValues("created").Inc()

	return &IntentResult{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     s.currency,
	}, nil
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, payment.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	case errors.Is(err, payment.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrPaymentIntentInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
}
