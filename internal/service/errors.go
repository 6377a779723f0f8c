package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")

	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidPrice      = errors.New("price must be >= 0")
	ErrMissingIntentID   = errors.New("payment intent id is required")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")

	ErrPaymentIncomplete     = errors.New("payment not completed")
	ErrUnsupportedCurrency   = errors.New("unsupported currency")
	ErrMissingMetadata       = errors.New("payment intent metadata missing")
	ErrPaymentIntentInvalid  = errors.New("payment intent not found")
	ErrPaymentAmountMismatch = errors.New("paid amount does not match cart total")
	ErrPaymentUnavailable    = errors.New("payment provider unavailable")
	ErrPaymentProvider       = errors.New("payment provider error")

	ErrOrderNotPending = errors.New("order is not pending")
	ErrStatusChanged   = errors.New("order status changed concurrently")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already exists")
	ErrSessionNotFound    = errors.New("session not found")

	// ErrInvariant: состояние, которого не должно быть; запрос откатывается и логируется.
	ErrInvariant = errors.New("invariant violation")
)

// StockError: конфликт остатков с данными для клиента.
type StockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int32
	Requested   int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
