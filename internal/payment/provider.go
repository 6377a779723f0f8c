package payment

import (
	"context"
	"errors"
)

type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusRequiresCapture       Status = "requires_capture"
	StatusCanceled              Status = "canceled"
	StatusSucceeded             Status = "succeeded"
)

// Ключи метаданных, которыми интент привязан к пользователю и корзине.
const (
	MetaUserID = "app_user_id"
	MetaCartID = "app_cart_id"
)

var (
	// ErrUnavailable: таймаут/сеть/5xx у провайдера. Повторяемо; это не «платёж не прошёл».
	ErrUnavailable = errors.New("payment provider unavailable")
	ErrNotFound    = errors.New("payment intent not found")
	// ErrRejected: провайдер ответил ошибкой запроса.
	ErrRejected = errors.New("payment provider rejected request")
)

// Intent: каноническое представление платёжного интента внутри приложения.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         Status
	Currency       string
	Amount         int64
	AmountReceived int64
	Metadata       map[string]string
}

type CreateParams struct {
	Amount   int64 // в минимальных единицах валюты
	Currency string
	Metadata map[string]string
}

type Provider interface {
	CreateIntent(ctx context.Context, p CreateParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
