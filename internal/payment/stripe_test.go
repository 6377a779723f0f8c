package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func TestStripeProvider_mapError(t *testing.T) {
	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_x", Timeout: time.Second}, zap.NewNop())

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"resource missing", &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusBadRequest}, ErrNotFound},
		{"404", &stripe.Error{HTTPStatusCode: http.StatusNotFound}, ErrNotFound},
		{"rate limited", &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}, ErrUnavailable},
		{"5xx", &stripe.Error{HTTPStatusCode: http.StatusBadGateway}, ErrUnavailable},
		{"bad request", &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Type: stripe.ErrorTypeInvalidRequest}, ErrRejected},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"transport", errors.New("connection reset by peer"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.mapError(context.Background(), "retrieve", tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFromStripe(t *testing.T) {
	if fromStripe(nil) != nil {
		t.Fatal("nil intent must map to nil")
	}

	pi := &stripe.PaymentIntent{
		ID:             "pi_1",
		ClientSecret:   "pi_1_secret",
		Status:         stripe.PaymentIntentStatusSucceeded,
		Currency:       stripe.Currency("GBP"),
		Amount:         2500,
		AmountReceived: 2500,
		Metadata: map[string]string{
			MetaUserID: " 6f1c1e7a-0000-4000-8000-000000000001 ",
			MetaCartID: "6f1c1e7a-0000-4000-8000-000000000002",
		},
	}
	got := fromStripe(pi)
	if got.Status != StatusSucceeded {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Currency != "gbp" {
		t.Fatalf("currency must be lower-cased, got %s", got.Currency)
	}
	if got.Amount != 2500 || got.AmountReceived != 2500 {
		t.Fatalf("amounts = %d/%d", got.Amount, got.AmountReceived)
	}
	if got.Metadata[MetaUserID] != "6f1c1e7a-0000-4000-8000-000000000001" {
		t.Fatalf("metadata not trimmed: %q", got.Metadata[MetaUserID])
	}

	// изменение результата не трогает исходный объект
	got.Metadata[MetaCartID] = "changed"
	if pi.Metadata[MetaCartID] == "changed" {
		t.Fatal("metadata must be copied")
	}
}
