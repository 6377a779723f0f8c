package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
}

// StripeProvider: клиент Stripe, создаётся один раз в main и передаётся в сервисы.
type StripeProvider struct {
	api     *client.API
	timeout time.Duration
	log     *zap.Logger
}

func NewStripeProvider(cfg StripeConfig, log *zap.Logger) *StripeProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		// повторы внутри одного запроса запрещены: клиент сам решает, повторять ли
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     log.Sugar(),
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &StripeProvider{api: api, timeout: cfg.Timeout, log: log}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, in CreateParams) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, p.mapError(ctx, "create", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, p.mapError(ctx, "retrieve", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) mapError(ctx context.Context, op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		p.log.Warn("stripe request failed",
			zap.String("op", op),
			zap.Int("http_status", se.HTTPStatusCode),
			zap.String("code", string(se.Code)),
			zap.String("type", string(se.Type)),
			zap.String("request_id", se.RequestID),
			zap.Error(err),
		)
		switch {
		case se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, se.Msg)
		case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %s", ErrUnavailable, se.Msg)
		default:
			return fmt.Errorf("%w: %s", ErrRejected, se.Msg)
		}
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
		p.log.Warn("stripe request timed out", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.log.Error("stripe transport error", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// fromStripe: единственное место, где объект Stripe превращается во внутренний Intent.
func fromStripe(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	md := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		md[k] = strings.TrimSpace(v)
	}
	return &Intent{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Status:         Status(pi.Status),
		Currency:       strings.ToLower(string(pi.Currency)),
		Amount:         pi.Amount,
		AmountReceived: pi.AmountReceived,
		Metadata:       md,
	}
}
