package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"store-api/internal/migrate"
	"store-api/internal/models"
	"store-api/internal/payment"
	"store-api/internal/repository"
	"store-api/internal/service"
	"store-api/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MockProvider: платёжный провайдер в памяти. Интенты создаются в статусе
// requires_payment_method, тест «оплачивает» их через Succeed.
type MockProvider struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*payment.Intent

	CreateIntentFunc   func(ctx context.Context, p payment.CreateParams) (*payment.Intent, error)
	RetrieveIntentFunc func(ctx context.Context, id string) (*payment.Intent, error)
}

func NewMockProvider() *MockProvider {
	return &MockProvider{intents: map[string]*payment.Intent{}}
}

func (m *MockProvider) CreateIntent(ctx context.Context, p payment.CreateParams) (*payment.Intent, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("pi_test_%d", m.seq)
	meta := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}
	pi := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       payment.StatusRequiresPaymentMethod,
		Currency:     p.Currency,
		Amount:       p.Amount,
		Metadata:     meta,
	}
	m.intents[id] = pi
	cp := *pi
	return &cp, nil
}

func (m *MockProvider) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	if m.RetrieveIntentFunc != nil {
		return m.RetrieveIntentFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ok := m.intents[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := *pi
	return &cp, nil
}

// Succeed переводит интент в succeeded, как после подтверждения картой.
func (m *MockProvider) Succeed(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pi := m.intents[id]
	pi.Status = payment.StatusSucceeded
	pi.AmountReceived = pi.Amount
}

// Put кладёт произвольный интент, например с чужими метаданными.
func (m *MockProvider) Put(pi *payment.Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[pi.ID] = pi
}

// MockEvents собирает опубликованные события.
type MockEvents struct {
	mu      sync.Mutex
	Created []service.OrderCreatedEvent
	Changed []service.OrderStatusChangedEvent
	Deleted []service.OrderDeletedEvent
}

func (m *MockEvents) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, e)
	return nil
}

func (m *MockEvents) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Changed = append(m.Changed, e)
	return nil
}

func (m *MockEvents) PublishOrderDeleted(_ context.Context, e service.OrderDeletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, e)
	return nil
}

type env struct {
	repo     *repository.Repository
	provider *MockProvider
	events   *MockEvents
	carts    service.CartService
	payments service.PaymentService
	checkout service.CheckoutService
	orders   service.OrderService
	products service.ProductService
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateStoreDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := repository.New(db)
	provider := NewMockProvider()
	events := &MockEvents{}
	log := zap.NewNop()

	return &env{
		repo:     repo,
		provider: provider,
		events:   events,
		carts:    service.NewCartService(repo),
		payments: service.NewPaymentService(repo, provider, "gbp", log),
		checkout: service.NewCheckoutService(repo, provider, events, "gbp", log),
		orders:   service.NewOrderService(repo, events, log),
		products: service.NewProductService(repo, log),
	}
}

func (e *env) user(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &models.User{Email: email, Username: email, Role: models.RoleCustomer}
	if err := e.repo.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e *env) product(t *testing.T, name, price string, stock int32) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	if err := e.repo.Products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *env) addToCart(t *testing.T, userID, productID uuid.UUID, qty int32) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	cart, err := e.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if err := e.carts.AddOrUpdateItem(ctx, cart.ID, productID, qty); err != nil {
		t.Fatalf("AddOrUpdateItem: %v", err)
	}
	return cart.ID
}

// paidIntent создаёт интент по текущей корзине и сразу его «оплачивает».
func (e *env) paidIntent(t *testing.T, userID uuid.UUID) *service.IntentResult {
	t.Helper()
	res, err := e.payments.CreateIntent(context.Background(), userID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	e.provider.Succeed(res.IntentID)
	return res
}

func (e *env) stock(t *testing.T, id uuid.UUID) int32 {
	t.Helper()
	p, err := e.repo.Products.GetByID(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return p.Stock
}

func asUser(id uuid.UUID) context.Context {
	return service.WithIdentity(context.Background(), service.Identity{UserID: id, Role: service.RoleCustomer})
}

func asAdmin(id uuid.UUID) context.Context {
	return service.WithIdentity(context.Background(), service.Identity{UserID: id, Role: service.RoleAdmin})
}
