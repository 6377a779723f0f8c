package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"store-api/internal/dto"
	"store-api/internal/handlers"
	"store-api/internal/models"
	"store-api/internal/payment"
	"store-api/internal/repository"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type MockCheckout struct {
	CompleteOrderFunc   func(ctx context.Context, userID uuid.UUID, intentID string) (*service.CompletedOrder, error)
	MaterializeCartFunc func(ctx context.Context, cartID, userID uuid.UUID) (*models.Order, error)
}

func (m *MockCheckout) CompleteOrder(ctx context.Context, userID uuid.UUID, intentID string) (*service.CompletedOrder, error) {
	return m.CompleteOrderFunc(ctx, userID, intentID)
}

func (m *MockCheckout) MaterializeCart(ctx context.Context, cartID, userID uuid.UUID) (*models.Order, error) {
	return m.MaterializeCartFunc(ctx, cartID, userID)
}

type MockOrders struct {
	service.OrderService
	GetMyOrderFunc  func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	DeleteOrderFunc func(ctx context.Context, id uuid.UUID) (service.DeleteOutcome, error)
}

func (m *MockOrders) GetMyOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.GetMyOrderFunc(ctx, id)
}

func (m *MockOrders) DeleteOrder(ctx context.Context, id uuid.UUID) (service.DeleteOutcome, error) {
	return m.DeleteOrderFunc(ctx, id)
}

type MockCarts struct {
	service.CartService
	AddOrUpdateItemFunc func(ctx context.Context, cartID, productID uuid.UUID, qty int32) error
}

func (m *MockCarts) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (m *MockCarts) AddOrUpdateItem(ctx context.Context, cartID, productID uuid.UUID, qty int32) error {
	return m.AddOrUpdateItemFunc(ctx, cartID, productID, qty)
}

func (m *MockCarts) GetCart(ctx context.Context, userID uuid.UUID) (*service.CartView, error) {
	return &service.CartView{CartID: uuid.New(), Items: []repository.CartLine{}}, nil
}

// withUser имитирует шлюз аутентификации.
func withUser(id service.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.BaseError {
	t.Helper()
	var e dto.BaseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func sampleOrder(userID uuid.UUID) *models.Order {
	intent := "pi_1"
	return &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalAmount:     decimal.RequireFromString("25"),
		CurrencyCode:    "GBP",
		PaymentIntentID: &intent,
	}
}

func TestOrderHandler_Complete(t *testing.T) {
	user := service.Identity{UserID: uuid.New(), Role: service.RoleCustomer}
	ord := sampleOrder(user.UserID)
	replayed := false

	checkout := &MockCheckout{
		CompleteOrderFunc: func(ctx context.Context, userID uuid.UUID, intentID string) (*service.CompletedOrder, error) {
			if userID != user.UserID {
				return nil, service.ErrForbidden
			}
			switch intentID {
			case "":
				return nil, service.ErrMissingIntentID
			case "pi_1":
				return &service.CompletedOrder{Order: ord, Replayed: replayed}, nil
			case "pi_stock":
				return nil, &service.StockError{ProductID: uuid.New(), ProductName: "Mug", Available: 1, Requested: 2}
			case "pi_down":
				return nil, fmt.Errorf("%w: %v", service.ErrPaymentUnavailable, payment.ErrUnavailable)
			case "pi_bad":
				return nil, fmt.Errorf("%w: %v", service.ErrPaymentProvider, payment.ErrRejected)
			case "pi_pending":
				return nil, service.ErrPaymentIncomplete
			}
			return nil, service.ErrPaymentIntentInvalid
		},
	}
	h := handlers.NewOrderHandler(checkout, &MockOrders{}, zap.NewNop())
	r := gin.New()
	r.POST("/orders/complete", withUser(user), h.Complete)

	t.Run("created", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_1"})
		require.Equal(t, http.StatusCreated, w.Code)
		var resp dto.CompleteOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ord.ID.String(), resp.OrderID)
		assert.Equal(t, "25.00", resp.TotalAmount)
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("replayed", func(t *testing.T) {
		replayed = true
		defer func() { replayed = false }()
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_1"})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, "validation_error", e.Code)
		require.Len(t, e.Fields, 1)
		assert.Equal(t, "paymentIntentId", e.Fields[0].Field)
	})

	t.Run("stock conflict", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_stock"})
		require.Equal(t, http.StatusConflict, w.Code)
		var body struct {
			Code    string                   `json:"code"`
			Details dto.StockConflictDetails `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "insufficient_stock", body.Code)
		assert.Equal(t, int32(1), body.Details.Available)
		assert.Equal(t, int64(2), body.Details.Requested)
		assert.Equal(t, "Mug", body.Details.ProductName)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_down"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("provider error", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_bad"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("not succeeded", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_pending"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "payment_incomplete", decodeError(t, w).Code)
	})

	t.Run("unknown intent", func(t *testing.T) {
		w := do(r, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		bare := gin.New()
		bare.POST("/orders/complete", h.Complete)
		w := do(bare, http.MethodPost, "/orders/complete", map[string]string{"paymentIntentId": "pi_1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOrderHandler_ErrorMapping(t *testing.T) {
	user := service.Identity{UserID: uuid.New(), Role: service.RoleCustomer}
	ord := sampleOrder(user.UserID)

	orders := &MockOrders{
		GetMyOrderFunc: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			if id == ord.ID {
				return ord, nil
			}
			return nil, service.ErrOrderNotFound
		},
		DeleteOrderFunc: func(ctx context.Context, id uuid.UUID) (service.DeleteOutcome, error) {
			switch id {
			case ord.ID:
				return service.OrderCancelled, nil
			}
			return 0, service.ErrStatusChanged
		},
	}
	h := handlers.NewOrderHandler(&MockCheckout{}, orders, zap.NewNop())
	r := gin.New()
	r.GET("/orders/:id", withUser(user), h.GetMine)
	r.DELETE("/orders/:id", withUser(user), h.Delete)

	w := do(r, http.MethodGet, "/orders/"+ord.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details dto.OrderDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.Equal(t, ord.ID.String(), details.Order.ID)
	assert.Equal(t, "25.00", details.Order.TotalAmount)

	w = do(r, http.MethodGet, "/orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/orders/"+ord.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartHandler_AddItem(t *testing.T) {
	user := service.Identity{UserID: uuid.New(), Role: service.RoleCustomer}
	carts := &MockCarts{
		AddOrUpdateItemFunc: func(ctx context.Context, cartID, productID uuid.UUID, qty int32) error {
			if qty > 3 {
				return &service.StockError{ProductID: productID, ProductName: "Pen", Available: 3, Requested: int64(qty)}
			}
			return nil
		},
	}
	h := handlers.NewCartHandler(carts, "gbp", zap.NewNop())
	r := gin.New()
	r.POST("/cart/items", withUser(user), h.AddItem)

	w := do(r, http.MethodPost, "/cart/items", map[string]any{"productId": uuid.NewString(), "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/cart/items", map[string]any{"productId": uuid.NewString(), "quantity": 5})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_stock", decodeError(t, w).Code)

	w = do(r, http.MethodPost, "/cart/items", map[string]any{"productId": "nope", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/cart/items", map[string]any{"productId": uuid.NewString(), "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
