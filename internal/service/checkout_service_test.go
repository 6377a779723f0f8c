package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"store-api/internal/payment"
	"store-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_EndToEnd(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	mug := e.product(t, "Mug", "10.00", 5)
	pen := e.product(t, "Pen", "5.00", 3)

	cartID := e.addToCart(t, u, mug.ID, 2)
	e.addToCart(t, u, pen.ID, 1)

	intent, err := e.payments.CreateIntent(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), intent.Amount)
	assert.Equal(t, "gbp", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)

	// не оплачен — заказ не создаётся, корзина не тронута
	_, err = e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.ErrorIs(t, err, service.ErrPaymentIncomplete)

	e.provider.Succeed(intent.IntentID)
	res, err := e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.NoError(t, err)
	require.False(t, res.Replayed)

	ord := res.Order
	assert.Equal(t, "25.00", ord.TotalAmount.StringFixed(2))
	assert.Equal(t, "GBP", ord.CurrencyCode)
	assert.Equal(t, "pending", string(ord.Status))
	require.NotNil(t, ord.PaymentIntentID)
	assert.Equal(t, intent.IntentID, *ord.PaymentIntentID)
	assert.Len(t, ord.Items, 2)

	assert.Equal(t, int32(3), e.stock(t, mug.ID))
	assert.Equal(t, int32(2), e.stock(t, pen.ID))

	lines, err := e.carts.GetItemsWithProductDetails(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// корзина та же, не пересоздаётся
	cart, err := e.carts.GetOrCreateCart(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, cartID, cart.ID)

	require.Len(t, e.events.Created, 1)
	assert.Equal(t, ord.ID, e.events.Created[0].OrderID)
}

func TestCheckout_ReplayReturnsSameOrder(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "replay@example.com")
	p := e.product(t, "Book", "7.50", 4)
	e.addToCart(t, u, p.ID, 2)
	intent := e.paidIntent(t, u)

	first, err := e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.NoError(t, err)

	second, err := e.checkout.CompleteOrder(ctx, u, " "+intent.IntentID+" ")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	// остаток списан один раз
	assert.Equal(t, int32(2), e.stock(t, p.ID))
	assert.Len(t, e.events.Created, 1)
}

func TestCheckout_ConcurrentDuplicatesCreateOneOrder(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "dup@example.com")
	p := e.product(t, "Cable", "3.00", 10)
	e.addToCart(t, u, p.ID, 3)
	intent := e.paidIntent(t, u)

	const n = 6
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[uuid.UUID]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.checkout.CompleteOrder(ctx, u, intent.IntentID)
			if err != nil {
				return
			}
			mu.Lock()
			ids[res.Order.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(ids), 1, "at most one order per payment intent")

	var count int64
	e.repo.DB.Table("orders").Where("payment_intent_id = ?", intent.IntentID).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int32(7), e.stock(t, p.ID))
}

func TestCheckout_StockConflictRollsBack(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "stock@example.com")
	p := e.product(t, "Scarf", "12.00", 2)
	cartID := e.addToCart(t, u, p.ID, 2)
	intent := e.paidIntent(t, u)

	// кто-то выкупил товар между оплатой и оформлением
	_, err := e.repo.Products.DecrementStock(ctx, p.ID, 1)
	require.NoError(t, err)

	_, err = e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.ErrorIs(t, err, service.ErrInsufficientStock)

	var se *service.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int32(1), se.Available)
	assert.Equal(t, int64(2), se.Requested)
	assert.Equal(t, "Scarf", se.ProductName)

	assert.Equal(t, int32(1), e.stock(t, p.ID))
	lines, _ := e.carts.GetItemsWithProductDetails(ctx, cartID)
	assert.Len(t, lines, 1)

	// интент не израсходован: после пополнения его можно использовать
	rec, err := e.repo.Payments.Get(ctx, intent.IntentID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCheckout_PriceFrozenAfterProductUpdate(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "frozen@example.com")
	admin := e.user(t, "admin-frozen@example.com")
	p := e.product(t, "Vase", "20.00", 5)
	e.addToCart(t, u, p.ID, 1)
	intent := e.paidIntent(t, u)

	res, err := e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("99.99")
	_, err = e.products.AdminUpdate(asAdmin(admin), p.ID, service.ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	items, err := e.repo.OrderItems.GetByOrderID(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "20.00", items[0].Price.StringFixed(2))

	ord, err := e.orders.GetMyOrder(asUser(u), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", ord.TotalAmount.StringFixed(2))
}

func TestCheckout_ForeignIntentForbidden(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner@example.com")
	thief := e.user(t, "thief@example.com")
	p := e.product(t, "Watch", "150.00", 1)
	e.addToCart(t, owner, p.ID, 1)
	intent := e.paidIntent(t, owner)

	_, err := e.checkout.CompleteOrder(ctx, thief, intent.IntentID)
	require.ErrorIs(t, err, service.ErrForbidden)
	assert.Equal(t, int32(1), e.stock(t, p.ID))

	// метаданные указывают на вора, но корзина чужая
	thiefCart, err := e.carts.GetOrCreateCart(ctx, thief)
	require.NoError(t, err)
	ownerCart, err := e.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	e.provider.Put(&payment.Intent{
		ID:             "pi_forged",
		Status:         payment.StatusSucceeded,
		Currency:       "gbp",
		Amount:         15000,
		AmountReceived: 15000,
		Metadata: map[string]string{
			payment.MetaUserID: thief.String(),
			payment.MetaCartID: ownerCart.ID.String(),
		},
	})
	_, err = e.checkout.CompleteOrder(ctx, thief, "pi_forged")
	require.ErrorIs(t, err, service.ErrForbidden)
	assert.NotEqual(t, thiefCart.ID, ownerCart.ID)

	// владелец по-прежнему может оформить
	res, err := e.checkout.CompleteOrder(ctx, owner, intent.IntentID)
	require.NoError(t, err)
	assert.Equal(t, owner, res.Order.UserID)
}

func TestCheckout_AmountMismatch(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "mismatch@example.com")
	p := e.product(t, "Hat", "8.00", 10)
	e.addToCart(t, u, p.ID, 1)
	intent := e.paidIntent(t, u)

	// корзина выросла после оплаты
	e.addToCart(t, u, p.ID, 1)

	_, err := e.checkout.CompleteOrder(ctx, u, intent.IntentID)
	require.ErrorIs(t, err, service.ErrPaymentAmountMismatch)
	assert.Equal(t, int32(10), e.stock(t, p.ID))
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	p := e.product(t, "Last ticket", "30.00", 1)

	users := []uuid.UUID{e.user(t, "a@example.com"), e.user(t, "b@example.com")}
	intents := make([]string, len(users))
	for i, u := range users {
		e.addToCart(t, u, p.ID, 1)
		intents[i] = e.paidIntent(t, u).IntentID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
	)
	for i, u := range users {
		wg.Add(1)
		go func(u uuid.UUID, intentID string) {
			defer wg.Done()
			_, err := e.checkout.CompleteOrder(ctx, u, intentID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, service.ErrInsufficientStock):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u, intents[i])
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, conflict)
	assert.Equal(t, int32(0), e.stock(t, p.ID))
}

func TestCheckout_EmptyCartAndMissingID(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "empty@example.com")

	_, err := e.payments.CreateIntent(ctx, u)
	require.ErrorIs(t, err, service.ErrEmptyCart)

	_, err = e.checkout.CompleteOrder(ctx, u, "   ")
	require.ErrorIs(t, err, service.ErrMissingIntentID)

	_, err = e.checkout.CompleteOrder(ctx, u, "pi_unknown")
	require.ErrorIs(t, err, service.ErrPaymentIntentInvalid)
}

func TestMaterializeCart(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "direct@example.com")
	other := e.user(t, "direct-other@example.com")
	p := e.product(t, "Plate", "4.25", 4)
	cartID := e.addToCart(t, u, p.ID, 3)

	_, err := e.checkout.MaterializeCart(ctx, cartID, other)
	require.ErrorIs(t, err, service.ErrForbidden)

	ord, err := e.checkout.MaterializeCart(ctx, cartID, u)
	require.NoError(t, err)
	assert.Equal(t, "12.75", ord.TotalAmount.StringFixed(2))
	assert.Nil(t, ord.PaymentIntentID)
	assert.Equal(t, int32(1), e.stock(t, p.ID))

	_, err = e.checkout.MaterializeCart(ctx, cartID, u)
	require.ErrorIs(t, err, service.ErrEmptyCart)
}
