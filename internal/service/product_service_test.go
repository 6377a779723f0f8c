package service_test

import (
	"context"
	"testing"

	"store-api/internal/repository"
	"store-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_AdminUpdate(t *testing.T) {
	e := setupEnv(t)
	u := e.user(t, "shopper@example.com")
	admin := e.user(t, "products-admin@example.com")
	p := e.product(t, "Kettle", "25.00", 4)

	price := decimal.RequireFromString("19.999")
	stock := int32(12)

	_, err := e.products.AdminUpdate(asUser(u), p.ID, service.ProductPatch{Price: &price})
	require.ErrorIs(t, err, service.ErrForbidden)

	got, err := e.products.AdminUpdate(asAdmin(admin), p.ID, service.ProductPatch{Price: &price, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Price.StringFixed(2))
	assert.Equal(t, int32(12), got.Stock)

	neg := decimal.NewFromInt(-1)
	_, err = e.products.AdminUpdate(asAdmin(admin), p.ID, service.ProductPatch{Price: &neg})
	require.ErrorIs(t, err, service.ErrInvalidPrice)

	negStock := int32(-1)
	_, err = e.products.AdminUpdate(asAdmin(admin), p.ID, service.ProductPatch{Stock: &negStock})
	require.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = e.products.AdminUpdate(asAdmin(admin), uuid.New(), service.ProductPatch{Stock: &stock})
	require.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestProductService_ListAndGet(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.product(t, "Alpha", "1.00", 1)
	b := e.product(t, "Beta", "2.00", 0)

	list, total, err := e.products.List(ctx, repository.ProductListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	got, err := e.products.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta", got.Name)

	_, err = e.products.Get(ctx, uuid.New())
	require.ErrorIs(t, err, service.ErrProductNotFound)
}
