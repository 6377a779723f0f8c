package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"store-api/internal/service"

	"github.com/google/uuid"
)

func TestCartService_AddMergesQuantities(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "merge@example.com")
	p := e.product(t, "Cup", "2.50", 10)

	e.addToCart(t, u, p.ID, 2)
	e.addToCart(t, u, p.ID, 3)

	view, err := e.carts.GetCart(ctx, u)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(view.Items))
	}
	if view.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", view.Items[0].Quantity)
	}
	if view.TotalMinor != 1250 || view.Total.StringFixed(2) != "12.50" {
		t.Fatalf("unexpected total: %d %s", view.TotalMinor, view.Total.StringFixed(2))
	}
}

func TestCartService_ConcurrentAddsAccumulate(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "double@example.com")
	p := e.product(t, "Mug", "4.00", 20)
	cart, err := e.carts.GetOrCreateCart(ctx, u)
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	e.addToCart(t, u, p.ID, 1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.carts.AddOrUpdateItem(ctx, cart.ID, p.ID, 2)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddOrUpdateItem: %v", err)
		}
	}

	view, err := e.carts.GetCart(ctx, u)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 1+2*workers {
		t.Fatalf("expected one line with quantity %d, got %+v", 1+2*workers, view.Items)
	}
}

func TestCartService_AddRejections(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "reject@example.com")
	p := e.product(t, "Rare", "1.00", 2)
	cart, _ := e.carts.GetOrCreateCart(ctx, u)

	if err := e.carts.AddOrUpdateItem(ctx, cart.ID, p.ID, 0); !errors.Is(err, service.ErrInvalidQuantity) {
		t.Fatalf("zero quantity: expected ErrInvalidQuantity, got %v", err)
	}
	if err := e.carts.AddOrUpdateItem(ctx, cart.ID, uuid.New(), 1); !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("unknown product: expected ErrProductNotFound, got %v", err)
	}

	e.addToCart(t, u, p.ID, 2)
	err := e.carts.AddOrUpdateItem(ctx, cart.ID, p.ID, 1)
	var se *service.StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if se.Available != 2 || se.Requested != 3 {
		t.Fatalf("unexpected stock error: %+v", se)
	}
}

func TestCartService_UpdateAndRemoveAreOwnerScoped(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.user(t, "cart-owner@example.com")
	other := e.user(t, "cart-other@example.com")
	p := e.product(t, "Bowl", "6.00", 5)
	cartID := e.addToCart(t, owner, p.ID, 1)

	lines, _ := e.carts.GetItemsWithProductDetails(ctx, cartID)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	itemID := lines[0].CartItemID

	if err := e.carts.UpdateItemQuantity(ctx, itemID, other, 2); !errors.Is(err, service.ErrCartItemNotFound) {
		t.Fatalf("foreign update: expected ErrCartItemNotFound, got %v", err)
	}
	if ok, _ := e.carts.RemoveItem(ctx, itemID, other); ok {
		t.Fatal("foreign remove must fail")
	}

	var se *service.StockError
	if err := e.carts.UpdateItemQuantity(ctx, itemID, owner, 6); !errors.As(err, &se) {
		t.Fatalf("over stock: expected StockError, got %v", err)
	}
	if err := e.carts.UpdateItemQuantity(ctx, itemID, owner, 4); err != nil {
		t.Fatalf("UpdateItemQuantity: %v", err)
	}
	lines, _ = e.carts.GetItemsWithProductDetails(ctx, cartID)
	if lines[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", lines[0].Quantity)
	}

	// ноль удаляет строку
	if err := e.carts.UpdateItemQuantity(ctx, itemID, owner, 0); err != nil {
		t.Fatalf("UpdateItemQuantity(0): %v", err)
	}
	lines, _ = e.carts.GetItemsWithProductDetails(ctx, cartID)
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(lines))
	}
	if err := e.carts.UpdateItemQuantity(ctx, itemID, owner, 0); !errors.Is(err, service.ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestCartService_GetCartCreatesLazily(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	u := e.user(t, "lazy@example.com")

	view, err := e.carts.GetCart(ctx, u)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if view.CartID == uuid.Nil || len(view.Items) != 0 || view.TotalMinor != 0 {
		t.Fatalf("unexpected empty view: %+v", view)
	}

	if _, err := e.carts.GetCart(ctx, uuid.Nil); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
