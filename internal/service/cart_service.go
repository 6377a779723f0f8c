package service

import (
	"context"
	"store-api/internal/models"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity ограничивает количество одного товара в корзине.
const MaxLineQuantity = 10000

type CartView struct {
	CartID     uuid.UUID
	Items      []repository.CartLine
	Total      decimal.Decimal
	TotalMinor int64
}

type CartService interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetItemsWithProductDetails(ctx context.Context, cartID uuid.UUID) ([]repository.CartLine, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)

	AddOrUpdateItem(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error
	UpdateItemQuantity(ctx context.Context, cartItemID, userID uuid.UUID, quantity int32) error
	RemoveItem(ctx context.Context, cartItemID, userID uuid.UUID) (bool, error)
}

type cartService struct {
	repo *repository.Repository
}

func NewCartService(repo *repository.Repository) CartService {
	return &cartService{repo: repo}
}

func (s *cartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	return s.repo.Carts.GetOrCreate(ctx, userID)
}

func (s *cartService) GetItemsWithProductDetails(ctx context.Context, cartID uuid.UUID) ([]repository.CartLine, error) {
	return s.repo.Carts.Lines(ctx, cartID)
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.GetItemsWithProductDetails(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []repository.CartLine{}
	}

	minor := TotalMinor(lines)
	return &CartView{
		CartID:     cart.ID,
		Items:      lines,
		Total:      FromMinorUnits(minor),
		TotalMinor: minor,
	}, nil
}

func (s *cartService) AddOrUpdateItem(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error {
	if quantity <= 0 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	return s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		// под блокировкой товара: добавления одной позиции идут по очереди
		p, err := tx.Products.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}

		want := int64(quantity)
		existing, err := tx.Carts.GetItem(ctx, cartID, productID)
		if err != nil {
			return err
		}
		if existing != nil {
			want += int64(existing.Quantity)
		}

		if want > int64(p.Stock) {
			return &StockError{ProductID: p.ID, ProductName: p.Name, Available: p.Stock, Requested: want}
		}
		if want > MaxLineQuantity {
			return ErrInvalidQuantity
		}

		return tx.Carts.UpsertItem(ctx, cartID, productID, int32(want))
	})
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cartItemID, userID uuid.UUID, quantity int32) error {
	if quantity < 0 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		ok, err := s.RemoveItem(ctx, cartItemID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCartItemNotFound
		}
		return nil
	}

	// выборка по JOIN с carts.user_id — это и поиск, и проверка владельца
	item, err := s.repo.Carts.GetItemForUser(ctx, cartItemID, userID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotFound
	}

	p, err := s.repo.Products.GetByID(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProductNotFound
	}
	if int64(quantity) > int64(p.Stock) {
		return &StockError{ProductID: p.ID, ProductName: p.Name, Available: p.Stock, Requested: int64(quantity)}
	}

	ok, err := s.repo.Carts.UpdateItemQuantityForUser(ctx, cartItemID, userID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, cartItemID, userID uuid.UUID) (bool, error) {
	return s.repo.Carts.DeleteItemForUser(ctx, cartItemID, userID)
}

// TotalMinor суммирует строки в минимальных единицах, без сложения десятичных цен.
func TotalMinor(lines []repository.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += LineMinor(l.Price, l.Quantity)
	}
	return total
}
