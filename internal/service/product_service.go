package service

import (
	"context"

	"store-api/internal/models"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductPatch: поля, которые администратор может менять у товара. nil — не трогать.
type ProductPatch struct {
	Price *decimal.Decimal
	Stock *int32
}

type ProductService interface {
	List(ctx context.Context, f repository.ProductListFilter) ([]models.Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error)
}

type productService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewProductService(repo *repository.Repository, log *zap.Logger) ProductService {
	return &productService{repo: repo, log: log}
}

func (s *productService) List(ctx context.Context, f repository.ProductListFilter) ([]models.Product, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	return s.repo.Products.List(ctx, f)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// AdminUpdate меняет живую цену/остаток. Уже оформленные заказы это не затрагивает:
// в order_items хранится снимок цены.
func (s *productService) AdminUpdate(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		fields["price"] = patch.Price.Round(2)
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return nil, ErrInvalidQuantity
		}
		fields["stock"] = *patch.Stock
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return p, nil
	}

	if err := s.repo.Products.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	s.log.Info("product updated by admin",
		zap.String("product_id", id.String()),
		zap.String("admin_id", admin.UserID.String()),
		zap.Any("fields", fields),
	)
	return s.Get(ctx, id)
}
