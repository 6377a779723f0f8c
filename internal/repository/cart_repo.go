package repository

import (
	"context"
	"errors"
	"store-api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartLine: позиция корзины вместе с живыми данными товара.
// Единственная форма, в которой корзина выходит за пределы слоя хранения.
type CartLine struct {
	CartItemID uuid.UUID       `gorm:"column:cart_item_id"`
	ProductID  uuid.UUID       `gorm:"column:product_id"`
	Name       string          `gorm:"column:name"`
	Price      decimal.Decimal `gorm:"column:price"`
	ImageURL   string          `gorm:"column:image_url"`
	Quantity   int32           `gorm:"column:quantity"`
	Stock      int32           `gorm:"column:stock"`
}

const cartLinesSQL = `
SELECT ci.id AS cart_item_id,
       p.id AS product_id,
       p.name,
       p.price,
       p.image_url,
       ci.quantity,
       p.stock
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = ?
ORDER BY p.id`

type CartRepo interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)

	Lines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error)
	// LockLines: то же, что Lines, но с блокировкой строк cart_items и products (FOR UPDATE).
	LockLines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error)

	GetItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	GetItemForUser(ctx context.Context, itemID, userID uuid.UUID) (*models.CartItem, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int32) error
	UpdateItemQuantityForUser(ctx context.Context, itemID, userID uuid.UUID, qty int32) (bool, error)
	DeleteItemForUser(ctx context.Context, itemID, userID uuid.UUID) (bool, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&models.Cart{UserID: userID}).Error
	if err != nil {
		return nil, err
	}

	var c models.Cart
	if err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *cartRepo) Lines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error) {
	var rows []CartLine
	err := r.db.WithContext(ctx).Raw(cartLinesSQL, cartID).Scan(&rows).Error
	return rows, err
}

func (r *cartRepo) LockLines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error) {
	var rows []CartLine
	// порядок по product_id — чтобы конкурирующие транзакции брали блокировки товаров в одном порядке
	err := r.db.WithContext(ctx).Raw(cartLinesSQL+"\nFOR UPDATE", cartID).Scan(&rows).Error
	return rows, err
}

func (r *cartRepo) GetItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).First(&it, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartRepo) GetItemForUser(ctx context.Context, itemID, userID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartRepo) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int32) error {
	rec := models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": qty}),
		}).
		Create(&rec).Error
}

func (r *cartRepo) UpdateItemQuantityForUser(ctx context.Context, itemID, userID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE cart_items ci
SET quantity = @q
FROM carts c
WHERE ci.id = @id
  AND ci.cart_id = c.id
  AND c.user_id = @uid
`, map[string]any{
		"id":  itemID,
		"uid": userID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) DeleteItemForUser(ctx context.Context, itemID, userID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
DELETE FROM cart_items ci
USING carts c
WHERE ci.id = @id
  AND ci.cart_id = c.id
  AND c.user_id = @uid
`, map[string]any{
		"id":  itemID,
		"uid": userID,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}
