package repository

import (
	"context"
	"errors"
	"store-api/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentLedgerRepo interface {
	// Claim пытается занять id интента. false — интент уже был использован.
	// Конкурирующая транзакция ждёт на уникальном ключе до коммита/отката первой.
	Claim(ctx context.Context, rec *models.ProcessedPaymentIntent) (bool, error)
	Get(ctx context.Context, intentID string) (*models.ProcessedPaymentIntent, error)
	AttachOrder(ctx context.Context, intentID string, orderID uuid.UUID) error
}

type paymentLedgerRepo struct{ db *gorm.DB }

func NewPaymentLedgerRepo(db *gorm.DB) PaymentLedgerRepo { return &paymentLedgerRepo{db: db} }

func (r *paymentLedgerRepo) Claim(ctx context.Context, rec *models.ProcessedPaymentIntent) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_intent_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if tx.Error != nil {
		if IsUniqueViolation(tx.Error) {
			return false, nil
		}
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *paymentLedgerRepo) Get(ctx context.Context, intentID string) (*models.ProcessedPaymentIntent, error) {
	var rec models.ProcessedPaymentIntent
	err := r.db.WithContext(ctx).First(&rec, "provider_intent_id = ?", intentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rec, err
}

func (r *paymentLedgerRepo) AttachOrder(ctx context.Context, intentID string, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProcessedPaymentIntent{}).
		Where("provider_intent_id = ?", intentID).
		Update("order_id", orderID).Error
}

// IsUniqueViolation распознаёт нарушение UNIQUE как после TranslateError, так и «сырое» от pgx.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
