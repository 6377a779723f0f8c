package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"not null"` // уникальность — функциональный индекс lower(email)
	Username     string    `gorm:"type:text;not null"`
	PasswordHash *string   `gorm:"type:text"` // nil для аккаунтов только через Google
	GoogleID     *string   `gorm:"type:text;uniqueIndex"`
	Role         Role      `gorm:"type:text;not null;default:'ROLE_CUSTOMER';index"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
	UpdatedAt    time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string { return "users" }

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"type:text;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Stock       int32           `gorm:"not null;default:0"` // CHECK stock >= 0 в миграции
	ImageURL    string          `gorm:"type:text"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

// Одна корзина на пользователя, создаётся лениво и никогда не удаляется.
type Cart struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_cart_items_cart_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	Quantity  int32     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (CartItem) TableName() string { return "cart_items" }

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order: неизменяемый снимок корзины; меняется только Status.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          OrderStatus     `gorm:"type:text;not null;default:'pending';index"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CurrencyCode    string          `gorm:"type:char(3);not null"`
	PaymentIntentID *string         `gorm:"type:text;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	Quantity  int32           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"` // цена на момент оформления

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// ProcessedPaymentIntent: журнал использованных платежей провайдера.
// PK по id интента гарантирует не более одного заказа на платёж.
type ProcessedPaymentIntent struct {
	ProviderIntentID string     `gorm:"type:text;primaryKey"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	CartID           uuid.UUID  `gorm:"type:uuid;not null"`
	OrderID          *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (ProcessedPaymentIntent) TableName() string { return "processed_payment_intents" }
