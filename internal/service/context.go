package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
)

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

// Identity: то, что отдаёт шлюз аутентификации: кто и с какой ролью.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return WithRole(WithUserID(ctx, id.UserID), id.Role)
}

func requireAuth(ctx context.Context) (Identity, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid == uuid.Nil {
		return Identity{}, ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		role = RoleCustomer
	}
	return Identity{UserID: uid, Role: role}, nil
}
