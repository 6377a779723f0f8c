package token

import (
	"context"
	"testing"
	"time"

	"store-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestRoleFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   service.Role
	}{
		{"empty", map[string]any{}, service.RoleCustomer},
		{"role admin", map[string]any{"role": "admin"}, service.RoleAdmin},
		{"role ROLE_ADMIN", map[string]any{"role": "ROLE_ADMIN"}, service.RoleAdmin},
		{"role customer", map[string]any{"role": "ROLE_CUSTOMER"}, service.RoleCustomer},
		{"is_admin bool", map[string]any{"is_admin": true}, service.RoleAdmin},
		{"isAdmin string", map[string]any{"isAdmin": "true"}, service.RoleAdmin},
		{"is_admin false", map[string]any{"is_admin": false}, service.RoleCustomer},
		{"scope", map[string]any{"scope": "read write admin"}, service.RoleAdmin},
		{"scope without admin", map[string]any{"scope": "read administrator"}, service.RoleCustomer},
		{"roles array", map[string]any{"roles": []any{"user", "Role_Admin"}}, service.RoleAdmin},
		{"roles wrong type", map[string]any{"roles": "admin"}, service.RoleCustomer},
		{"role wrong type", map[string]any{"role": 1}, service.RoleCustomer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleFromClaims(tt.claims); got != tt.want {
				t.Fatalf("RoleFromClaims(%v) = %s, want %s", tt.claims, got, tt.want)
			}
		})
	}
}

func TestHSProvider_RoundTrip(t *testing.T) {
	p := NewHSProvider("secret", "store-api", "store-clients")
	uid := uuid.New()

	tok, exp, err := p.SignAccess(context.Background(), uid, service.RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	claims, err := p.ParseAndValidateAccess(context.Background(), tok)
	if err != nil {
		t.Fatalf("ParseAndValidateAccess: %v", err)
	}
	if claims.UserID != uid || claims.Role != service.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.Exp.Equal(exp.Truncate(time.Second)) {
		t.Fatalf("exp mismatch: %v vs %v", claims.Exp, exp)
	}
}

func TestHSProvider_Rejects(t *testing.T) {
	p := NewHSProvider("secret", "store-api", "store-clients")
	uid := uuid.New()
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		past := NewHSProvider("secret", "store-api", "store-clients")
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, _, err := past.SignAccess(ctx, uid, service.RoleCustomer, time.Minute)
		if err != nil {
			t.Fatalf("SignAccess: %v", err)
		}
		if _, err := p.ParseAndValidateAccess(ctx, tok); err == nil {
			t.Fatal("expected expired token to be rejected")
		}
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewHSProvider("other", "store-api", "store-clients")
		tok, _, _ := other.SignAccess(ctx, uid, service.RoleCustomer, time.Minute)
		if _, err := p.ParseAndValidateAccess(ctx, tok); err == nil {
			t.Fatal("expected signature mismatch")
		}
	})

	t.Run("other audience", func(t *testing.T) {
		other := NewHSProvider("secret", "store-api", "someone-else")
		tok, _, _ := other.SignAccess(ctx, uid, service.RoleCustomer, time.Minute)
		if _, err := p.ParseAndValidateAccess(ctx, tok); err == nil {
			t.Fatal("expected audience mismatch")
		}
	})

	t.Run("no exp", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uid.String(),
			"iss": "store-api",
			"aud": "store-clients",
		})
		tok, _ := raw.SignedString([]byte("secret"))
		if _, err := p.ParseAndValidateAccess(ctx, tok); err == nil {
			t.Fatal("expected token without exp to be rejected")
		}
	})

	t.Run("foreign admin flag", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":      uid.String(),
			"iss":      "store-api",
			"aud":      "store-clients",
			"exp":      time.Now().Add(time.Minute).Unix(),
			"is_admin": true,
		})
		tok, _ := raw.SignedString([]byte("secret"))
		claims, err := p.ParseAndValidateAccess(ctx, tok)
		if err != nil {
			t.Fatalf("ParseAndValidateAccess: %v", err)
		}
		if claims.Role != service.RoleAdmin {
			t.Fatalf("expected admin from is_admin claim, got %s", claims.Role)
		}
	})
}
