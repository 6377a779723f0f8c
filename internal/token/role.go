package token

import (
	"strings"

	"store-api/internal/service"
)

// RoleFromClaims: единственное место, где внешние claims превращаются в роль.
// Понимает role, is_admin, isAdmin, scope (через пробел) и roles (массив).
// Всё, что не говорит явно об админе, — покупатель.
func RoleFromClaims(claims map[string]any) service.Role {
	if isAdminName(stringClaim(claims, "role")) {
		return service.RoleAdmin
	}
	if boolClaim(claims, "is_admin") || boolClaim(claims, "isAdmin") {
		return service.RoleAdmin
	}
	for _, s := range strings.Fields(stringClaim(claims, "scope")) {
		if isAdminName(s) {
			return service.RoleAdmin
		}
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok && isAdminName(s) {
				return service.RoleAdmin
			}
		}
	}
	return service.RoleCustomer
}

func isAdminName(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "role_admin":
		return true
	}
	return false
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	case float64:
		return v == 1
	}
	return false
}
