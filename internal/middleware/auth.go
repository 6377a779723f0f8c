package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"store-api/internal/dto"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ключи gin-контекста с данными пользователя
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (service.Identity, error)
	AuthenticateSession(ctx context.Context, sessionID string) (service.Identity, error)
}

// AuthRequired принимает Bearer-токен или cookie сессии. Найденная личность кладётся
// и в gin-контекст, и в context запроса (service.WithIdentity) для сервисного слоя.
func AuthRequired(auth Authenticator, cookieName string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			id  service.Identity
			err error
		)
		if authz := c.GetHeader("Authorization"); authz != "" {
			token, ok := ExtractBearerToken(authz)
			if !ok || token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
				return
			}
			id, err = auth.AuthenticateBearer(ctx, token)
		} else if sid, cerr := c.Cookie(cookieName); cerr == nil && sid != "" {
			id, err = auth.AuthenticateSession(ctx, sid)
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
			return
		}

		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				log.Error("authentication backend failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid credentials"))
			return
		}

		c.Set(CtxUserID, id.UserID)
		c.Set(CtxUserRole, id.Role)
		c.Request = c.Request.WithContext(service.WithIdentity(ctx, id))
		c.Next()
	}
}

// AdminOnly ставится после AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxUserRole)
		if r, ok := role.(service.Role); !ok || r != service.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("admin role required"))
			return
		}
		c.Next()
	}
}

// IdentityFromGin достаёт личность, положенную AuthRequired.
func IdentityFromGin(c *gin.Context) (service.Identity, bool) {
	return identityFromContext(c.Request.Context())
}

func identityFromContext(ctx context.Context) (service.Identity, bool) {
	uid, ok := service.UserIDFromContext(ctx)
	if !ok {
		return service.Identity{}, false
	}
	role, ok := service.RoleFromContext(ctx)
	if !ok {
		role = service.RoleCustomer
	}
	return service.Identity{UserID: uid, Role: role}, true
}

// ExtractBearerToken извлекает токен из заголовка Authorization, устойчиво к лишним символам:
// "Bearer abc.def.ghi", "Bearer \"abc.def.ghi\"", "Bearer abc.def.ghi, extra".
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
