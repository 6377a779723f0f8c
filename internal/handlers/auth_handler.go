package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"store-api/internal/dto"
	"store-api/internal/models"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type authService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

type AuthHandler struct {
	auth         authService
	cookieName   string
	secureCookie bool
	log          *zap.Logger
}

func NewAuthHandler(auth authService, cookieName string, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		log:          log,
	}
}

// Register godoc
// @Summary Регистрация пользователя
// @Description Создаёт нового пользователя с ролью ROLE_CUSTOMER
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "Данные регистрации"
// @Success 201 {object} dto.RegisterResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 409 {object} dto.ConflictErrorResponse "Пользователь уже существует"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	u, err := h.auth.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		UserID:    u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Login godoc
// @Summary Вход
// @Description Выдаёт access-токен и ставит cookie сессии (если включён redis)
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Данные авторизации"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неверный email или пароль"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Warn("Неудачная попытка входа", zap.String("email", req.Email))
		}
		writeError(c, h.log, err)
		return
	}

	if res.SessionID != "" {
		maxAge := int(time.Until(res.SessionExpiresAt).Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, res.SessionID, maxAge, "/", "", h.secureCookie, true)
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		UserID:          res.User.ID.String(),
		Role:            string(res.User.Role),
		AccessToken:     res.AccessToken,
		AccessExpiresIn: int64(time.Until(res.AccessExpiresAt).Seconds()),
	})
}

// Logout godoc
// @Summary Выход
// @Description Удаляет серверную сессию и cookie
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if sid, err := c.Cookie(h.cookieName); err == nil && sid != "" {
		if err := h.auth.Logout(c.Request.Context(), sid); err != nil {
			writeError(c, h.log, err)
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}
