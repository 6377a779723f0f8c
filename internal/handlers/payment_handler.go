package handlers

import (
	"net/http"

	"store-api/internal/dto"
	"store-api/internal/middleware"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments service.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// CreateIntent godoc
// @Summary Создать платёжный интент для корзины
// @Description Сумма считается на сервере по корзине; тело запроса не нужно
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.CreateIntentResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Пустая корзина"
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Failure 502 {object} dto.BadGatewayErrorResponse
// @Failure 503 {object} dto.UnavailableErrorResponse
// @Router /payments/create-intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	res, err := h.payments.CreateIntent(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateIntentResponse{
		ClientSecret:    res.ClientSecret,
		Amount:          res.Amount,
		Currency:        res.Currency,
		PaymentIntentID: res.IntentID,
	})
}
