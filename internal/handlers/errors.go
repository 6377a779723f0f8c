package handlers

import (
	"errors"
	"net/http"
	"strings"

	"store-api/internal/dto"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError: единая точка перевода ошибок сервисного слоя в HTTP.
// Клиент получает короткое сообщение; подробности только в логе.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var stockErr *service.StockError
	switch {
	case errors.As(err, &stockErr):
		log.Warn("insufficient stock",
			zap.String("product_id", stockErr.ProductID.String()),
			zap.Int32("available", stockErr.Available),
			zap.Int64("requested", stockErr.Requested),
		)
		c.JSON(http.StatusConflict, dto.NewStockConflictError(stockErr.Error(), dto.StockConflictDetails{
			ProductID:   stockErr.ProductID.String(),
			ProductName: stockErr.ProductName,
			Available:   stockErr.Available,
			Requested:   stockErr.Requested,
		}))

	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid email or password"))

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("access denied"))
	case errors.Is(err, service.ErrOrderNotPending):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("only pending orders can be cancelled"))

	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))

	case errors.Is(err, service.ErrStatusChanged):
		c.JSON(http.StatusConflict, dto.NewConflictError("order status changed, reload and try again"))
	case errors.Is(err, service.ErrEmailExists):
		c.JSON(http.StatusConflict, dto.NewConflictError("user with this email already exists"))
	case errors.Is(err, service.ErrPaymentAmountMismatch):
		log.Warn("paid amount differs from cart total", zap.Error(err))
		c.JSON(http.StatusConflict, dto.NewConflictError("cart changed after payment was started"))

	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, dto.NewBadRequestError("empty_cart", "cart is empty"))
	case errors.Is(err, service.ErrMissingIntentID):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("paymentIntentId is required",
			[]dto.FieldError{{Field: "paymentIntentId", Message: "required", Tag: "required"}}))
	case errors.Is(err, service.ErrPaymentIncomplete):
		c.JSON(http.StatusBadRequest, dto.NewBadRequestError("payment_incomplete", "payment has not succeeded"))
	case errors.Is(err, service.ErrUnsupportedCurrency):
		c.JSON(http.StatusBadRequest, dto.NewBadRequestError("unsupported_currency", "unsupported currency"))
	case errors.Is(err, service.ErrMissingMetadata):
		c.JSON(http.StatusBadRequest, dto.NewBadRequestError("missing_metadata", "payment intent is not bound to a cart"))
	case errors.Is(err, service.ErrPaymentIntentInvalid):
		c.JSON(http.StatusBadRequest, dto.NewBadRequestError("invalid_payment_intent", "payment intent not found"))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))

	case errors.Is(err, service.ErrPaymentUnavailable):
		log.Error("payment provider unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.NewUnavailableError())
	case errors.Is(err, service.ErrPaymentProvider):
		log.Error("payment provider error", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewBadGatewayError())

	default:
		log.Error("internal error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.NewInternalError())
	}
}

// writeBindError превращает ошибки binding/validator в 400 с полями.
func writeBindError(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	fields := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, dto.FieldError{
			Field:   lowerFirst(fe.Field()),
			Message: "failed on '" + fe.Tag() + "'",
			Tag:     fe.Tag(),
		})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid id",
			[]dto.FieldError{{Field: name, Message: "must be a UUID", Tag: "uuid"}}))
		return uuid.Nil, false
	}
	return id, true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
