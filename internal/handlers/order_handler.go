package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"store-api/internal/dto"
	"store-api/internal/middleware"
	"store-api/internal/models"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	log      *zap.Logger
}

func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, log: log}
}

// Complete godoc
// @Summary Оформить заказ по оплаченному интенту
// @Description Интент перепроверяется у провайдера. Повторный вызов с тем же интентом возвращает тот же заказ (200)
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CompleteOrderRequest true "ID платёжного интента"
// @Success 201 {object} dto.CompleteOrderResponse
// @Success 200 {object} dto.CompleteOrderResponse "Заказ уже был создан"
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse "Интент другого пользователя или корзины"
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Failure 503 {object} dto.UnavailableErrorResponse
// @Router /orders/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	var req dto.CompleteOrderRequest
	// пустое тело — то же, что отсутствующий paymentIntentId
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBindError(c, h.log, err)
		return
	}

	res, err := h.checkout.CompleteOrder(c.Request.Context(), id.UserID, req.PaymentIntentID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, dto.CompleteOrderResponse{
		OrderID:     res.Order.ID.String(),
		TotalAmount: res.Order.TotalAmount.StringFixed(2),
		Status:      string(res.Order.Status),
		Currency:    res.Order.CurrencyCode,
	})
}

// ListMine godoc
// @Summary Мои заказы
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.ListOrdersResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.orders.ListMyOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(orders, total, f))
}

// GetMine godoc
// @Summary Мой заказ
// @Description Чужой заказ возвращает 404, как и несуществующий
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderDetailsResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetMine(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	ord, err := h.orders.GetMyOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDetails(ord))
}

// UpdateStatus godoc
// @Summary Сменить статус заказа (админ)
// @Description Любой статус из любого
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param body body dto.UpdateOrderStatusRequest true "Новый статус"
// @Success 200 {object} dto.OrderEnvelope
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/{id} [patch]
// @Router /orders/admin/orders/{id} [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	ord, err := h.orders.AdminUpdateStatus(c.Request.Context(), orderID, models.OrderStatus(req.Status))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderEnvelope{Order: toOrderResponse(ord)})
}

// Delete godoc
// @Summary Отменить (владелец) или удалить (админ) заказ
// @Description Владелец может отменить только заказ в статусе pending; при гонке со сменой статуса — 409
// @Tags orders
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 204
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse
// @Router /orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdminList godoc
// @Summary Все заказы (админ)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.ListOrdersResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Router /orders/admin/orders [get]
func (h *OrderHandler) AdminList(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.orders.AdminListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(orders, total, f))
}

// AdminGet godoc
// @Summary Заказ по id (админ)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderDetailsResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/admin/orders/{id} [get]
func (h *OrderHandler) AdminGet(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	ord, err := h.orders.AdminGetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDetails(ord))
}

func (h *OrderHandler) listFilter(c *gin.Context) (service.ListFilter, bool) {
	var f service.ListFilter
	if s := c.Query("status"); s != "" {
		st := models.OrderStatus(s)
		if !st.Valid() {
			writeError(c, h.log, service.ErrInvalidStatus)
			return f, false
		}
		f.Status = &st
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, true
}

func toListResponse(orders []models.Order, total int64, f service.ListFilter) dto.ListOrdersResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return dto.ListOrdersResponse{Orders: out, Total: total, Limit: f.Limit, Offset: f.Offset}
}
