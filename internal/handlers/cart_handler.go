package handlers

import (
	"net/http"
	"strings"

	"store-api/internal/dto"
	"store-api/internal/middleware"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts    service.CartService
	currency string
	log      *zap.Logger
}

func NewCartHandler(carts service.CartService, currency string, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, currency: strings.ToLower(currency), log: log}
}

// GetCart godoc
// @Summary Корзина текущего пользователя
// @Description Живые цены товаров; сумма считается в минимальных единицах валюты
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CartResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	view, err := h.carts.GetCart(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(view, h.currency))
}

// AddItem godoc
// @Summary Добавить товар в корзину
// @Description Количество суммируется с уже лежащим в корзине; итог не может превышать остаток
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body dto.AddCartItemRequest true "Товар и количество"
// @Success 201 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeBindError(c, h.log, err)
		return
	}

	ctx := c.Request.Context()
	cart, err := h.carts.GetOrCreateCart(ctx, id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.carts.AddOrUpdateItem(ctx, cart.ID, productID, req.Quantity); err != nil {
		writeError(c, h.log, err)
		return
	}

	view, err := h.carts.GetCart(ctx, id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(view, h.currency))
}

// UpdateItem godoc
// @Summary Изменить количество позиции
// @Description quantity=0 удаляет позицию. Чужая позиция неотличима от несуществующей
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID позиции корзины"
// @Param item body dto.UpdateCartItemRequest true "Новое количество"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse
// @Router /cart/items/{id} [patch]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	itemID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.carts.UpdateItemQuantity(ctx, itemID, id.UserID, *req.Quantity); err != nil {
		writeError(c, h.log, err)
		return
	}
	view, err := h.carts.GetCart(ctx, id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(view, h.currency))
}

// RemoveItem godoc
// @Summary Удалить позицию из корзины
// @Tags cart
// @Security BearerAuth
// @Param id path string true "ID позиции корзины"
// @Success 204
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}
	itemID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	removed, err := h.carts.RemoveItem(c.Request.Context(), itemID, id.UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !removed {
		writeError(c, h.log, service.ErrCartItemNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
