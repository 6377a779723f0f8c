package handlers

import (
	"net/http"
	"strconv"

	"store-api/internal/dto"
	"store-api/internal/repository"
	"store-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products service.ProductService
	log      *zap.Logger
}

func NewProductHandler(products service.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

// List godoc
// @Summary Каталог товаров
// @Tags products
// @Produce json
// @Param q query string false "Поиск по названию"
// @Param category_id query string false "Категория"
// @Param in_stock query bool false "Только в наличии"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.ListProductsResponse
// @Router /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	f := repository.ProductListFilter{Query: c.Query("q")}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid category_id",
				[]dto.FieldError{{Field: "category_id", Message: "must be a UUID", Tag: "uuid"}}))
			return
		}
		f.CategoryID = &id
	}
	f.InStock, _ = strconv.ParseBool(c.DefaultQuery("in_stock", "false"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.products.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]dto.ProductResponse, 0, len(list))
	for i := range list {
		out = append(out, toProductResponse(&list[i]))
	}
	c.JSON(http.StatusOK, dto.ListProductsResponse{Products: out, Total: total})
}

// Get godoc
// @Summary Товар по id
// @Tags products
// @Produce json
// @Param id path string true "ID товара"
// @Success 200 {object} dto.ProductResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

// AdminUpdate godoc
// @Summary Изменить цену или остаток товара (админ)
// @Description Уже оформленные заказы сохраняют свою цену
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID товара"
// @Param body body dto.UpdateProductRequest true "Новые значения"
// @Success 200 {object} dto.ProductResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /products/{id} [patch]
func (h *ProductHandler) AdminUpdate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	var patch service.ProductPatch
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeBindError(c, h.log, err)
			return
		}
		patch.Price = &price
	}
	patch.Stock = req.Stock

	p, err := h.products.AdminUpdate(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}
