package handlers

import (
	"time"

	"store-api/internal/dto"
	"store-api/internal/models"
	"store-api/internal/repository"
	"store-api/internal/service"
)

func toOrderResponse(o *models.Order) dto.OrderResponse {
	r := dto.OrderResponse{
		ID:          o.ID.String(),
		UserID:      o.UserID.String(),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Currency:    o.CurrencyCode,
		CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if o.PaymentIntentID != nil {
		r.PaymentIntentID = *o.PaymentIntentID
	}
	return r
}

func toOrderDetails(o *models.Order) dto.OrderDetailsResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        it.ID.String(),
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}
	return dto.OrderDetailsResponse{Order: toOrderResponse(o), Items: items}
}

func toCartResponse(v *service.CartView, currency string) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(v.Items))
	for _, l := range v.Items {
		items = append(items, toCartItem(l))
	}
	return dto.CartResponse{
		CartID:     v.CartID.String(),
		Items:      items,
		Total:      v.Total.StringFixed(2),
		TotalMinor: v.TotalMinor,
		Currency:   currency,
	}
}

func toCartItem(l repository.CartLine) dto.CartItemResponse {
	return dto.CartItemResponse{
		CartItemID: l.CartItemID.String(),
		ProductID:  l.ProductID.String(),
		Name:       l.Name,
		Price:      l.Price.StringFixed(2),
		ImageURL:   l.ImageURL,
		Quantity:   l.Quantity,
	}
}

func toProductResponse(p *models.Product) dto.ProductResponse {
	r := dto.ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
	}
	if p.CategoryID != nil {
		s := p.CategoryID.String()
		r.CategoryID = &s
	}
	return r
}
