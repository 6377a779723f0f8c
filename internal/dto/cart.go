package dto

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
}

// UpdateCartItemRequest: quantity 0 удаляет позицию.
type UpdateCartItemRequest struct {
	Quantity *int32 `json:"quantity" binding:"required,gte=0"`
}

type CartItemResponse struct {
	CartItemID string `json:"cartItemId"`
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	ImageURL   string `json:"imageUrl"`
	Quantity   int32  `json:"quantity"`
}

type CartResponse struct {
	CartID     string             `json:"cartId"`
	Items      []CartItemResponse `json:"items"`
	Total      string             `json:"total"`
	TotalMinor int64              `json:"totalMinor"`
	Currency   string             `json:"currency"`
}
