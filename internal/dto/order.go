package dto

type CompleteOrderRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type CompleteOrderResponse struct {
	OrderID     string `json:"orderId"`
	TotalAmount string `json:"totalAmount"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
}

type OrderItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
}

type OrderResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Status          string `json:"status"`
	TotalAmount     string `json:"totalAmount"`
	Currency        string `json:"currency"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type OrderDetailsResponse struct {
	Order OrderResponse       `json:"order"`
	Items []OrderItemResponse `json:"items"`
}

type OrderEnvelope struct {
	Order OrderResponse `json:"order"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending shipped delivered cancelled"`
}
