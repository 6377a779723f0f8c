package dto

type CreateIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentIntentID string `json:"paymentIntentId"`
}
