package dto

// BaseError: единый формат ошибки API.
// Code: машинный код (snake_case), Message — человекочитаемое описание,
// Details: структурированные подробности (например, остатки при конфликте),
// Fields: ошибки валидации по полям.
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details any          `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// StockConflictDetails: что показать покупателю, когда остатка не хватает.
type StockConflictDetails struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Available   int32  `json:"available"`
	Requested   int64  `json:"requested"`
}

// Семантические обёртки для swagger; JSON у всех одинаковый.

// ValidationErrorResponse 400, code "validation_error"
type ValidationErrorResponse BaseError

// UnauthorizedErrorResponse 401, code "unauthorized"
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403, code "forbidden"
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404, code "not_found"
type NotFoundErrorResponse BaseError

// ConflictErrorResponse 409, code "conflict" или "insufficient_stock"
type ConflictErrorResponse BaseError

// InternalErrorResponse 500, code "internal_error"
type InternalErrorResponse BaseError

// BadGatewayErrorResponse 502, code "payment_provider_error"
type BadGatewayErrorResponse BaseError

// UnavailableErrorResponse 503, code "payment_unavailable"; запрос можно повторить
type UnavailableErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewBadRequestError(code, msg string) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: code, Message: msg})
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewStockConflictError(msg string, d StockConflictDetails) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "insufficient_stock", Message: msg, Details: d})
}
func NewInternalError() InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error"})
}
func NewBadGatewayError() BadGatewayErrorResponse {
	return BadGatewayErrorResponse(BaseError{Code: "payment_provider_error", Message: "payment provider returned an unexpected response"})
}
func NewUnavailableError() UnavailableErrorResponse {
	return UnavailableErrorResponse(BaseError{Code: "payment_unavailable", Message: "payment provider is temporarily unavailable, please retry"})
}
