package dto

type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Stock       int32   `json:"stock"`
	ImageURL    string  `json:"imageUrl"`
	CategoryID  *string `json:"categoryId,omitempty"`
}

type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
}

// UpdateProductRequest: цена строкой, чтобы не терять копейки во float.
type UpdateProductRequest struct {
	Price *string `json:"price" binding:"omitempty,numeric"`
	Stock *int32  `json:"stock" binding:"omitempty,gte=0"`
}
