package dto

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"omitempty,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type RegisterResponse struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	UserID          string `json:"userId"`
	Role            string `json:"role"`
	AccessToken     string `json:"accessToken"`
	AccessExpiresIn int64  `json:"accessExpiresIn"`
}
