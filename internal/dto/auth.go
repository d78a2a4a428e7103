package dto

type LoginRequestDTO struct {
	Login    string `json:"login" validate:"required,max=64" example:"admin"`
	Password string `json:"password" validate:"required" example:"s3cret-pass"`
}

type TokenResponseDTO struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

type IssueTokenRequestDTO struct {
	UserID string `json:"user_id" validate:"required,max=64" example:"123456789"`
}
