package dto

type SignupRequest struct {
	Name     string `json:"name" binding:"required,notblank,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type SignupResponse struct {
	ID      uint   `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is also the body of a successful federated login exchange.
type LoginResponse struct {
	ID         uint   `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
	Token      string `json:"token"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required,notblank"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type VerifyEmailQuery struct {
	Token string `form:"token" json:"token" binding:"required,notblank"`
	Email string `form:"email" json:"email" binding:"required,email"`
}

type ProfileResponse struct {
	ID         uint   `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
