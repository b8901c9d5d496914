// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SignupRequest represents the signup form data
type SignupRequest struct {
	Email           string  `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password        string  `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password" example:"SecurePass123!"`
	DisplayName     *string `json:"display_name,omitempty" validate:"omitempty,max=255" example:"Jamie"`
}

// SignupResponse represents the response after successful signup
type SignupResponse struct {
	Customer AuthCustomerDTO    `json:"customer"`
	Session  CustomerSessionDTO `json:"session"`
}

// LoginRequest represents the request payload for user login
// Captcha fields are required only when captcha gating is enabled
type LoginRequest struct {
	Email              string   `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password           string   `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	CaptchaChallengeID *string  `json:"captcha_challenge_id,omitempty" validate:"omitempty,uuid4"`
	CaptchaAngle       *float64 `json:"captcha_angle,omitempty" validate:"omitempty,gte=0,lte=360"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Customer AuthCustomerDTO    `json:"customer"`
	Session  CustomerSessionDTO `json:"session"`
}

// CaptchaInitResponse returns a rotate captcha challenge for the login form
type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

// RefreshTokenRequest represents the request to rotate an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// RefreshTokenResponse represents the response after a successful token rotation
type RefreshTokenResponse struct {
	Session CustomerSessionDTO `json:"session"`
}

// AuthCustomerDTO represents customer data for authentication responses
type AuthCustomerDTO struct {
	ID          uint    `json:"id" example:"123"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email       string  `json:"email" example:"user@example.com"`
	DisplayName *string `json:"display_name,omitempty" example:"Jamie"`
	Plan        string  `json:"plan" example:"free"`
	IsActive    *bool   `json:"is_active" example:"true"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CustomerSessionDTO represents an issued session for API responses
type CustomerSessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"86400"`
	CreatedAt    string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}
