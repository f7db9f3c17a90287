package types

import "time"

type UserType string

const (
	Influencer UserType = "influencer"
	Sponsor    UserType = "sponsor"
)

func (u UserType) Valid() bool {
	return u == Influencer || u == Sponsor
}

type RegisterRequest struct {
	Username        string   `json:"username" validate:"required,min=3,max=20"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	ConfirmPassword string   `json:"confirm_password" validate:"required,eqfield=Password"`
	UserType        UserType `json:"user_type" validate:"required,oneof=influencer sponsor"`
	PublicEmail     bool     `json:"public_email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

type ChangePasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type EmailVisibilityRequest struct {
	Visible bool `json:"email_visible"`
}

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	UserType       UserType  `json:"user_type"`
	PublicEmail    bool      `json:"email_visible"`
	DateRegistered time.Time `json:"date_registered"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
