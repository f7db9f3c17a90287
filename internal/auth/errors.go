package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrOTPInvalid         = errors.New("invalid or expired OTP")
	ErrUnknownEmail       = errors.New("no account registered with this email")
	ErrMailNotConfigured  = errors.New("email delivery is not configured")
)

// ValidationError reports a rejected registration or password field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
