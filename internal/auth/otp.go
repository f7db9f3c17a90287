package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/store"
)

const otpSubject = "Your Login OTP for Kartr"

type OTPStore interface {
	PutOTP(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	TakeOTP(ctx context.Context, email string, now time.Time) (string, error)
	PurgeExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// OTPService issues single-use numeric login codes. Only a hash of each code
// is persisted.
type OTPService struct {
	store  OTPStore
	mailer Mailer
	ttl    time.Duration
	length int
	now    func() time.Time
}

func NewOTPService(s OTPStore, m Mailer, ttl time.Duration, length int) *OTPService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if length <= 0 {
		length = 6
	}
	return &OTPService{store: s, mailer: m, ttl: ttl, length: length, now: time.Now}
}

// Issue creates a code for email, stores it and mails it.
func (o *OTPService) Issue(ctx context.Context, email string) error {
	code, err := generateCode(o.length)
	if err != nil {
		return err
	}
	if err := o.store.PutOTP(ctx, email, hashCode(code), o.now().Add(o.ttl)); err != nil {
		return err
	}
	return o.mailer.Send(ctx, email, otpSubject, otpBody(code, o.ttl))
}

// Verify consumes the stored code for email. A wrong guess consumes it too.
func (o *OTPService) Verify(ctx context.Context, email, code string) error {
	stored, err := o.store.TakeOTP(ctx, email, o.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(code))) != 1 {
		return ErrOTPInvalid
	}
	return nil
}

// Purge evicts expired codes.
func (o *OTPService) Purge(ctx context.Context) {
	n, err := o.store.PurgeExpiredOTPs(ctx, o.now())
	if err != nil {
		logrus.WithError(err).Error("Failed to purge expired OTPs")
		return
	}
	if n > 0 {
		logrus.Debugf("Purged %d expired OTPs", n)
	}
}

func generateCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Kartr Login Verification</h2>
  <p>Your one-time password is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
  <p>This code is valid for %d minutes and can be used once.</p>
  <p>If you did not request it, you can ignore this email.</p>
</body>
</html>`, code, int(ttl.Minutes()))
}
