package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	UserByID(ctx context.Context, id int64) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	SetPublicEmail(ctx context.Context, userID int64, visible bool) error
}

// Service is the only authentication provider: local bcrypt credentials,
// email OTP as a second login path, and signed session tokens.
type Service struct {
	users    UserStore
	sessions *SessionManager
	otp      *OTPService
	cost     int
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *store.User
}

func NewService(users UserStore, sessions *SessionManager, otp *OTPService, bcryptCost int) *Service {
	return &Service{users: users, sessions: sessions, otp: otp, cost: bcryptCost}
}

func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Register creates an account. Field problems come back as *ValidationError
// and taken usernames or emails as store.ErrDuplicate.
func (s *Service) Register(ctx context.Context, req types.RegisterRequest) (*store.User, error) {
	username := strings.TrimSpace(req.Username)
	if n := len(username); n < 3 || n > 20 {
		return nil, &ValidationError{Field: "username", Message: "must be between 3 and 20 characters"}
	}
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}
	if !req.UserType.Valid() {
		return nil, &ValidationError{Field: "user_type", Message: "must be influencer or sponsor"}
	}

	hash, err := HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &store.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		UserType:     string(req.UserType),
		PublicEmail:  req.PublicEmail,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "user_type": u.UserType}).Info("User registered")
	return u, nil
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(u)
}

// RequestOTP mails a login code to a registered email.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	u, err := s.users.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownEmail
	}
	if err != nil {
		return err
	}
	return s.otp.Issue(ctx, u.Email)
}

// VerifyOTP consumes a login code and opens a session.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	u, err := s.users.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOTPInvalid
	}
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, u.Email, strings.TrimSpace(code)); err != nil {
		return nil, err
	}
	return s.openSession(u)
}

func (s *Service) PurgeOTPs(ctx context.Context) {
	s.otp.Purge(ctx)
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, password, confirm string) error {
	if err := validatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *Service) SetEmailVisibility(ctx context.Context, userID int64, visible bool) error {
	return s.users.SetPublicEmail(ctx, userID, visible)
}

// User resolves the account behind a session.
func (s *Service) User(ctx context.Context, userID int64) (*store.User, error) {
	return s.users.UserByID(ctx, userID)
}

func (s *Service) openSession(u *store.User) (*Session, error) {
	token, exp, err := s.sessions.Issue(u.ID, u.Username, u.UserType)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// PublicUser converts a stored user to its wire form. The email is only kept
// for the owner or when the user made it public.
func PublicUser(u *store.User, self bool) types.User {
	out := types.User{
		ID:             u.ID,
		Username:       u.Username,
		UserType:       types.UserType(u.UserType),
		PublicEmail:    u.PublicEmail,
		DateRegistered: u.DateRegistered,
	}
	if self || u.PublicEmail {
		out.Email = u.Email
	}
	return out
}
