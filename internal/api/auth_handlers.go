package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/auth"
)

func (s *Server) register(c echo.Context) error {
	req := types.RegisterRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.Auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, auth.PublicUser(u, true))
}

func (s *Server) login(c echo.Context) error {
	req := types.LoginRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := s.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return s.openSession(c, sess)
}

func (s *Server) requestOTP(c echo.Context) error {
	req := types.OTPRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.Auth.RequestOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.MessageResponse{Message: "OTP sent to your email"})
}

func (s *Server) verifyOTP(c echo.Context) error {
	req := types.OTPVerifyRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := s.Auth.VerifyOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return s.openSession(c, sess)
}

func (s *Server) openSession(c echo.Context, sess *auth.Session) error {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, types.SessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      auth.PublicUser(sess.User, true),
	})
}

// logout clears the cookie. Tokens are stateless and stay valid until they
// expire.
func (s *Server) logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, types.MessageResponse{Message: "You have been logged out"})
}

func (s *Server) me(c echo.Context) error {
	u, err := s.Auth.User(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auth.PublicUser(u, true))
}

func (s *Server) changePassword(c echo.Context) error {
	req := types.ChangePasswordRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.Auth.ChangePassword(c.Request().Context(), userID(c), req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.MessageResponse{Message: "Password updated"})
}

func (s *Server) emailVisibility(c echo.Context) error {
	req := types.EmailVisibilityRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.Auth.SetEmailVisibility(c.Request().Context(), userID(c), req.Visible); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.MessageResponse{Message: "Email visibility updated"})
}
