package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/analysis"
	"github.com/kartr/kartr/internal/auth"
	"github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/jobserver"
	"github.com/kartr/kartr/internal/marketplace"
	"github.com/kartr/kartr/internal/media"
	"github.com/kartr/kartr/internal/scheduler"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
	"github.com/kartr/kartr/internal/youtube"
)

var errNotConfigured = errors.New("this feature is not configured on the server")

var statusBySentinel = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{
		auth.ErrInvalidCredentials, auth.ErrOTPInvalid, auth.ErrInvalidSession, auth.ErrSessionExpired,
	}},
	{http.StatusConflict, []error{store.ErrDuplicate}},
	{http.StatusNotFound, []error{
		store.ErrNotFound, auth.ErrUnknownEmail, marketplace.ErrNotFound, youtube.ErrNotFound,
		media.ErrNotFound, analysis.ErrChannelNotFound, analysis.ErrNoVideos, jobserver.ErrJobNotFound,
		scheduler.ErrMediaNotFound,
	}},
	{http.StatusBadRequest, []error{
		youtube.ErrInvalidURL, marketplace.ErrInvalidDuration, marketplace.ErrInvalidDate,
		scheduler.ErrInvalidPlatform, scheduler.ErrInvalidContentType, scheduler.ErrInvalidTime,
		social.ErrUnsupportedContent, social.ErrMediaURLRequired, social.ErrUnsupportedPlatform,
		media.ErrOutsideRoot, analysis.ErrBadCSV,
	}},
	{http.StatusUnprocessableEntity, []error{youtube.ErrNoTranscript}},
	{http.StatusServiceUnavailable, []error{
		errNotConfigured, youtube.ErrNotConfigured, gemini.ErrNotConfigured, imagegen.ErrNotConfigured,
		social.ErrNotConfigured, jobs.ErrNotConfigured, auth.ErrMailNotConfigured,
		imagegen.ErrBackendUnavailable, jobserver.ErrQueueFull,
	}},
	{http.StatusBadGateway, []error{imagegen.ErrNoImage, gemini.ErrEmptyResponse}},
	{http.StatusGatewayTimeout, []error{context.DeadlineExceeded}},
}

// errorStatus maps an error returned by a handler to its HTTP status.
func errorStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var verr *auth.ValidationError
	var fields validator.ValidationErrors
	if errors.As(err, &verr) || errors.As(err, &fields) {
		return http.StatusBadRequest
	}
	var apiErr *social.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	for _, group := range statusBySentinel {
		for _, sentinel := range group.errs {
			if errors.Is(err, sentinel) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// errorHandler writes every error as types.APIError. Internal errors are
// logged and not echoed back.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := errorStatus(err)
	msg := err.Error()

	var he *echo.HTTPError
	var fields validator.ValidationErrors
	switch {
	case errors.As(err, &he):
		msg = fmt.Sprint(he.Message)
	case errors.As(err, &fields):
		msg = describeValidation(fields)
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout:
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request().URL.Path,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error("Request failed")
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, types.APIError{Error: msg})
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to write error response")
	}
}

func describeValidation(fields validator.ValidationErrors) string {
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New()}
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// bind decodes the request body and validates it.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(v)
}
