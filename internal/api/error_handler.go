package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Guard denials carry a specific reason.
	var denial *domain.Denial
	if errors.As(err, &denial) {
		return http.StatusForbidden, denial.Reason
	}
	var quota *domain.QuotaExceededError
	if errors.As(err, &quota) {
		return http.StatusForbidden, quota.Error()
	}
	var inUse *domain.RoleInUseError
	if errors.As(err, &inUse) {
		return http.StatusBadRequest, inUse.Error()
	}
	var userLimit *domain.RoleUserLimitError
	if errors.As(err, &userLimit) {
		return http.StatusBadRequest, userLimit.Error()
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrSuperAdminExists),
		errors.Is(err, domain.ErrSystemRole):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrTooManyRequests):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrCompanyNotFound),
		errors.Is(err, domain.ErrBrandNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrFeedbackNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrProviderNotFound),
		errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrNoFieldsToUpdate),
		errors.Is(err, domain.ErrRoleExists),
		errors.Is(err, domain.ErrTagExists),
		errors.Is(err, domain.ErrCompanyHasBrands),
		errors.Is(err, domain.ErrTeamExists),
		errors.Is(err, domain.ErrProviderExists),
		errors.Is(err, domain.ErrProviderInUse),
		errors.Is(err, domain.ErrProviderEndpoint),
		errors.Is(err, domain.ErrModelExists),
		errors.Is(err, domain.ErrUnknownResource):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	reqLog := logger.FromContext(c.Request().Context(), log)
	reqLog.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
