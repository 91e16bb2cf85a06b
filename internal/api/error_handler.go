package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
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
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrCertificateNotFound):
		return http.StatusNotFound, "certificate not found"
	case errors.Is(err, domain.ErrDuplicateFingerprint):
		return http.StatusConflict, "a certificate with this file already exists"
	case errors.Is(err, domain.ErrAlreadyRevoked):
		return http.StatusConflict, "certificate is already revoked"
	case errors.Is(err, domain.ErrInvalidStudent):
		return http.StatusBadRequest, "user exists but is not a student account"
	case errors.Is(err, domain.ErrInstitutionNotFound):
		return http.StatusNotFound, "institution not found"
	case errors.Is(err, domain.ErrArtifactRequired):
		return http.StatusBadRequest, "certificate file is required"
	case errors.Is(err, domain.ErrArtifactMissing):
		return http.StatusNotFound, "certificate file not found"
	case errors.Is(err, fingerprint.ErrMalformed):
		return http.StatusBadRequest, "malformed certificate hash"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
