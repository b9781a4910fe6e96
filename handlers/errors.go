package handlers

import (
	"errors"
	"net/http"

	"support_directory_go/services"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed API request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeRateLimited = "rate_limited"
	codeInternal    = "internal_error"
)

func statusForCode(code string) int {
	switch code {
	case services.CodeValidation:
		return http.StatusBadRequest
	case services.CodeUnauthenticated:
		return http.StatusUnauthorized
	case services.CodeForbidden:
		return http.StatusForbidden
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return services.CodeValidation
	case http.StatusUnauthorized:
		return services.CodeUnauthenticated
	case http.StatusForbidden:
		return services.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return services.CodeNotFound
	case http.StatusConflict:
		return services.CodeConflict
	case http.StatusTooManyRequests:
		return codeRateLimited
	case http.StatusServiceUnavailable:
		return services.CodeStoreFailure
	default:
		return codeInternal
	}
}

// respondError renders an engine error. Store failures are reported to
// Sentry and rendered without detail.
func (h *Handler) respondError(c echo.Context, op string, err error) error {
	ee := services.AsEngineError(op, err)
	status := statusForCode(ee.Code)

	if ee.Kind == services.KindStore {
		h.Logger.Error("Store failure",
			zap.String("op", op),
			zap.String("path", c.Path()),
			zap.Error(err))
		reportStoreError(c, op, err)
		return c.JSON(status, ErrorResponse{Error: "The service is temporarily unavailable", Code: services.CodeStoreFailure})
	}
	return c.JSON(status, ErrorResponse{Error: ee.Message, Code: ee.Code})
}

func reportStoreError(c echo.Context, op string, err error) {
	hub := sentryecho.GetHubFromContext(c)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("component", "engine")
		scope.SetTag("operation", op)
		scope.SetTag("route", c.Path())
		hub.CaptureException(err)
	})
}

func validationError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: services.CodeValidation})
}

// HTTPErrorHandler renders errors that escape handlers (middleware
// rejections, unknown routes) in the same envelope
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, ErrorResponse{Error: message, Code: codeForStatus(status)})
		}
		if err != nil {
			logger.Warn("Failed to write error response", zap.Error(err))
		}
	}
}
