package common

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request. ErrorCode and Timestamp
// are only filled for 401 and 500.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewErrorResponse shapes err into the wire envelope for the given status.
func NewErrorResponse(status int, err error, now time.Time) ErrorResponse {
	detail := http.StatusText(status)
	code := ""

	if appErr, ok := AsAppError(err); ok {
		detail = appErr.Detail
		code = appErr.ErrorCode
	} else if he, ok := err.(*echo.HTTPError); ok {
		detail = fmt.Sprint(he.Message)
	}

	switch status {
	case http.StatusUnauthorized:
		if code == "" {
			code = CodeAuthenticationFailed
		}
		return ErrorResponse{Detail: detail, ErrorCode: code, Timestamp: now.UTC().Format(time.RFC3339Nano)}
	case http.StatusInternalServerError:
		return ErrorResponse{Detail: InternalDetail, ErrorCode: CodeInternalServerError, Timestamp: now.UTC().Format(time.RFC3339Nano)}
	default:
		return ErrorResponse{Detail: detail}
	}
}

// HTTPErrorHandler renders AppError, echo.HTTPError and plain errors into the
// shared envelope. Anything without a status becomes a logged 500.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		if appErr, ok := AsAppError(err); ok {
			status = appErr.Status
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}

		if status >= http.StatusInternalServerError {
			log.Error("unhandled error",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		body := NewErrorResponse(status, err, time.Now())

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			log.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}
