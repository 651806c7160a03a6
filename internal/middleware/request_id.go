package middleware

import (
	"context"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID echoes the caller's X-Request-ID or mints one, and exposes it on
// the request context for downstream logging.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(logger.RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
				req.Header.Set(logger.RequestIDHeader, id)
			}
			c.Response().Header().Set(logger.RequestIDHeader, id)
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), common.RequestIDKey, id)))
			return next(c)
		}
	}
}
