package middleware

import (
	"net/http"
	"strings"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditMiddleware writes an audit line for every request that changes state.
type AuditMiddleware struct {
	log *zap.Logger
}

func NewAuditMiddleware(log *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{log: log.Named("audit")}
}

// AuditRequest logs mutating requests after they ran, with the acting
// principal and redacted headers. Reads are skipped.
func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if !isMutating(method) || m.shouldSkip(c.Path()) {
				return err
			}

			fields := []zap.Field{
				zap.String("method", method),
				zap.String("route", c.Path()),
				zap.String("ip", c.RealIP()),
				zap.String("request_id", c.Request().Header.Get(logger.RequestIDHeader)),
				zap.Any("headers", m.sanitizeHeaders(c.Request().Header)),
			}

			ctx := c.Request().Context()
			if tc, ok := common.TenantFromContext(ctx); ok {
				fields = append(fields,
					zap.String("user_id", tc.UserID.String()),
					zap.String("company_id", tc.CompanyID.String()),
					zap.String("role", tc.Role),
				)
			} else if d, ok := common.DeviceFromContext(ctx); ok {
				fields = append(fields,
					zap.String("device_id", d.ID.String()),
					zap.String("company_id", d.CompanyID.String()),
				)
			}

			if err != nil {
				fields = append(fields, zap.Int("status", common.StatusOf(err)), zap.Error(err))
				m.log.Warn("request rejected", fields...)
				return err
			}
			fields = append(fields, zap.Int("status", c.Response().Status))
			m.log.Info("request applied", fields...)
			return nil
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// shouldSkip drops machine traffic that would drown the audit trail.
func (m *AuditMiddleware) shouldSkip(path string) bool {
	return strings.HasSuffix(path, "/heartbeat") || strings.HasPrefix(path, "/stripe/webhook")
}

// sanitizeHeaders removes credentials before logging
func (m *AuditMiddleware) sanitizeHeaders(headers http.Header) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			sanitized[key] = "[REDACTED]"
			continue
		}
		sanitized[key] = values
	}
	return sanitized
}

func isSensitiveHeader(header string) bool {
	switch strings.ToLower(header) {
	case "authorization", "cookie", "x-device-token", "stripe-signature", "proxy-authorization":
		return true
	}
	return false
}
