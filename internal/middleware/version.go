package middleware

import (
	"github.com/labstack/echo/v4"
)

// VersionMiddleware stamps responses with the running API version
type VersionMiddleware struct {
	version string
}

// NewVersionMiddleware creates a new version middleware instance
func NewVersionMiddleware(version string) *VersionMiddleware {
	return &VersionMiddleware{version: version}
}

// VersionHeader adds X-API-Version to every response
func (vm *VersionMiddleware) VersionHeader() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", vm.version)
			c.Set("api_version", vm.version)
			return next(c)
		}
	}
}
