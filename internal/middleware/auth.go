package middleware

import (
	"strings"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

const DeviceTokenHeader = "X-Device-Token"

// Authenticator resolves request credentials into principals and stores them
// on the request context.
type Authenticator struct {
	resolver services.TenantResolver
}

func NewAuthenticator(resolver services.TenantResolver) *Authenticator {
	return &Authenticator{resolver: resolver}
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// RequireUser admits requests carrying a valid user bearer token.
func (a *Authenticator) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, err := a.resolver.Resolve(c.Request().Context(), bearerToken(c))
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(common.WithTenant(c.Request().Context(), tc)))
			return next(c)
		}
	}
}

// RequireDevice admits requests carrying a valid X-Device-Token.
func (a *Authenticator) RequireDevice() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			device, err := a.resolver.ResolveDevice(c.Request().Context(), c.Request().Header.Get(DeviceTokenHeader))
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(common.WithDevice(c.Request().Context(), device)))
			return next(c)
		}
	}
}

// RequireUserOrDevice prefers the device header when both credentials are sent.
func (a *Authenticator) RequireUserOrDevice() echo.MiddlewareFunc {
	user, device := a.RequireUser(), a.RequireDevice()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		viaUser, viaDevice := user(next), device(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(DeviceTokenHeader) != "" {
				return viaDevice(c)
			}
			return viaUser(c)
		}
	}
}

// Tenant returns the user principal stored by RequireUser.
func Tenant(c echo.Context) (*models.TenantContext, error) {
	tc, ok := common.TenantFromContext(c.Request().Context())
	if !ok {
		return nil, common.Unauthorized("Not authenticated")
	}
	return tc, nil
}

// Device returns the device principal stored by RequireDevice.
func Device(c echo.Context) (*models.Device, error) {
	d, ok := common.DeviceFromContext(c.Request().Context())
	if !ok {
		return nil, common.Unauthorized("Device token required")
	}
	return d, nil
}

// Principal returns whichever principal RequireUserOrDevice stored.
func Principal(c echo.Context) (services.Principal, error) {
	ctx := c.Request().Context()
	if d, ok := common.DeviceFromContext(ctx); ok {
		return services.Principal{Device: d}, nil
	}
	if tc, ok := common.TenantFromContext(ctx); ok {
		return services.Principal{Tenant: tc}, nil
	}
	return services.Principal{}, common.Unauthorized("Not authenticated")
}
