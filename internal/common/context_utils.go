package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const (
	TenantContextKey contextKey = "tenant_context"
	DeviceKey        contextKey = "device"
	RequestIDKey     contextKey = "request_id"
)

// WithTenant stores the resolved user principal on ctx.
func WithTenant(ctx context.Context, tc *models.TenantContext) context.Context {
	return context.WithValue(ctx, TenantContextKey, tc)
}

// TenantFromContext returns the user principal set by the auth middleware.
func TenantFromContext(ctx context.Context) (*models.TenantContext, bool) {
	tc, ok := ctx.Value(TenantContextKey).(*models.TenantContext)
	return tc, ok && tc != nil
}

// WithDevice stores the resolved device principal on ctx.
func WithDevice(ctx context.Context, d *models.Device) context.Context {
	return context.WithValue(ctx, DeviceKey, d)
}

// DeviceFromContext returns the device principal set by the device auth middleware.
func DeviceFromContext(ctx context.Context) (*models.Device, bool) {
	d, ok := ctx.Value(DeviceKey).(*models.Device)
	return d, ok && d != nil
}

// ValidateUUID parses a path or body id, reporting the field name on failure.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, Validation(fmt.Sprintf("%s is required", fieldName))
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, Validation(fmt.Sprintf("Invalid %s format", fieldName))
	}
	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return Validation(fmt.Sprintf("%s is required", fieldName))
	}
	return nil
}

// ValidatePaginationParams clamps limit and offset. A non-positive limit takes
// defaultLimit; limits above 1000 are capped.
func ValidatePaginationParams(limit, offset, defaultLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
