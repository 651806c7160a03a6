package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/geoyang/Visitor/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, text string) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: text})
}

// pathID parses a uuid path parameter, reporting field on failure.
func pathID(c echo.Context, param, field string) (uuid.UUID, error) {
	return common.ValidateUUID(c.Param(param), field)
}

func bindBody(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return common.Validation("Invalid request body")
	}
	return nil
}

func queryInt(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.Validation(fmt.Sprintf("Invalid %s parameter", name))
	}
	return n, nil
}

// queryUUID parses an optional uuid query parameter.
func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := common.ValidateUUID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// pagination reads limit and skip, falling back to defaultLimit.
func pagination(c echo.Context, defaultLimit int) (int, int, error) {
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, skip = common.ValidatePaginationParams(limit, skip, defaultLimit)
	return limit, skip, nil
}
