package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

const defaultCompanyLimit = 100

// CompanyHandlers handles companies and the locations nested under them
type CompanyHandlers struct {
	companyService  services.CompanyService
	locationService services.LocationService
}

// NewCompanyHandlers creates a new company handlers instance
func NewCompanyHandlers(companyService services.CompanyService, locationService services.LocationService) *CompanyHandlers {
	return &CompanyHandlers{
		companyService:  companyService,
		locationService: locationService,
	}
}

// ListCompanies godoc
// @Summary List companies visible to the caller
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param skip query int false "Offset"
// @Success 200 {array} services.CompanyView
// @Router /companies [get]
func (h *CompanyHandlers) ListCompanies(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	limit, skip, err := pagination(c, defaultCompanyLimit)
	if err != nil {
		return err
	}
	companies, err := h.companyService.List(c.Request().Context(), tc, limit, skip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, companies)
}

func (h *CompanyHandlers) CreateCompany(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	var req services.CompanyPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	company, err := h.companyService.Create(c.Request().Context(), tc, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

func (h *CompanyHandlers) GetCompany(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	company, err := h.companyService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

func (h *CompanyHandlers) UpdateCompany(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	var req services.CompanyPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	company, err := h.companyService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

// DeleteCompany deactivates a company without children
func (h *CompanyHandlers) DeleteCompany(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	if err := h.companyService.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Company deactivated successfully")
}

// ValidateCompany is public; kiosks call it before linking
func (h *CompanyHandlers) ValidateCompany(c echo.Context) error {
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	company, err := h.companyService.Validate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid": true,
		"company": map[string]interface{}{
			"id":     company.ID,
			"name":   company.Name,
			"status": company.Status,
		},
	})
}

func (h *CompanyHandlers) ListCompanyLocations(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	locations, err := h.locationService.ListForCompany(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, locations)
}

// CreateCompanyLocation godoc
// @Summary Create a location bound to an unlinked subscription
// @Tags locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param body body services.LocationInput true "Location"
// @Success 200 {object} models.LocationSummary
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /companies/{id}/locations [post]
func (h *CompanyHandlers) CreateCompanyLocation(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	var req services.LocationInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	location, err := h.locationService.Create(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, location)
}

func (h *CompanyHandlers) AvailableSubscriptions(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "company_id")
	if err != nil {
		return err
	}
	subs, err := h.companyService.AvailableSubscriptions(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}
