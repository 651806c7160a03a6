package handlers

import (
	"github.com/geoyang/Visitor/internal/middleware"

	"github.com/labstack/echo/v4"
)

// Router bundles every handler set served by the API.
type Router struct {
	Auth          *AuthHandlers
	Companies     *CompanyHandlers
	Locations     *LocationHandlers
	Devices       *DeviceHandlers
	Visitors      *VisitorHandlers
	Forms         *FormHandlers
	Workflows     *WorkflowHandlers
	Users         *UserHandlers
	Themes        *ThemeHandlers
	Subscriptions *SubscriptionHandlers
	Webhooks      *WebhookHandlers
	Analytics     *AnalyticsHandlers
	Health        *HealthHandlers
	Jobs          *JobHandlers
}

// Register mounts the routes. Middleware is attached per route rather than
// through prefix-less groups so unknown paths still answer 404.
func (r *Router) Register(e *echo.Echo, auth *middleware.Authenticator) {
	user := auth.RequireUser()
	device := auth.RequireDevice()
	either := auth.RequireUserOrDevice()

	if r.Health != nil {
		e.GET("/", r.Health.Root)
		e.GET("/health", r.Health.HealthCheck)
		e.GET("/health/ready", r.Health.ReadinessCheck)
		e.GET("/health/live", r.Health.LivenessCheck)
	}

	// Authentication routes
	e.POST("/auth/register", r.Auth.Register)
	e.POST("/auth/register-company", r.Auth.RegisterCompany)
	e.POST("/auth/login", r.Auth.Login)
	e.POST("/auth/login-company", r.Auth.Login)
	e.GET("/auth/me", r.Auth.Me, user)
	e.GET("/auth/company", r.Auth.Company, user)

	// Companies
	e.GET("/companies", r.Companies.ListCompanies, user)
	e.POST("/companies", r.Companies.CreateCompany, user)
	e.GET("/companies/validate/:id", r.Companies.ValidateCompany)
	e.GET("/companies/:id", r.Companies.GetCompany, user)
	e.PUT("/companies/:id", r.Companies.UpdateCompany, user)
	e.DELETE("/companies/:id", r.Companies.DeleteCompany, user)
	e.GET("/companies/:id/locations", r.Companies.ListCompanyLocations, user)
	e.POST("/companies/:id/locations", r.Companies.CreateCompanyLocation, user)
	e.GET("/companies/:id/available-subscriptions", r.Companies.AvailableSubscriptions, user)

	// Locations
	e.GET("/locations", r.Locations.ListLocations, user)
	e.GET("/locations/by-code/:code", r.Locations.LinkByCode)
	e.GET("/locations/:id", r.Locations.GetLocation, user)
	e.PUT("/locations/:id", r.Locations.UpdateLocation, user)
	e.DELETE("/locations/:id", r.Locations.DeleteLocation, user)
	e.POST("/locations/:id/devices", r.Devices.CreateDevice, user)

	// Devices
	e.GET("/devices", r.Devices.ListDevices, user)
	e.GET("/devices/:id", r.Devices.GetDevice, user)
	e.PUT("/devices/:id", r.Devices.UpdateDevice, user)
	e.DELETE("/devices/:id", r.Devices.DeleteDevice, user)
	e.POST("/devices/:id/heartbeat", r.Devices.Heartbeat)

	// Visitors
	e.POST("/visitors", r.Visitors.CreateVisitor, user)
	e.GET("/visitors", r.Visitors.ListVisitors, user)
	e.GET("/visitors/active", r.Visitors.ActiveVisitors, user)
	e.GET("/visitors/:id", r.Visitors.GetVisitor, user)
	e.PUT("/visitors/:id", r.Visitors.UpdateVisitor, user)
	e.PUT("/visitors/:id/checkout", r.Visitors.CheckoutVisitor, user)

	// Forms accept either principal
	e.GET("/forms", r.Forms.ListForms, either)
	e.POST("/forms", r.Forms.CreateForm, either)
	e.GET("/forms/:id", r.Forms.GetForm, either)
	e.PUT("/forms/:id", r.Forms.UpdateForm, either)
	e.DELETE("/forms/:id", r.Forms.DeleteForm, either)

	// Workflows
	e.GET("/workflows", r.Workflows.ListWorkflows, user)
	e.POST("/workflows", r.Workflows.CreateWorkflow, user)
	e.GET("/workflows/:id", r.Workflows.GetWorkflow, user)
	e.PUT("/workflows/:id", r.Workflows.UpdateWorkflow, user)
	e.DELETE("/workflows/:id", r.Workflows.DeleteWorkflow, user)

	// Users
	e.GET("/users", r.Users.ListUsers, user)
	e.POST("/users", r.Users.CreateUser, user)
	e.GET("/users/:id", r.Users.GetUser, user)
	e.PUT("/users/:id", r.Users.UpdateUser, user)
	e.DELETE("/users/:id", r.Users.DeleteUser, user)

	// Themes
	e.GET("/api/themes", r.Themes.ListThemes, user)
	e.POST("/api/themes", r.Themes.CreateTheme, user)
	e.GET("/api/themes/active", r.Themes.ActiveTheme, user)
	e.POST("/api/themes/builtin/activate", r.Themes.ActivateBuiltinTheme, user)
	e.GET("/api/themes/:id", r.Themes.GetTheme, user)
	e.PUT("/api/themes/:id", r.Themes.UpdateTheme, user)
	e.DELETE("/api/themes/:id", r.Themes.DeleteTheme, user)
	e.POST("/api/themes/:id/activate", r.Themes.ActivateTheme, user)
	e.POST("/api/themes/:id/assets", r.Themes.UploadThemeAsset, user)

	// Kiosk routes
	e.POST("/device/visitors", r.Visitors.DeviceCreateVisitor, device)
	e.GET("/device/visitors", r.Visitors.DeviceListVisitors, device)
	e.POST("/device/visitors/:id/checkout", r.Visitors.DeviceCheckoutVisitor, device)
	e.GET("/device/forms", r.Forms.DeviceListForms, device)
	e.GET("/device/workflows", r.Workflows.DeviceListWorkflows, device)
	e.GET("/device/themes", r.Themes.ListThemes, device)
	e.POST("/device/themes", r.Themes.CreateTheme, device)
	e.GET("/device/themes/active", r.Themes.ActiveTheme, device)
	e.PUT("/device/themes/:id", r.Themes.UpdateTheme, device)
	e.DELETE("/device/themes/:id", r.Themes.DeleteTheme, device)
	e.POST("/device/themes/:id/activate", r.Themes.ActivateTheme, device)

	// Subscriptions and billing
	e.GET("/subscriptions", r.Subscriptions.ListSubscriptions, user)
	e.POST("/subscriptions", r.Subscriptions.CreateSubscription, user)
	e.GET("/subscriptions/plans", r.Subscriptions.ListPlans)
	e.GET("/subscriptions/:id", r.Subscriptions.GetSubscription, user)
	e.PUT("/subscriptions/:id", r.Subscriptions.UpdateSubscription, user)
	e.POST("/subscriptions/:id/cancel", r.Subscriptions.CancelSubscription, user)
	e.POST("/stripe/webhook", r.Webhooks.StripeWebhook)
	e.GET("/stripe/config", r.Webhooks.StripeConfig)

	// Analytics
	e.GET("/analytics/summary", r.Analytics.Summary, user)
	e.GET("/analytics/company", r.Analytics.Company, user)

	if r.Jobs != nil {
		e.GET("/jobs/status", r.Jobs.JobStatus, user)
		e.POST("/jobs/trial-expiry/run", r.Jobs.RunTrialSweep, user)
		e.POST("/jobs/device-presence/run", r.Jobs.RunPresenceSweep, user)
	}
}
