package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ThemeTypeCustom  = "custom"
	ThemeTypeBuiltin = "builtin"

	ThemeStatusActive   = "active"
	ThemeStatusInactive = "inactive"
	ThemeStatusDraft    = "draft"

	ThemeCategoryCustom = "custom"
)

// BuiltinThemes are the theme names shipped with the kiosk app.
var BuiltinThemes = map[string]string{
	"hightech":     "High Tech",
	"lawfirm":      "Law Firm",
	"metropolitan": "Metropolitan",
	"zen":          "Calm Zen",
}

var themeCategories = map[string]bool{
	"default":  true,
	"seasonal": true,
	"brand":    true,
	"event":    true,
	"custom":   true,
}

var themeStatuses = map[string]bool{
	ThemeStatusActive:   true,
	ThemeStatusInactive: true,
	ThemeStatusDraft:    true,
}

func IsValidThemeCategory(c string) bool { return themeCategories[c] }

func IsValidThemeStatus(s string) bool { return themeStatuses[s] }

// ThemeSections holds the style document of a theme. Each section is stored as
// free-form JSON so the kiosk app can add keys without a migration.
type ThemeSections struct {
	Colors       map[string]interface{} `json:"colors"`
	Fonts        map[string]interface{} `json:"fonts"`
	Images       map[string]interface{} `json:"images"`
	Spacing      map[string]interface{} `json:"spacing"`
	BorderRadius map[string]interface{} `json:"borderRadius"`
	Shadows      map[string]interface{} `json:"shadows"`
	Animations   map[string]interface{} `json:"animations"`
	FormConfig   map[string]interface{} `json:"formConfig"`
	LayoutConfig map[string]interface{} `json:"layoutConfig"`
}

// Theme is a company's kiosk style. The embedded sections serialize flat next to
// the metadata fields and are stored as one JSONB document.
type Theme struct {
	ID          string    `json:"id" db:"id"`
	CompanyID   uuid.UUID `json:"companyId" db:"company_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Status      string    `json:"status" db:"status"`
	CreatedBy   *string   `json:"createdBy" db:"created_by"`
	Version     int       `json:"version" db:"version"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	ThemeSections
}

// ThemeActivation is the single active theme pointer of a company.
type ThemeActivation struct {
	CompanyID        uuid.UUID `json:"companyId" db:"company_id"`
	ThemeID          *string   `json:"themeId" db:"theme_id"`
	ThemeType        string    `json:"themeType" db:"theme_type"`
	BuiltinThemeName *string   `json:"builtinThemeName" db:"builtin_theme_name"`
	ActivatedAt      time.Time `json:"activatedAt" db:"activated_at"`
	ActivatedBy      *string   `json:"activatedBy" db:"activated_by"`
}

// ApplyDefaults fills every section the caller left out with the kiosk defaults.
func (s *ThemeSections) ApplyDefaults() {
	d := DefaultThemeSections()
	if s.Colors == nil {
		s.Colors = map[string]interface{}{}
	}
	if s.Fonts == nil {
		s.Fonts = d.Fonts
	}
	if s.Images == nil {
		s.Images = d.Images
	}
	if s.Spacing == nil {
		s.Spacing = d.Spacing
	}
	if s.BorderRadius == nil {
		s.BorderRadius = d.BorderRadius
	}
	if s.Shadows == nil {
		s.Shadows = d.Shadows
	}
	if s.Animations == nil {
		s.Animations = d.Animations
	}
	if s.FormConfig == nil {
		s.FormConfig = d.FormConfig
	}
	if s.LayoutConfig == nil {
		s.LayoutConfig = d.LayoutConfig
	}
}

// Merge overwrites the sections present in patch.
func (s *ThemeSections) Merge(patch ThemeSections) {
	if patch.Colors != nil {
		s.Colors = patch.Colors
	}
	if patch.Fonts != nil {
		s.Fonts = patch.Fonts
	}
	if patch.Images != nil {
		s.Images = patch.Images
	}
	if patch.Spacing != nil {
		s.Spacing = patch.Spacing
	}
	if patch.BorderRadius != nil {
		s.BorderRadius = patch.BorderRadius
	}
	if patch.Shadows != nil {
		s.Shadows = patch.Shadows
	}
	if patch.Animations != nil {
		s.Animations = patch.Animations
	}
	if patch.FormConfig != nil {
		s.FormConfig = patch.FormConfig
	}
	if patch.LayoutConfig != nil {
		s.LayoutConfig = patch.LayoutConfig
	}
}

// DefaultThemeSections mirrors the defaults of the kiosk app.
func DefaultThemeSections() ThemeSections {
	return ThemeSections{
		Colors: map[string]interface{}{},
		Fonts: map[string]interface{}{
			"primary": "System",
			"heading": "System",
			"body":    "System",
			"button":  "System",
			"sizes":   map[string]interface{}{"xs": 10, "sm": 12, "md": 14, "lg": 16, "xl": 20, "xxl": 24},
			"weights": map[string]interface{}{"light": "300", "regular": "400", "medium": "500", "semibold": "600", "bold": "700"},
		},
		Images:       map[string]interface{}{"logo": "", "background": "", "welcomeImage": ""},
		Spacing:      map[string]interface{}{"xs": 4, "sm": 8, "md": 16, "lg": 24, "xl": 32, "xxl": 48},
		BorderRadius: map[string]interface{}{"none": 0, "sm": 4, "md": 8, "lg": 12, "xl": 16, "full": 9999},
		Shadows: map[string]interface{}{
			"none": "none",
			"sm":   "0 1px 2px 0 rgba(0, 0, 0, 0.05)",
			"md":   "0 4px 6px -1px rgba(0, 0, 0, 0.1)",
			"lg":   "0 10px 15px -3px rgba(0, 0, 0, 0.1)",
			"xl":   "0 20px 25px -5px rgba(0, 0, 0, 0.1)",
		},
		Animations: map[string]interface{}{
			"duration": map[string]interface{}{"fast": 150, "normal": 300, "slow": 500},
			"easing":   map[string]interface{}{"linear": "linear", "easeIn": "ease-in", "easeOut": "ease-out", "easeInOut": "ease-in-out"},
		},
		FormConfig: map[string]interface{}{
			"defaultFormIds": []interface{}{},
			"formOrder":      []interface{}{},
			"hiddenFormIds":  []interface{}{},
			"formStyles":     map[string]interface{}{},
		},
		LayoutConfig: map[string]interface{}{
			"showLogo":           true,
			"logoPosition":       "center",
			"showCompanyName":    true,
			"showWelcomeMessage": true,
			"welcomeMessage":     "Welcome!",
			"showDateTime":       true,
			"showLocationInfo":   true,
		},
	}
}
