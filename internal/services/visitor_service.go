package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	visitorNotFoundDetail   = "Visitor not found"
	alreadyCheckedOutDetail = "Visitor is already checked out"

	DefaultVisitorLimit = 100
)

// VisitorView adds the common form fields at the top level for kiosk screens.
type VisitorView struct {
	*models.Visitor
	FullName     interface{} `json:"full_name"`
	Company      interface{} `json:"company"`
	Email        interface{} `json:"email"`
	Phone        interface{} `json:"phone"`
	HostName     interface{} `json:"host_name"`
	VisitPurpose interface{} `json:"visit_purpose"`
}

func NewVisitorView(v *models.Visitor) *VisitorView {
	view := &VisitorView{Visitor: v}
	if v.Data != nil {
		view.FullName = v.Data["full_name"]
		view.Company = v.Data["company"]
		view.Email = v.Data["email"]
		view.Phone = v.Data["phone"]
		view.HostName = v.Data["host_name"]
		view.VisitPurpose = v.Data["visit_purpose"]
	}
	return view
}

func visitorViews(visitors []*models.Visitor) []*VisitorView {
	out := make([]*VisitorView, 0, len(visitors))
	for _, v := range visitors {
		out = append(out, NewVisitorView(v))
	}
	return out
}

// VisitorInput is a check-in submission.
type VisitorInput struct {
	FormID       string                 `json:"form_id"`
	LocationID   string                 `json:"location_id"`
	Data         map[string]interface{} `json:"data"`
	CheckInTime  *time.Time             `json:"check_in_time"`
	HostNotified bool                   `json:"host_notified"`
	Notes        *string                `json:"notes"`
}

// VisitorPatch edits a checked-in visitor. Setting status to checked_out or a
// check_out_time checks the visitor out.
type VisitorPatch struct {
	Data         map[string]interface{} `json:"data"`
	Status       *string                `json:"status"`
	CheckOutTime *time.Time             `json:"check_out_time"`
	Notes        *string                `json:"notes"`
	HostNotified *bool                  `json:"host_notified"`
}

type VisitorService interface {
	Create(ctx context.Context, tc *models.TenantContext, in VisitorInput) (*VisitorView, error)
	List(ctx context.Context, tc *models.TenantContext, status string, limit, offset int) ([]*VisitorView, error)
	Active(ctx context.Context, tc *models.TenantContext) ([]*VisitorView, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*VisitorView, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch VisitorPatch) (*VisitorView, error)
	Checkout(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*VisitorView, error)

	CreateForDevice(ctx context.Context, device *models.Device, in VisitorInput) (*VisitorView, error)
	ListForDevice(ctx context.Context, device *models.Device, status string, limit, offset int) ([]*VisitorView, error)
	CheckoutForDevice(ctx context.Context, device *models.Device, id uuid.UUID) (*VisitorView, error)
}

type visitorService struct {
	visitors  repositories.VisitorRepository
	locations repositories.LocationRepository
	forms     repositories.FormRepository
	gate      SubscriptionGate
	trigger   WorkflowTrigger
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewVisitorService(
	visitors repositories.VisitorRepository,
	locations repositories.LocationRepository,
	forms repositories.FormRepository,
	gate SubscriptionGate,
	trigger WorkflowTrigger,
	clock clockwork.Clock,
	log *zap.Logger,
) VisitorService {
	return &visitorService{
		visitors:  visitors,
		locations: locations,
		forms:     forms,
		gate:      gate,
		trigger:   trigger,
		clock:     clock,
		log:       log,
	}
}

func (s *visitorService) Create(ctx context.Context, tc *models.TenantContext, in VisitorInput) (*VisitorView, error) {
	locationID, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	info, err := s.gate.CheckSubscriptionActive(ctx, tc, locationID)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, info.Location, in)
}

func (s *visitorService) CreateForDevice(ctx context.Context, device *models.Device, in VisitorInput) (*VisitorView, error) {
	locationID, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	if locationID != device.LocationID {
		return nil, common.Forbidden("Device not authorized for this location")
	}

	location, err := s.locations.GetByID(ctx, locationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(locationNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	if _, err := s.gate.CheckLocationSubscription(ctx, location); err != nil {
		return nil, err
	}
	return s.checkIn(ctx, location, in)
}

func (s *visitorService) validateInput(in VisitorInput) (uuid.UUID, error) {
	if strings.TrimSpace(in.FormID) == "" {
		return uuid.Nil, common.Unprocessable("Field 'form_id' is required")
	}
	if strings.TrimSpace(in.LocationID) == "" {
		return uuid.Nil, common.Unprocessable("Field 'location_id' is required")
	}
	locationID, err := uuid.Parse(in.LocationID)
	if err != nil {
		return uuid.Nil, common.NotFound(locationNotFoundDetail)
	}
	return locationID, nil
}

func (s *visitorService) checkIn(ctx context.Context, location *models.Location, in VisitorInput) (*VisitorView, error) {
	if err := s.checkForm(ctx, in.FormID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	visitor := &models.Visitor{
		ID:           uuid.New(),
		CompanyID:    location.CompanyID,
		FormID:       in.FormID,
		LocationID:   location.ID,
		Data:         in.Data,
		CheckInTime:  now,
		Status:       models.VisitorStatusCheckedIn,
		HostNotified: in.HostNotified,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if visitor.Data == nil {
		visitor.Data = map[string]interface{}{}
	}
	if in.CheckInTime != nil {
		visitor.CheckInTime = in.CheckInTime.UTC()
	}

	if err := s.visitors.Create(ctx, visitor); err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}

	s.log.Info("visitor checked in",
		zap.String("visitor_id", visitor.ID.String()),
		zap.String("location_id", location.ID.String()),
		zap.String("form_id", visitor.FormID),
	)
	s.trigger.Fire(ctx, visitor, models.TriggerOnCheckin)
	return NewVisitorView(visitor), nil
}

// checkForm accepts the "default" key and otherwise requires an existing form.
func (s *visitorService) checkForm(ctx context.Context, formID string) error {
	if formID == models.DefaultFormKey {
		return nil
	}
	id, err := uuid.Parse(formID)
	if err != nil {
		return common.NotFound(formNotFoundDetail)
	}
	_, err = s.forms.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.NotFound(formNotFoundDetail)
	}
	if err != nil {
		return fmt.Errorf("load form: %w", err)
	}
	return nil
}

func (s *visitorService) List(ctx context.Context, tc *models.TenantContext, status string, limit, offset int) ([]*VisitorView, error) {
	filter, err := s.scopedFilter(ctx, tc)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	filter.Limit, filter.Offset = common.ValidatePaginationParams(limit, offset, DefaultVisitorLimit)

	visitors, err := s.visitors.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitorViews(visitors), nil
}

func (s *visitorService) Active(ctx context.Context, tc *models.TenantContext) ([]*VisitorView, error) {
	filter, err := s.scopedFilter(ctx, tc)
	if err != nil {
		return nil, err
	}
	filter.Status = models.VisitorStatusCheckedIn

	visitors, err := s.visitors.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list active visitors: %w", err)
	}
	return visitorViews(visitors), nil
}

// scopedFilter limits non super admins to the locations of their company. A
// company without locations gets an empty, non-nil list so nothing matches.
func (s *visitorService) scopedFilter(ctx context.Context, tc *models.TenantContext) (models.VisitorFilter, error) {
	if tc.IsSuperAdmin() {
		return models.VisitorFilter{}, nil
	}
	ids, err := s.locations.ListIDs(ctx, tc.CompanyID)
	if err != nil {
		return models.VisitorFilter{}, fmt.Errorf("list company locations: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return models.VisitorFilter{LocationIDs: ids}, nil
}

func (s *visitorService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*VisitorView, error) {
	visitor, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return NewVisitorView(visitor), nil
}

func (s *visitorService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch VisitorPatch) (*VisitorView, error) {
	visitor, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if visitor.CheckedOut() {
		return nil, common.Validation(alreadyCheckedOutDetail)
	}

	checkout := patch.CheckOutTime != nil
	if patch.Status != nil {
		switch *patch.Status {
		case models.VisitorStatusCheckedOut:
			checkout = true
		case models.VisitorStatusCheckedIn:
		default:
			return nil, common.Validation(fmt.Sprintf("Invalid visitor status '%s'", *patch.Status))
		}
	}

	if patch.Data != nil || patch.Notes != nil || patch.HostNotified != nil {
		if patch.Data != nil {
			visitor.Data = patch.Data
		}
		if patch.Notes != nil {
			visitor.Notes = patch.Notes
		}
		if patch.HostNotified != nil {
			visitor.HostNotified = *patch.HostNotified
		}
		if err := s.visitors.Update(ctx, visitor); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, common.Validation(alreadyCheckedOutDetail)
			}
			return nil, fmt.Errorf("update visitor: %w", err)
		}
		visitor.UpdatedAt = s.clock.Now().UTC()
	}

	if checkout {
		at := s.clock.Now().UTC()
		if patch.CheckOutTime != nil {
			at = patch.CheckOutTime.UTC()
		}
		if err := s.checkout(ctx, visitor, at); err != nil {
			return nil, err
		}
	}
	return NewVisitorView(visitor), nil
}

func (s *visitorService) Checkout(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*VisitorView, error) {
	visitor, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if visitor.CheckedOut() {
		return nil, common.Validation(alreadyCheckedOutDetail)
	}
	if err := s.checkout(ctx, visitor, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	return NewVisitorView(visitor), nil
}

func (s *visitorService) ListForDevice(ctx context.Context, device *models.Device, status string, limit, offset int) ([]*VisitorView, error) {
	filter := models.VisitorFilter{LocationIDs: []uuid.UUID{device.LocationID}, Status: status}
	filter.Limit, filter.Offset = common.ValidatePaginationParams(limit, offset, DefaultVisitorLimit)

	visitors, err := s.visitors.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list device visitors: %w", err)
	}
	return visitorViews(visitors), nil
}

func (s *visitorService) CheckoutForDevice(ctx context.Context, device *models.Device, id uuid.UUID) (*VisitorView, error) {
	visitor, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visitor.LocationID != device.LocationID {
		return nil, common.Forbidden("Device not authorized for this visitor")
	}
	if visitor.CheckedOut() {
		return nil, common.Validation(alreadyCheckedOutDetail)
	}
	if err := s.checkout(ctx, visitor, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	return NewVisitorView(visitor), nil
}

// checkout moves status and check_out_time together, then fires on_checkout.
func (s *visitorService) checkout(ctx context.Context, visitor *models.Visitor, at time.Time) error {
	if err := s.visitors.Checkout(ctx, visitor.ID, at); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.Validation(alreadyCheckedOutDetail)
		}
		return fmt.Errorf("checkout visitor: %w", err)
	}
	visitor.Status = models.VisitorStatusCheckedOut
	visitor.CheckOutTime = &at
	visitor.UpdatedAt = at

	s.log.Info("visitor checked out",
		zap.String("visitor_id", visitor.ID.String()),
		zap.String("location_id", visitor.LocationID.String()),
	)
	s.trigger.Fire(ctx, visitor, models.TriggerOnCheckout)
	return nil
}

func (s *visitorService) get(ctx context.Context, id uuid.UUID) (*models.Visitor, error) {
	visitor, err := s.visitors.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(visitorNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load visitor: %w", err)
	}
	return visitor, nil
}

// load fetches the visitor and checks the caller owns it. Ownership comes from
// the visitor's own company so records outlive a soft-deleted location.
func (s *visitorService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Visitor, error) {
	visitor, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(tc, visitor.CompanyID); err != nil {
		return nil, err
	}
	return visitor, nil
}
