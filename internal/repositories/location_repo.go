package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetByLinkingCode(ctx context.Context, code string) (*models.Location, error)
	LinkingCodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, scope *uuid.UUID) ([]*models.LocationSummary, error)
	ListIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)
	CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error)
	Update(ctx context.Context, location *models.Location) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	CountDependents(ctx context.Context, id uuid.UUID) (*LocationDependents, error)
}

// LocationDependents counts the rows that block a location soft delete.
type LocationDependents struct {
	Devices        int
	ActiveVisitors int
}

const locationColumns = `l.id, l.company_id, l.name, l.address, l.latitude, l.longitude, l.timezone, l.status, l.linking_code,
		l.subscription_id, l.subscription_status, l.subscription_plan, l.settings, l.working_hours, l.contact_info,
		l.created_at, l.updated_at, l.deleted_at`

type locationRepo struct {
	db DBTX
}

func NewLocationRepo(db DBTX) LocationRepository {
	return &locationRepo{db: db}
}

func locationDest(l *models.Location) []any {
	return []any{&l.ID, &l.CompanyID, &l.Name, &l.Address, &l.Latitude, &l.Longitude, &l.Timezone, &l.Status, &l.LinkingCode,
		&l.SubscriptionID, &l.SubscriptionStatus, &l.SubscriptionPlan, &l.Settings, &l.WorkingHours, &l.ContactInfo,
		&l.CreatedAt, &l.UpdatedAt, &l.DeletedAt}
}

func scanLocation(row pgx.Row) (*models.Location, error) {
	l := &models.Location{}
	if err := row.Scan(locationDest(l)...); err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// Create inserts the location and, when it carries a subscription, claims that
// subscription for it in the same transaction.
func (r *locationRepo) Create(ctx context.Context, location *models.Location) error {
	insert := `
		INSERT INTO locations (id, company_id, name, address, latitude, longitude, timezone, status, linking_code,
			subscription_id, subscription_status, subscription_plan, settings, working_hours, contact_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insert, location.ID, location.CompanyID, location.Name, location.Address, location.Latitude, location.Longitude,
			location.Timezone, location.Status, location.LinkingCode, location.SubscriptionID, location.SubscriptionStatus, location.SubscriptionPlan,
			settingsOrEmpty(location.Settings), settingsOrEmpty(location.WorkingHours), settingsOrEmpty(location.ContactInfo))
		if err != nil {
			return err
		}
		if location.SubscriptionID == nil {
			return nil
		}
		link := `UPDATE subscriptions SET location_id = $1, updated_at = NOW() WHERE id = $2 AND location_id IS NULL`
		return affected(tx.Exec(ctx, link, location.ID, *location.SubscriptionID))
	})
}

func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations l WHERE l.id = $1 AND l.deleted_at IS NULL`
	return scanLocation(r.db.QueryRow(ctx, query, id))
}

func (r *locationRepo) GetByLinkingCode(ctx context.Context, code string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations l WHERE l.linking_code = $1 AND l.deleted_at IS NULL`
	return scanLocation(r.db.QueryRow(ctx, query, strings.ToUpper(code)))
}

func (r *locationRepo) LinkingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE linking_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *locationRepo) List(ctx context.Context, scope *uuid.UUID) ([]*models.LocationSummary, error) {
	query := `
		SELECT ` + locationColumns + `,
			COALESCE(c.name, ''),
			(SELECT COUNT(*) FROM devices d WHERE d.location_id = l.id AND d.status <> 'inactive'),
			(SELECT COUNT(*) FROM visitors v WHERE v.location_id = l.id AND v.status = 'checked_in')
		FROM locations l
		LEFT JOIN companies c ON c.id = l.company_id
		WHERE l.deleted_at IS NULL AND ($1::uuid IS NULL OR l.company_id = $1)
		ORDER BY l.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LocationSummary
	for rows.Next() {
		s := &models.LocationSummary{}
		dest := append(locationDest(&s.Location), &s.CompanyName, &s.DeviceCount, &s.ActiveVisitors)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *locationRepo) ListIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM locations WHERE company_id = $1 AND deleted_at IS NULL`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *locationRepo) CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE company_id = $1 AND deleted_at IS NULL`, companyID).Scan(&n)
	return n, err
}

func (r *locationRepo) Update(ctx context.Context, location *models.Location) error {
	query := `
		UPDATE locations
		SET name = $1, address = $2, latitude = $3, longitude = $4, timezone = $5, status = $6,
			settings = $7, working_hours = $8, contact_info = $9, updated_at = NOW()
		WHERE id = $10 AND deleted_at IS NULL
	`
	return affected(r.db.Exec(ctx, query, location.Name, location.Address, location.Latitude, location.Longitude, location.Timezone, location.Status,
		settingsOrEmpty(location.Settings), settingsOrEmpty(location.WorkingHours), settingsOrEmpty(location.ContactInfo), location.ID))
}

func (r *locationRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE locations SET status = 'inactive', deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	return affected(r.db.Exec(ctx, query, at, id))
}

func (r *locationRepo) CountDependents(ctx context.Context, id uuid.UUID) (*LocationDependents, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM devices WHERE location_id = $1 AND status <> 'inactive'),
			(SELECT COUNT(*) FROM visitors WHERE location_id = $1 AND status = 'checked_in')
	`
	d := &LocationDependents{}
	if err := r.db.QueryRow(ctx, query, id).Scan(&d.Devices, &d.ActiveVisitors); err != nil {
		return nil, err
	}
	return d, nil
}
