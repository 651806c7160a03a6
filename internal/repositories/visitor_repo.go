package repositories

import (
	"context"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VisitorStats are the counters shown on the analytics dashboards.
type VisitorStats struct {
	Total  int
	Active int
	Today  int
}

type VisitorRepository interface {
	Create(ctx context.Context, visitor *models.Visitor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Visitor, error)
	List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visitor, error)
	Update(ctx context.Context, visitor *models.Visitor) error
	Checkout(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByForm(ctx context.Context, formID string) (int, error)
	Stats(ctx context.Context, locationIDs []uuid.UUID, dayStart time.Time) (*VisitorStats, error)
}

const visitorColumns = `id, company_id, form_id, location_id, data, check_in_time, check_out_time, status, host_notified, notes, created_at, updated_at`

type visitorRepo struct {
	db DBTX
}

func NewVisitorRepo(db DBTX) VisitorRepository {
	return &visitorRepo{db: db}
}

func scanVisitor(row pgx.Row) (*models.Visitor, error) {
	v := &models.Visitor{}
	err := row.Scan(&v.ID, &v.CompanyID, &v.FormID, &v.LocationID, &v.Data, &v.CheckInTime, &v.CheckOutTime, &v.Status,
		&v.HostNotified, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (r *visitorRepo) Create(ctx context.Context, v *models.Visitor) error {
	query := `
		INSERT INTO visitors (id, company_id, form_id, location_id, data, check_in_time, status, host_notified, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := r.db.Exec(ctx, query, v.ID, v.CompanyID, v.FormID, v.LocationID, settingsOrEmpty(v.Data), v.CheckInTime, v.Status,
		v.HostNotified, v.Notes, v.CreatedAt)
	return err
}

func (r *visitorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1`
	return scanVisitor(r.db.QueryRow(ctx, query, id))
}

// List returns visitors newest first. A nil LocationIDs lists every location;
// an empty non-nil slice matches nothing.
func (r *visitorRepo) List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visitor, error) {
	if filter.LocationIDs != nil && len(filter.LocationIDs) == 0 {
		return []*models.Visitor{}, nil
	}

	var locations any
	if filter.LocationIDs != nil {
		locations = filter.LocationIDs
	}
	var status any
	if filter.Status != "" {
		status = filter.Status
	}

	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE ($1::uuid[] IS NULL OR location_id = ANY($1)) AND ($2::text IS NULL OR status = $2)
		ORDER BY check_in_time DESC
		LIMIT NULLIF($3::int, 0) OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, locations, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visitors := []*models.Visitor{}
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// Update writes data, notes and the host flag. Checked-out visitors are frozen.
func (r *visitorRepo) Update(ctx context.Context, v *models.Visitor) error {
	query := `
		UPDATE visitors
		SET data = $1, notes = $2, host_notified = $3, updated_at = NOW()
		WHERE id = $4 AND status <> 'checked_out'
	`
	return affected(r.db.Exec(ctx, query, settingsOrEmpty(v.Data), v.Notes, v.HostNotified, v.ID))
}

// Checkout sets status and check_out_time together, once.
func (r *visitorRepo) Checkout(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE visitors
		SET status = 'checked_out', check_out_time = $1, updated_at = $1
		WHERE id = $2 AND status <> 'checked_out'
	`
	return affected(r.db.Exec(ctx, query, at, id))
}

func (r *visitorRepo) CountByForm(ctx context.Context, formID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM visitors WHERE form_id = $1`, formID).Scan(&n)
	return n, err
}

// Stats counts visitors across the given locations; nil means every location.
func (r *visitorRepo) Stats(ctx context.Context, locationIDs []uuid.UUID, dayStart time.Time) (*VisitorStats, error) {
	stats := &VisitorStats{}
	if locationIDs != nil && len(locationIDs) == 0 {
		return stats, nil
	}

	var locations any
	if locationIDs != nil {
		locations = locationIDs
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'checked_in'),
			COUNT(*) FILTER (WHERE check_in_time >= $2)
		FROM visitors
		WHERE ($1::uuid[] IS NULL OR location_id = ANY($1))
	`
	err := r.db.QueryRow(ctx, query, locations, dayStart).Scan(&stats.Total, &stats.Active, &stats.Today)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
