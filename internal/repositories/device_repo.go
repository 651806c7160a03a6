package repositories

import (
	"context"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	GetByToken(ctx context.Context, token string) (*models.Device, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, scope *uuid.UUID, locationID *uuid.UUID) ([]*models.Device, error)
	CountActiveByLocation(ctx context.Context, locationID uuid.UUID) (int, error)
	Update(ctx context.Context, device *models.Device) error
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
	Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error)
	Counts(ctx context.Context, scope *uuid.UUID, onlineSince time.Time) (total, online int, err error)
}

const deviceColumns = `id, company_id, location_id, name, device_type, device_id, device_token, status, is_online,
		last_heartbeat, last_seen, settings, assigned_forms, created_at, updated_at`

type deviceRepo struct {
	db DBTX
}

func NewDeviceRepo(db DBTX) DeviceRepository {
	return &deviceRepo{db: db}
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	d := &models.Device{}
	err := row.Scan(&d.ID, &d.CompanyID, &d.LocationID, &d.Name, &d.DeviceType, &d.DeviceID, &d.DeviceToken, &d.Status, &d.IsOnline,
		&d.LastHeartbeat, &d.LastSeen, &d.Settings, &d.AssignedForms, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *deviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (id, company_id, location_id, name, device_type, device_id, device_token, status, is_online,
			last_seen, settings, assigned_forms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, device.ID, device.CompanyID, device.LocationID, device.Name, device.DeviceType, device.DeviceID,
		device.DeviceToken, device.Status, device.IsOnline, device.LastSeen, settingsOrEmpty(device.Settings), permissionsOrEmpty(device.AssignedForms))
	return err
}

func (r *deviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return scanDevice(r.db.QueryRow(ctx, query, id))
}

func (r *deviceRepo) GetByToken(ctx context.Context, token string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_token = $1`
	return scanDevice(r.db.QueryRow(ctx, query, token))
}

func (r *deviceRepo) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE devices SET last_seen = $1 WHERE id = $2`, at, id)
	return err
}

func (r *deviceRepo) List(ctx context.Context, scope *uuid.UUID, locationID *uuid.UUID) ([]*models.Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE ($1::uuid IS NULL OR company_id = $1) AND ($2::uuid IS NULL OR location_id = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope), scopeArg(locationID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// CountActiveByLocation counts devices that occupy a quota slot.
func (r *deviceRepo) CountActiveByLocation(ctx context.Context, locationID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE location_id = $1 AND status <> 'inactive'`, locationID).Scan(&n)
	return n, err
}

func (r *deviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := `
		UPDATE devices
		SET name = $1, device_type = $2, device_id = $3, status = $4, settings = $5, assigned_forms = $6, updated_at = NOW()
		WHERE id = $7
	`
	return affected(r.db.Exec(ctx, query, device.Name, device.DeviceType, device.DeviceID, device.Status,
		settingsOrEmpty(device.Settings), permissionsOrEmpty(device.AssignedForms), device.ID))
}

func (r *deviceRepo) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE devices SET status = 'inactive', is_online = FALSE, deleted_at = $1, updated_at = $1 WHERE id = $2`
	return affected(r.db.Exec(ctx, query, at, id))
}

// Heartbeat marks the device online. The bool reports whether a row matched.
func (r *deviceRepo) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE devices SET is_online = TRUE, last_heartbeat = $1, updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkStaleOffline clears is_online on devices whose last heartbeat is older than cutoff.
func (r *deviceRepo) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE devices
		SET is_online = FALSE
		WHERE is_online = TRUE AND (last_heartbeat IS NULL OR last_heartbeat < $1)
	`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *deviceRepo) Counts(ctx context.Context, scope *uuid.UUID, onlineSince time.Time) (int, int, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE last_heartbeat >= $2)
		FROM devices
		WHERE status <> 'inactive' AND ($1::uuid IS NULL OR company_id = $1)
	`
	var total, online int
	err := r.db.QueryRow(ctx, query, scopeArg(scope), onlineSince).Scan(&total, &online)
	return total, online, err
}
