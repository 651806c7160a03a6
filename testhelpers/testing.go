package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the migrations. The
// test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, database.PoolConfig{URL: connString, MaxConns: 4}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool, zap.NewNop()); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db := &TestDB{Pool: pool, Cleanup: pool.Close}
	t.Cleanup(db.Cleanup)
	return db
}

// SetupTestCompany inserts an active company
func SetupTestCompany(t *testing.T, db *TestDB) *models.Company {
	t.Helper()

	now := time.Now().UTC()
	company := &models.Company{
		ID:           uuid.New(),
		Name:         "Test Company " + uuid.NewString()[:8],
		Status:       models.CompanyStatusActive,
		MaxLocations: 5,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `
		INSERT INTO companies (id, name, status, max_locations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		company.ID, company.Name, company.Status, company.MaxLocations, company.CreatedAt, company.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test company: %v", err)
	}
	return company
}

// SetupTestLocation inserts an active location under companyID with a unique
// linking code.
func SetupTestLocation(t *testing.T, db *TestDB, companyID uuid.UUID) *models.Location {
	t.Helper()

	now := time.Now().UTC()
	location := &models.Location{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Name:        "Lobby",
		Timezone:    "UTC",
		Status:      models.LocationStatusActive,
		LinkingCode: fmt.Sprintf("T%07d", now.UnixNano()%10000000),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query := `
		INSERT INTO locations (id, company_id, name, timezone, status, linking_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		location.ID, location.CompanyID, location.Name, location.Timezone, location.Status,
		location.LinkingCode, location.CreatedAt, location.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test location: %v", err)
	}
	return location
}

// SetupTestDevice inserts an active kiosk bound to location.
func SetupTestDevice(t *testing.T, db *TestDB, location *models.Location, token string) *models.Device {
	t.Helper()

	now := time.Now().UTC()
	device := &models.Device{
		ID:          uuid.New(),
		CompanyID:   location.CompanyID,
		LocationID:  location.ID,
		Name:        "Front desk",
		DeviceType:  "tablet",
		DeviceID:    "kiosk-" + uuid.NewString()[:8],
		DeviceToken: &token,
		Status:      models.DeviceStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query := `
		INSERT INTO devices (id, company_id, location_id, name, device_type, device_id, device_token, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		device.ID, device.CompanyID, device.LocationID, device.Name, device.DeviceType, device.DeviceID,
		device.DeviceToken, device.Status, device.CreatedAt, device.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test device: %v", err)
	}
	return device
}
