// Package dbtest opens throwaway SQLite databases carrying the full schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
)

// New returns a migrated in-memory database private to the calling test.
func New(t testing.TB) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:bl_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	client, err := db.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

// SeedBank inserts a minimal blood bank row with the given id.
func SeedBank(t testing.TB, client *db.Client, id uuid.UUID) {
	t.Helper()
	bank := models.BloodBank{
		ID:            id,
		Name:          "Bank " + id.String()[:8],
		LicenseNumber: "LIC-" + id.String(),
		LicenseExpiry: time.Now().AddDate(1, 0, 0),
		ContactPerson: "Test Admin",
		Email:         "bank-" + id.String()[:8] + "@example.com",
		Phone:         "555 010 0000",
		Address:       "1 Test Street",
		City:          "Testville",
	}
	if err := client.DB().Create(&bank).Error; err != nil {
		t.Fatalf("seed bank: %v", err)
	}
}
