package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationSortsAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "20990101000000_create_donor_badges.sql")
	require.NoError(t, os.WriteFile(future, []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "Add badge expiry", now)
	require.NoError(t, err)
	assert.Equal(t, "20990101000001_add_badge_expiry.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsReusedName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := createSQLMigration(dir, "add_blood_drives", now)
	require.NoError(t, err)

	_, err = createSQLMigration(dir, "Add Blood Drives", now.Add(time.Hour))
	assert.ErrorContains(t, err, "already exists")
}

func TestCreateSQLMigrationScaffoldsTables(t *testing.T) {
	dir := t.TempDir()
	path, err := createSQLMigration(dir, "create_blood_drives", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "CREATE TABLE IF NOT EXISTS blood_drives (")
	assert.Contains(t, string(raw), "DROP TABLE IF EXISTS blood_drives;")
}
