package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP"} {
		err := Migrate("postgres://localhost/rateboard", direction)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "direction must be up or down")
	}
}

func TestMigrate_EmptyDSN(t *testing.T) {
	err := Migrate("", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is empty")
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrationFS_DeclaresUniqueConstraints(t *testing.T) {
	data, err := fs.ReadFile(migrationFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)")
	assert.Contains(t, sql, "UNIQUE INDEX IF NOT EXISTS idx_organizations_name ON organizations (name)")
	assert.Contains(t, sql, "UNIQUE INDEX IF NOT EXISTS idx_memberships_user_org ON organization_memberships (user_id, organization_id)")
}
