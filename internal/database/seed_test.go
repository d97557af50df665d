package database

import (
	"os"
	"path/filepath"
	"testing"

	"meeting-assistant/internal/config"
	"meeting-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadFixtures_Default(t *testing.T) {
	users, err := LoadFixtures("")
	require.NoError(t, err)
	require.NotEmpty(t, users)

	assert.Equal(t, "1", users[0].ID)
	require.NotEmpty(t, users[0].Availability)
	assert.True(t, users[0].Availability[0].End.After(users[0].Availability[0].Start))
}

func TestLoadFixtures_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - name: nobody\n"), 0o644))

	_, err := LoadFixtures(path)
	assert.Error(t, err)

	_, err = LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedMockUsers_OnlyWhenEmpty(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "seed.db")}
	db, err := InitGorm(cfg, zap.NewNop())
	require.NoError(t, err)

	users, err := LoadFixtures("")
	require.NoError(t, err)

	n, err := SeedMockUsers(db, users)
	require.NoError(t, err)
	assert.Equal(t, len(users), n)

	n, err = SeedMockUsers(db, users)
	require.NoError(t, err)
	assert.Zero(t, n)

	var stored models.MockUser
	require.NoError(t, db.Preload("Availability").First(&stored, "id = ?", "2").Error)
	assert.Equal(t, "候选人B", stored.Name)
	assert.Len(t, stored.Availability, 2)
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
	assert.Contains(t, PostgresDSN(&config.Config{DBHost: "db", DBPort: "5432"}), "host=db")
}
