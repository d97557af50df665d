package database

import (
	_ "embed"
	"os"

	"meeting-assistant/internal/models"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/mock_users.yaml
var defaultFixtures []byte

type fixtureFile struct {
	Users []models.MockUser `yaml:"users"`
}

// LoadFixtures reads mock users from path, or the embedded defaults when path is empty.
func LoadFixtures(path string) ([]models.MockUser, error) {
	data := defaultFixtures
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read fixtures")
		}
		data = b
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse fixtures")
	}
	for i, u := range f.Users {
		if u.ID == "" || u.Name == "" {
			return nil, errors.Errorf("fixture user %d: id and name are required", i)
		}
	}
	return f.Users, nil
}

// SeedMockUsers inserts users when the mock_users table is empty. It
// returns how many users were written.
func SeedMockUsers(db *gorm.DB, users []models.MockUser) (int, error) {
	var count int64
	if err := db.Model(&models.MockUser{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count mock users")
	}
	if count > 0 || len(users) == 0 {
		return 0, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&users).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "seed mock users")
	}
	return len(users), nil
}
