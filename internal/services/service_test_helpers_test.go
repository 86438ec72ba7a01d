package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pronet/internal/config"
	"pronet/internal/models"
	"pronet/internal/storage"
)

// setupTestDB opens an isolated in-memory database and migrates all models.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open db")
	require.NoError(t, storage.AutoMigrateTables(db), "migrate")
	return db
}

// createTestUser seeds a user and returns it.
func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error, "seed user %s", email)
	return user
}

// newTestConnectionService wires a ConnectionService against the given DB
// with no event producer.
func newTestConnectionService(db *gorm.DB) ConnectionService {
	return NewConnectionService(
		storage.NewGormUserRepository(db),
		storage.NewGormConnectionRequestRepository(db),
		storage.NewGormContactInfoRepository(db),
		nil,
		config.KafkaConfig{},
	)
}
