package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pronet/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open db")
	require.NoError(t, AutoMigrateTables(db), "migrate")
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         email,
		Email:        email,
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestFindBetweenEitherDirection(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	req := &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.ConnectionRequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, req))

	// 两个方向都能命中同一行
	found, err := repo.FindBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, req.ID, found.ID)

	found, err = repo.FindBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, req.ID, found.ID)

	carol := seedUser(t, db, "carol@example.com")
	found, err = repo.FindBetween(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPairUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	first := &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.ConnectionRequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, first))

	// 并发竞争中后到的插入必须被唯一索引拒绝，即使方向相反
	second := &models.ConnectionRequest{
		FromUserID: bob.ID,
		ToUserID:   alice.ID,
		Status:     models.ConnectionRequestStatusPending,
	}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUpdateStatusAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	req := &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.ConnectionRequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, req))

	require.NoError(t, repo.UpdateStatus(ctx, req.ID, models.ConnectionRequestStatusAccepted))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRequestStatusAccepted, got.Status)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetConnectedUserIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	carol := seedUser(t, db, "carol@example.com")
	dave := seedUser(t, db, "dave@example.com")

	// alice 发出并被接受
	require.NoError(t, repo.Create(ctx, &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.ConnectionRequestStatusAccepted,
	}))
	// alice 收到并已接受
	require.NoError(t, repo.Create(ctx, &models.ConnectionRequest{
		FromUserID: carol.ID,
		ToUserID:   alice.ID,
		Status:     models.ConnectionRequestStatusAccepted,
	}))
	// 待处理的不计入
	require.NoError(t, repo.Create(ctx, &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   dave.ID,
		Status:     models.ConnectionRequestStatusPending,
	}))

	ids, err := repo.GetConnectedUserIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{bob.ID, carol.ID}, ids)
}

func TestListFromAndTo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	carol := seedUser(t, db, "carol@example.com")

	require.NoError(t, repo.Create(ctx, &models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.ConnectionRequestStatusPending,
	}))
	require.NoError(t, repo.Create(ctx, &models.ConnectionRequest{
		FromUserID: carol.ID,
		ToUserID:   alice.ID,
		Status:     models.ConnectionRequestStatusRejected,
	}))

	sent, err := repo.ListFrom(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, bob.ID, sent[0].ToUserID)

	received, err := repo.ListTo(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, carol.ID, received[0].FromUserID)
	assert.Equal(t, models.ConnectionRequestStatusRejected, received[0].Status)
}
