package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pronet/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetWithDetails loads the user together with profile and contact info.
	GetWithDetails(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	MarkOnboarded(ctx context.Context, id uuid.UUID) error
	// ListOthers returns every user except the given one, profiles preloaded.
	ListOthers(ctx context.Context, excludeID uuid.UUID) ([]models.User, error)
	// GetManyWithDetails loads users with profile and contact info for a set of IDs.
	GetManyWithDetails(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create creates a new user record in the database.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err // Handles gorm.ErrRecordNotFound as well
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithDetails retrieves a user with profile and contact info preloaded.
func (r *gormUserRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("ContactInfo").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user record in the database.
func (r *gormUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		return gorm.ErrMissingWhereClause
	}
	return r.db.WithContext(ctx).Save(user).Error
}

// MarkOnboarded flips the onboarded flag. The flag never flips back.
func (r *gormUserRepository) MarkOnboarded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_onboarded", true).Error
}

// ListOthers returns all users except excludeID, with profiles preloaded.
// 用于浏览页面；小规模用户量下不分页。
func (r *gormUserRepository) ListOthers(ctx context.Context, excludeID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id != ?", excludeID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetManyWithDetails loads the given users with profile and contact info.
func (r *gormUserRepository) GetManyWithDetails(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("ContactInfo").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
