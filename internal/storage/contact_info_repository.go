package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pronet/internal/models"
)

// ContactInfoRepository defines the interface for contact info data operations.
type ContactInfoRepository interface {
	Upsert(ctx context.Context, info *models.ContactInfo) error
	// GetByUserID returns gorm.ErrRecordNotFound when the owner never set
	// contact info; callers surface that as their own not-found error.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ContactInfo, error)
}

type gormContactInfoRepository struct {
	db *gorm.DB
}

// NewGormContactInfoRepository creates a new GORM-based ContactInfoRepository.
func NewGormContactInfoRepository(db *gorm.DB) ContactInfoRepository {
	return &gormContactInfoRepository{db: db}
}

// Upsert 以 user_id 为冲突键写入联系方式。
func (r *gormContactInfoRepository) Upsert(ctx context.Context, info *models.ContactInfo) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(info).Error
}

func (r *gormContactInfoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ContactInfo, error) {
	var info models.ContactInfo
	err := r.db.WithContext(ctx).First(&info, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}
