package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pronet/internal/models"
)

// ConnectionRequestRepository defines the interface for connection request
// data operations.
type ConnectionRequestRepository interface {
	Create(ctx context.Context, request *models.ConnectionRequest) error
	// FindBetween returns the single request joining the unordered pair,
	// regardless of direction or status, or nil when none exists.
	FindBetween(ctx context.Context, userID1, userID2 uuid.UUID) (*models.ConnectionRequest, error)
	GetByID(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error)
	UpdateStatus(ctx context.Context, requestID uuid.UUID, status models.ConnectionRequestStatus) error
	ListFrom(ctx context.Context, fromUserID uuid.UUID) ([]models.ConnectionRequest, error)
	ListTo(ctx context.Context, toUserID uuid.UUID) ([]models.ConnectionRequest, error)
	// GetConnectedUserIDs returns the counterpart IDs of all accepted
	// requests involving the given user, in either direction.
	GetConnectedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type gormConnectionRequestRepository struct {
	db *gorm.DB
}

// NewGormConnectionRequestRepository creates a new GORM-based
// ConnectionRequestRepository.
func NewGormConnectionRequestRepository(db *gorm.DB) ConnectionRequestRepository {
	return &gormConnectionRequestRepository{db: db}
}

func (r *gormConnectionRequestRepository) Create(ctx context.Context, request *models.ConnectionRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindBetween looks up the pair via the canonical columns, so a single indexed
// query covers both directions.
func (r *gormConnectionRequestRepository) FindBetween(ctx context.Context, userID1, userID2 uuid.UUID) (*models.ConnectionRequest, error) {
	lo, hi := models.CanonicalPair(userID1, userID2)
	var request models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("pair_lo = ? AND pair_hi = ?", lo, hi).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 不存在请求在这里不算错误
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormConnectionRequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	var request models.ConnectionRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormConnectionRequestRepository) UpdateStatus(ctx context.Context, requestID uuid.UUID, status models.ConnectionRequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ConnectionRequest{}).
		Where("id = ?", requestID).
		Update("status", status).Error
}

func (r *gormConnectionRequestRepository) ListFrom(ctx context.Context, fromUserID uuid.UUID) ([]models.ConnectionRequest, error) {
	var requests []models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("from_user_id = ?", fromUserID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *gormConnectionRequestRepository) ListTo(ctx context.Context, toUserID uuid.UUID) ([]models.ConnectionRequest, error) {
	var requests []models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("to_user_id = ?", toUserID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// GetConnectedUserIDs unions the counterparts of accepted requests where the
// user is the sender with those where the user is the recipient.
func (r *gormConnectionRequestRepository) GetConnectedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var idsAsSender []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ConnectionRequest{}).
		Where("from_user_id = ? AND status = ?", userID, models.ConnectionRequestStatusAccepted).
		Pluck("to_user_id", &idsAsSender).Error
	if err != nil {
		return nil, err
	}

	var idsAsRecipient []uuid.UUID
	err = r.db.WithContext(ctx).
		Model(&models.ConnectionRequest{}).
		Where("to_user_id = ? AND status = ?", userID, models.ConnectionRequestStatusAccepted).
		Pluck("from_user_id", &idsAsRecipient).Error
	if err != nil {
		return nil, err
	}

	return append(idsAsSender, idsAsRecipient...), nil
}
