package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pronet/internal/models"
	"pronet/internal/storage"
)

var ErrUserNotFound = errors.New("用户未找到")

// ProfileInput carries the editable profile fields. Strongly typed on
// purpose; unknown fields are rejected at the JSON boundary.
type ProfileInput struct {
	Bio       string   `json:"bio,omitempty"`
	Role      string   `json:"role,omitempty"`
	Location  string   `json:"location,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// ContactInfoInput carries the editable contact fields.
type ContactInfoInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Address  string `json:"address,omitempty"`
}

// UserService 定义了用户资料相关服务的接口。
type UserService interface {
	// GetUser returns the caller's own record with profile and contact info.
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// GetUserCard returns another user's public card, without contact info.
	GetUserCard(ctx context.Context, userID uuid.UUID) (*models.UserCard, error)
	// ListProfessionals returns everyone except the caller, for browsing.
	ListProfessionals(ctx context.Context, currentUserID uuid.UUID) ([]*models.UserCard, error)
	// UpdateProfile upserts the profile and flips the onboarded flag on
	// first edit. The flag never flips back.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*models.Profile, error)
	UpdateContactInfo(ctx context.Context, userID uuid.UUID, input ContactInfoInput) (*models.ContactInfo, error)
	UpdateProfileImage(ctx context.Context, userID uuid.UUID, imageURL string) (*models.User, error)
}

type userService struct {
	userRepo    storage.UserRepository
	profileRepo storage.ProfileRepository
	contactRepo storage.ContactInfoRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(
	userRepo storage.UserRepository,
	profileRepo storage.ProfileRepository,
	contactRepo storage.ContactInfoRepository,
) UserService {
	return &userService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		contactRepo: contactRepo,
	}
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetWithDetails(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}
	return user, nil
}

func (s *userService) GetUserCard(ctx context.Context, userID uuid.UUID) (*models.UserCard, error) {
	user, err := s.userRepo.GetWithDetails(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}
	return user.Card(), nil
}

func (s *userService) ListProfessionals(ctx context.Context, currentUserID uuid.UUID) ([]*models.UserCard, error) {
	users, err := s.userRepo.ListOthers(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("获取用户列表失败: %w", err)
	}
	cards := make([]*models.UserCard, 0, len(users))
	for i := range users {
		cards = append(cards, users[i].Card())
	}
	return cards, nil
}

// UpdateProfile 写入用户资料；首次保存后将用户标记为已完成引导。
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}

	profile := &models.Profile{
		UserID:    userID,
		Bio:       input.Bio,
		Role:      input.Role,
		Location:  input.Location,
		Skills:    input.Skills,
		Interests: input.Interests,
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("保存用户资料失败: %w", err)
	}

	if !user.IsOnboarded {
		if err := s.userRepo.MarkOnboarded(ctx, userID); err != nil {
			return nil, fmt.Errorf("标记用户已引导失败: %w", err)
		}
	}
	return profile, nil
}

func (s *userService) UpdateContactInfo(ctx context.Context, userID uuid.UUID, input ContactInfoInput) (*models.ContactInfo, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}

	info := &models.ContactInfo{
		UserID:   userID,
		Email:    input.Email,
		Phone:    input.Phone,
		LinkedIn: input.LinkedIn,
		Address:  input.Address,
	}
	if err := s.contactRepo.Upsert(ctx, info); err != nil {
		return nil, fmt.Errorf("保存联系方式失败: %w", err)
	}
	return info, nil
}

// UpdateProfileImage 更新用户头像地址（由上传接口产生）。
func (s *userService) UpdateProfileImage(ctx context.Context, userID uuid.UUID, imageURL string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}

	user.ProfileImage = imageURL
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户头像失败: %w", err)
	}
	return user, nil
}
