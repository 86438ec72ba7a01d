package models

import "github.com/google/uuid"

// User 代表系统中的一个注册用户。
type User struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Email        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	ProfileImage string `gorm:"type:varchar(255)" json:"profileImage,omitempty"`
	// IsOnboarded flips permanently the first time the user saves profile data.
	IsOnboarded bool `gorm:"not null;default:false" json:"isOnboarded"`

	// 关联关系
	Profile     *Profile     `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	ContactInfo *ContactInfo `gorm:"foreignKey:UserID" json:"contactInfo,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}

// UserCard holds the public slice of a user shown on browse pages and in
// connection request listings. Contact info is deliberately absent.
type UserCard struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Profile      *Profile  `json:"profile,omitempty"`
}

// Card 返回用户的公开名片视图。
func (u *User) Card() *UserCard {
	return &UserCard{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		Profile:      u.Profile,
	}
}
