package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile 是用户的职业资料，与 User 一对一，首次编辑时创建。
type Profile struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	Bio      string    `gorm:"type:text" json:"bio,omitempty"`
	Role     string    `gorm:"type:varchar(100)" json:"role,omitempty"`
	Location string    `gorm:"type:varchar(100)" json:"location,omitempty"`
	// Skill and interest labels are unordered sets; stored as JSON so the
	// model works unchanged on both postgres and sqlite.
	Skills    []string  `gorm:"serializer:json" json:"skills,omitempty"`
	Interests []string  `gorm:"serializer:json" json:"interests,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定 Profile 模型的表名。
func (Profile) TableName() string {
	return "profiles"
}
