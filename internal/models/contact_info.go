package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactInfo 保存用户的私密联系方式，与 User 一对一。
// Always visible to the owner; visible to others only once the two users are
// connected (enforced by the connection service, not here).
type ContactInfo struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	Email     string    `gorm:"type:varchar(100);not null" json:"email"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone,omitempty"`
	LinkedIn  string    `gorm:"type:varchar(255)" json:"linkedin,omitempty"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定 ContactInfo 模型的表名。
func (ContactInfo) TableName() string {
	return "contact_info"
}
