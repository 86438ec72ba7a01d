package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionRequestStatus 定义连接请求的状态。
type ConnectionRequestStatus string

const (
	ConnectionRequestStatusPending  ConnectionRequestStatus = "pending"
	ConnectionRequestStatusAccepted ConnectionRequestStatus = "accepted"
	ConnectionRequestStatusRejected ConnectionRequestStatus = "rejected"
)

// RelationshipStatus 描述两个用户之间由连接请求推导出的关系。
type RelationshipStatus string

const (
	RelationshipNone      RelationshipStatus = "none"
	RelationshipSent      RelationshipStatus = "sent"
	RelationshipReceived  RelationshipStatus = "received"
	RelationshipConnected RelationshipStatus = "connected"
)

// ConnectionRequest 代表一条有向的连接请求记录。
// Direction is fixed at creation; only the recipient may change the status,
// and only once: pending -> accepted | rejected.
type ConnectionRequest struct {
	BaseModel
	FromUserID uuid.UUID               `gorm:"type:uuid;not null;index" json:"fromUserId"`
	ToUserID   uuid.UUID               `gorm:"type:uuid;not null;index" json:"toUserId"`
	Status     ConnectionRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	// PairLo/PairHi hold the unordered pair in canonical order. The unique
	// index is what actually guarantees at most one request per pair when two
	// sends race past the application-level existence check.
	PairLo uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_connection_request_pair" json:"-"`
	PairHi uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_connection_request_pair" json:"-"`
}

// TableName 指定 ConnectionRequest 模型的表名。
func (ConnectionRequest) TableName() string {
	return "connection_requests"
}

// BeforeCreate fills the canonical pair columns from the directed edge.
func (r *ConnectionRequest) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	r.PairLo, r.PairHi = CanonicalPair(r.FromUserID, r.ToUserID)
	return nil
}

// CanonicalPair 返回按字节序排列的无序用户对，用于唯一索引与查询。
func CanonicalPair(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// ConnectionRequestWithUser is a DTO pairing a request with the counterpart's
// public card. For sent requests the counterpart is the recipient, for
// received requests the sender.
type ConnectionRequestWithUser struct {
	ConnectionRequest
	User *UserCard `json:"user"`
}

// ConnectionRequestsOverview groups a user's requests by direction.
type ConnectionRequestsOverview struct {
	Sent     []*ConnectionRequestWithUser `json:"sent"`
	Received []*ConnectionRequestWithUser `json:"received"`
}

// Relationship is the derived status between a viewer and another user,
// carrying the request ID when a request row exists.
type Relationship struct {
	Status    RelationshipStatus `json:"status"`
	RequestID *uuid.UUID         `json:"requestId,omitempty"`
}
