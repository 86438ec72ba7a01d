package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pronet/internal/config"
	"pronet/internal/kafka"
	"pronet/internal/models"
	"pronet/internal/storage"
)

var (
	ErrSelfRequest         = errors.New("不能向自己发送连接请求")
	ErrRecipientNotFound   = errors.New("接收用户不存在")
	ErrRequestExists       = errors.New("两人之间已存在连接请求")
	ErrRequestNotFound     = errors.New("连接请求不存在")
	ErrRequestResolved     = errors.New("该连接请求已被处理")
	ErrNotConnected        = errors.New("只有互相连接的用户才能查看联系方式")
	ErrContactInfoNotFound = errors.New("该用户未设置联系方式")
)

// ConnectionService owns the lifecycle of connection requests between users,
// derives the relationship status of any pair, and gates access to private
// contact info on that status.
type ConnectionService interface {
	SendRequest(ctx context.Context, fromUserID, toUserID uuid.UUID) (*models.ConnectionRequest, error)
	RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, accept bool) error
	GetRelationshipStatus(ctx context.Context, viewerID, otherUserID uuid.UUID) (*models.Relationship, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]models.User, error)
	ListRequests(ctx context.Context, userID uuid.UUID) (*models.ConnectionRequestsOverview, error)
	GetContactInfo(ctx context.Context, viewerID, ownerID uuid.UUID) (*models.ContactInfo, error)
}

// ConnectionEvent is the payload published to Kafka after a request is
// created or accepted. Purely informational; no consumer participates in the
// request lifecycle.
type ConnectionEvent struct {
	Type       string    `json:"type"`
	RequestID  uuid.UUID `json:"requestId"`
	FromUserID uuid.UUID `json:"fromUserId"`
	ToUserID   uuid.UUID `json:"toUserId"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	eventConnectionRequested = "connection.requested"
	eventConnectionAccepted  = "connection.accepted"
)

type connectionService struct {
	userRepo    storage.UserRepository
	requestRepo storage.ConnectionRequestRepository
	contactRepo storage.ContactInfoRepository
	producer    kafka.MessageProducer // may be nil, e.g. in tests
	kafkaConfig config.KafkaConfig
}

// NewConnectionService creates a new ConnectionService instance.
func NewConnectionService(
	userRepo storage.UserRepository,
	requestRepo storage.ConnectionRequestRepository,
	contactRepo storage.ContactInfoRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) ConnectionService {
	return &connectionService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		contactRepo: contactRepo,
		producer:    producer,
		kafkaConfig: kafkaCfg,
	}
}

// SendRequest creates a pending request from one user to another.
// Any existing request between the pair, in either direction and of any
// status, blocks a new one: a rejected request permanently closes the pair.
func (s *connectionService) SendRequest(ctx context.Context, fromUserID, toUserID uuid.UUID) (*models.ConnectionRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfRequest
	}

	// 1. 检查接收用户是否存在
	if _, err := s.userRepo.GetByID(ctx, toUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("检查接收用户时出错: %w", err)
	}

	// 2. 检查两人之间是否已存在任意状态的请求
	existing, err := s.requestRepo.FindBetween(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("检查现有请求时出错: %w", err)
	}
	if existing != nil {
		return nil, ErrRequestExists
	}

	request := &models.ConnectionRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     models.ConnectionRequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		// 唯一索引兜底：两个并发 SendRequest 的竞争者在这里落败
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRequestExists
		}
		return nil, fmt.Errorf("创建连接请求失败: %w", err)
	}

	s.publishEvent(ctx, eventConnectionRequested, request)
	return request, nil
}

// RespondToRequest accepts or rejects a pending request. Only the addressed
// recipient may respond; anyone else gets the same not-found error as a
// nonexistent request, so existence is not leaked to non-recipients.
func (s *connectionService) RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, accept bool) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("检索连接请求失败: %w", err)
	}

	if request.ToUserID != responderID {
		return ErrRequestNotFound
	}
	if request.Status != models.ConnectionRequestStatusPending {
		return ErrRequestResolved
	}

	status := models.ConnectionRequestStatusRejected
	if accept {
		status = models.ConnectionRequestStatusAccepted
	}
	if err := s.requestRepo.UpdateStatus(ctx, requestID, status); err != nil {
		return fmt.Errorf("更新连接请求状态失败: %w", err)
	}

	if accept {
		request.Status = status
		s.publishEvent(ctx, eventConnectionAccepted, request)
	}
	return nil
}

// GetRelationshipStatus derives the relationship between two users from the
// single request row joining them, if any. Acceptance is symmetric; any other
// row reports sent/received from the viewer's side.
func (s *connectionService) GetRelationshipStatus(ctx context.Context, viewerID, otherUserID uuid.UUID) (*models.Relationship, error) {
	request, err := s.requestRepo.FindBetween(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("查询连接请求失败: %w", err)
	}
	if request == nil {
		return &models.Relationship{Status: models.RelationshipNone}, nil
	}
	if request.Status == models.ConnectionRequestStatusAccepted {
		return &models.Relationship{Status: models.RelationshipConnected}, nil
	}

	requestID := request.ID
	if request.FromUserID == viewerID {
		return &models.Relationship{Status: models.RelationshipSent, RequestID: &requestID}, nil
	}
	return &models.Relationship{Status: models.RelationshipReceived, RequestID: &requestID}, nil
}

// ListConnections returns the counterpart of every accepted request involving
// the user, with profile and contact info loaded. Connected users may see
// each other's contact info, so including it here leaks nothing.
func (s *connectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	ids, err := s.requestRepo.GetConnectedUserIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取连接列表失败: %w", err)
	}
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	users, err := s.userRepo.GetManyWithDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("获取连接用户信息失败: %w", err)
	}
	return users, nil
}

// ListRequests returns the user's sent and received requests of any status,
// each enriched with the counterpart's public card.
func (s *connectionService) ListRequests(ctx context.Context, userID uuid.UUID) (*models.ConnectionRequestsOverview, error) {
	sent, err := s.requestRepo.ListFrom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取已发送请求失败: %w", err)
	}
	received, err := s.requestRepo.ListTo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取已接收请求失败: %w", err)
	}

	counterpartIDs := make([]uuid.UUID, 0, len(sent)+len(received))
	for _, req := range sent {
		counterpartIDs = append(counterpartIDs, req.ToUserID)
	}
	for _, req := range received {
		counterpartIDs = append(counterpartIDs, req.FromUserID)
	}

	cards := make(map[uuid.UUID]*models.UserCard, len(counterpartIDs))
	if len(counterpartIDs) > 0 {
		users, err := s.userRepo.GetManyWithDetails(ctx, counterpartIDs)
		if err != nil {
			return nil, fmt.Errorf("获取请求关联用户失败: %w", err)
		}
		for i := range users {
			cards[users[i].ID] = users[i].Card()
		}
	}

	overview := &models.ConnectionRequestsOverview{
		Sent:     make([]*models.ConnectionRequestWithUser, 0, len(sent)),
		Received: make([]*models.ConnectionRequestWithUser, 0, len(received)),
	}
	for _, req := range sent {
		overview.Sent = append(overview.Sent, &models.ConnectionRequestWithUser{
			ConnectionRequest: req,
			User:              cards[req.ToUserID],
		})
	}
	for _, req := range received {
		overview.Received = append(overview.Received, &models.ConnectionRequestWithUser{
			ConnectionRequest: req,
			User:              cards[req.FromUserID],
		})
	}
	return overview, nil
}

// GetContactInfo returns the owner's contact info. The owner always sees
// their own; anyone else must be connected with the owner first.
func (s *connectionService) GetContactInfo(ctx context.Context, viewerID, ownerID uuid.UUID) (*models.ContactInfo, error) {
	if viewerID != ownerID {
		request, err := s.requestRepo.FindBetween(ctx, viewerID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("查询连接状态失败: %w", err)
		}
		if request == nil || request.Status != models.ConnectionRequestStatusAccepted {
			return nil, ErrNotConnected
		}
	}

	info, err := s.contactRepo.GetByUserID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactInfoNotFound
		}
		return nil, fmt.Errorf("获取联系方式失败: %w", err)
	}
	return info, nil
}

// publishEvent 发布连接事件到 Kafka。发布失败只记录日志，不影响请求本身。
func (s *connectionService) publishEvent(ctx context.Context, eventType string, request *models.ConnectionRequest) {
	if s.producer == nil {
		return
	}

	event := ConnectionEvent{
		Type:       eventType,
		RequestID:  request.ID,
		FromUserID: request.FromUserID,
		ToUserID:   request.ToUserID,
		Timestamp:  time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling connection event %s for request %s: %v", eventType, request.ID, err)
		return
	}

	key := []byte(fmt.Sprintf("%s-%s", request.FromUserID, request.ToUserID))
	if err := s.producer.SendMessage(ctx, s.kafkaConfig.ConnectionEventsTopic, key, payload); err != nil {
		log.Printf("Error publishing connection event %s for request %s: %v", eventType, request.ID, err)
	}
}
