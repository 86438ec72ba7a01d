package apiserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pronet/internal/auth"
	"pronet/internal/config"
	"pronet/internal/middleware"
	"pronet/internal/models"
	"pronet/internal/services"
	"pronet/internal/storage"
)

const testJWTSecret = "handler-test-secret"

type handlerTestEnv struct {
	db     *gorm.DB
	router *mux.Router
}

// newHandlerTestEnv wires the connection routes the way the API server does,
// against an in-memory database and without an event producer.
func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open db")
	require.NoError(t, storage.AutoMigrateTables(db), "migrate")

	connectionService := services.NewConnectionService(
		storage.NewGormUserRepository(db),
		storage.NewGormConnectionRequestRepository(db),
		storage.NewGormContactInfoRepository(db),
		nil,
		config.KafkaConfig{},
	)
	connectionHandler := NewConnectionHandler(connectionService)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(testJWTSecret, nil))
	api.HandleFunc("/connection-requests", connectionHandler.SendRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/connection-requests", connectionHandler.ListRequestsHandler).Methods(http.MethodGet)
	api.HandleFunc("/connection-requests/{requestID}/respond", connectionHandler.RespondHandler).Methods(http.MethodPost)
	api.HandleFunc("/connections", connectionHandler.ListConnectionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/connection-status", connectionHandler.GetStatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/contact-info", connectionHandler.GetContactInfoHandler).Methods(http.MethodGet)

	return &handlerTestEnv{db: db, router: router}
}

func (env *handlerTestEnv) seedUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
	}
	require.NoError(t, env.db.Create(user).Error, "seed user %s", email)
	return user
}

func (env *handlerTestEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user.ID, user.Email, config.AuthConfig{
		JWTSecretKey: testJWTSecret,
		JWTExpiry:    time.Hour,
	})
	require.NoError(t, err)
	return token
}

func (env *handlerTestEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestSendRequestHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com")
	bob := env.seedUser(t, "Bob", "bob@example.com")
	aliceToken := env.tokenFor(t, alice)

	rec := env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: bob.ID})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// 重复发送
	rec = env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: bob.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 发给自己
	rec = env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: alice.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 接收者不存在
	rec = env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: uuid.New()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRequestHandlerUnauthorized(t *testing.T) {
	env := newHandlerTestEnv(t)
	bob := env.seedUser(t, "Bob", "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/connection-requests", "", SendRequestPayload{ToUserID: bob.ID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/connection-requests", "not-a-token", SendRequestPayload{ToUserID: bob.ID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRespondHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com")
	bob := env.seedUser(t, "Bob", "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/connection-requests", env.tokenFor(t, alice), SendRequestPayload{ToUserID: bob.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var pending models.ConnectionRequest
	require.NoError(t, env.db.First(&pending).Error)
	respondPath := fmt.Sprintf("/api/v1/connection-requests/%s/respond", pending.ID)

	// 发送者不能响应自己的请求，表现为 404
	rec = env.do(t, http.MethodPost, respondPath, env.tokenFor(t, alice), RespondPayload{Accept: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bobToken := env.tokenFor(t, bob)
	rec = env.do(t, http.MethodPost, respondPath, bobToken, RespondPayload{Accept: true})
	assert.Equal(t, http.StatusOK, rec.Code)

	// 再次响应返回 409
	rec = env.do(t, http.MethodPost, respondPath, bobToken, RespondPayload{Accept: false})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 不存在的请求
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/connection-requests/%s/respond", uuid.New()), bobToken, RespondPayload{Accept: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRequestsAndConnectionsHandlers(t *testing.T) {
	env := newHandlerTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com")
	bob := env.seedUser(t, "Bob", "bob@example.com")
	carol := env.seedUser(t, "Carol", "carol@example.com")
	aliceToken := env.tokenFor(t, alice)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: bob.ID}).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/v1/connection-requests", env.tokenFor(t, carol), SendRequestPayload{ToUserID: alice.ID}).Code)

	rec := env.do(t, http.MethodGet, "/api/v1/connection-requests", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview models.ConnectionRequestsOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Sent, 1)
	require.Len(t, overview.Received, 1)
	assert.Equal(t, bob.ID, overview.Sent[0].User.ID)
	assert.Equal(t, carol.ID, overview.Received[0].User.ID)

	// bob 接受后出现在 alice 的连接列表中
	var pending models.ConnectionRequest
	require.NoError(t, env.db.First(&pending, "to_user_id = ?", bob.ID).Error)
	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/connection-requests/%s/respond", pending.ID), env.tokenFor(t, bob), RespondPayload{Accept: true}).Code)

	rec = env.do(t, http.MethodGet, "/api/v1/connections", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var connections []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &connections))
	require.Len(t, connections, 1)
	assert.Equal(t, bob.ID, connections[0].ID)
}

func TestGetStatusHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com")
	bob := env.seedUser(t, "Bob", "bob@example.com")
	aliceToken := env.tokenFor(t, alice)
	bobToken := env.tokenFor(t, bob)

	statusOf := func(token string, other uuid.UUID) models.Relationship {
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/connection-status", other), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var relationship models.Relationship
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &relationship))
		return relationship
	}

	assert.Equal(t, models.RelationshipNone, statusOf(aliceToken, bob.ID).Status)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: bob.ID}).Code)

	assert.Equal(t, models.RelationshipSent, statusOf(aliceToken, bob.ID).Status)
	assert.Equal(t, models.RelationshipReceived, statusOf(bobToken, alice.ID).Status)

	var pending models.ConnectionRequest
	require.NoError(t, env.db.First(&pending).Error)
	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/connection-requests/%s/respond", pending.ID), bobToken, RespondPayload{Accept: true}).Code)

	assert.Equal(t, models.RelationshipConnected, statusOf(aliceToken, bob.ID).Status)
	assert.Equal(t, models.RelationshipConnected, statusOf(bobToken, alice.ID).Status)
}

func TestGetContactInfoHandlerGating(t *testing.T) {
	env := newHandlerTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com")
	bob := env.seedUser(t, "Bob", "bob@example.com")
	require.NoError(t, env.db.Create(&models.ContactInfo{
		UserID: bob.ID,
		Email:  "bob@example.com",
		Phone:  "13800000000",
	}).Error)

	aliceToken := env.tokenFor(t, alice)
	contactPath := fmt.Sprintf("/api/v1/users/%s/contact-info", bob.ID)

	// 未连接时被拒绝
	rec := env.do(t, http.MethodGet, contactPath, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/v1/connection-requests", aliceToken, SendRequestPayload{ToUserID: bob.ID}).Code)

	// 待处理仍被拒绝
	rec = env.do(t, http.MethodGet, contactPath, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var pending models.ConnectionRequest
	require.NoError(t, env.db.First(&pending).Error)
	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/connection-requests/%s/respond", pending.ID), env.tokenFor(t, bob), RespondPayload{Accept: true}).Code)

	rec = env.do(t, http.MethodGet, contactPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.ContactInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "13800000000", info.Phone)

	// 已连接但对方未填写联系方式时返回 404
	dave := env.seedUser(t, "Dave", "dave@example.com")
	require.NoError(t, env.db.Create(&models.ConnectionRequest{
		FromUserID: alice.ID,
		ToUserID:   dave.ID,
		Status:     models.ConnectionRequestStatusAccepted,
	}).Error)
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/contact-info", dave.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
