package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pronet/internal/middleware"
	"pronet/internal/services"
)

// ConnectionHandler handles HTTP requests related to connection requests,
// connections and contact info gating.
type ConnectionHandler struct {
	connectionService services.ConnectionService
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(cs services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: cs}
}

// SendRequestPayload defines the expected JSON body for sending a request.
type SendRequestPayload struct {
	ToUserID uuid.UUID `json:"toUserId"`
}

// RespondPayload defines the expected JSON body for responding to a request.
type RespondPayload struct {
	Accept bool `json:"accept"`
}

// SuccessResponse 是仅表示操作成功的响应体。
type SuccessResponse struct {
	Success bool `json:"success"`
}

// SendRequestHandler handles POST /api/v1/connection-requests
func (h *ConnectionHandler) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	fromUserID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	var payload SendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.ToUserID == uuid.Nil {
		writeJSONError(w, "缺少接收者ID (toUserId)", http.StatusBadRequest)
		return
	}

	_, err := h.connectionService.SendRequest(r.Context(), fromUserID, payload.ToUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfRequest),
			errors.Is(err, services.ErrRecipientNotFound),
			errors.Is(err, services.ErrRequestExists):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error sending connection request from %s to %s: %v", fromUserID, payload.ToUserID, err)
			writeJSONError(w, "发送连接请求失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, SuccessResponse{Success: true})
}

// RespondHandler handles POST /api/v1/connection-requests/{requestID}/respond
func (h *ConnectionHandler) RespondHandler(w http.ResponseWriter, r *http.Request) {
	responderID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	requestID, err := uuid.Parse(vars["requestID"])
	if err != nil {
		writeJSONError(w, "无效的请求ID格式", http.StatusBadRequest)
		return
	}

	var payload RespondPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.connectionService.RespondToRequest(r.Context(), responderID, requestID, payload.Accept); err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			// 不存在与无权响应统一返回 404
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrRequestResolved):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("Error responding to connection request %s by user %s: %v", requestID, responderID, err)
			writeJSONError(w, "处理连接请求失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// ListRequestsHandler handles GET /api/v1/connection-requests
func (h *ConnectionHandler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	overview, err := h.connectionService.ListRequests(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing connection requests for user %s: %v", userID, err)
		writeJSONError(w, "获取连接请求失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, overview)
}

// ListConnectionsHandler handles GET /api/v1/connections
func (h *ConnectionHandler) ListConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	connections, err := h.connectionService.ListConnections(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing connections for user %s: %v", userID, err)
		writeJSONError(w, "获取连接列表失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, connections)
}

// GetStatusHandler handles GET /api/v1/users/{userID}/connection-status
func (h *ConnectionHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	otherID, ok := parseUserIDVar(w, r)
	if !ok {
		return
	}

	relationship, err := h.connectionService.GetRelationshipStatus(r.Context(), viewerID, otherID)
	if err != nil {
		log.Printf("Error getting connection status between %s and %s: %v", viewerID, otherID, err)
		writeJSONError(w, "获取连接状态失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, relationship)
}

// GetContactInfoHandler handles GET /api/v1/users/{userID}/contact-info
func (h *ConnectionHandler) GetContactInfoHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	ownerID, ok := parseUserIDVar(w, r)
	if !ok {
		return
	}

	info, err := h.connectionService.GetContactInfo(r.Context(), viewerID, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotConnected):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrContactInfoNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		default:
			log.Printf("Error getting contact info of %s for viewer %s: %v", ownerID, viewerID, err)
			writeJSONError(w, "获取联系方式失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}
