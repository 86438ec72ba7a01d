package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pronet/internal/middleware"
	"pronet/internal/services"
)

// UserHandler 封装了用户资料相关的 HTTP 处理器方法。
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMeHandler 处理 GET /api/v1/users/me，返回当前用户及其资料与联系方式。
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error fetching user %s: %v", userID, err)
			writeJSONError(w, "获取用户信息失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateProfileHandler 处理 PUT /api/v1/users/me/profile。
func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	var input services.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	profile, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error updating profile for user %s: %v", userID, err)
			writeJSONError(w, "保存用户资料失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// UpdateContactInfoHandler 处理 PUT /api/v1/users/me/contact-info。
func (h *UserHandler) UpdateContactInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	var input services.ContactInfoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(input.Email) == "" {
		writeJSONError(w, "联系邮箱不能为空", http.StatusBadRequest)
		return
	}

	info, err := h.userService.UpdateContactInfo(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error updating contact info for user %s: %v", userID, err)
			writeJSONError(w, "保存联系方式失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}

// ListProfessionalsHandler 处理 GET /api/v1/users，返回除自己外的所有用户。
func (h *UserHandler) ListProfessionalsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	cards, err := h.userService.ListProfessionals(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing professionals for user %s: %v", userID, err)
		writeJSONError(w, "获取用户列表失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, cards)
}

// GetUserCardHandler 处理 GET /api/v1/users/{userID}，返回指定用户的公开名片。
func (h *UserHandler) GetUserCardHandler(w http.ResponseWriter, r *http.Request) {
	targetID, ok := parseUserIDVar(w, r)
	if !ok {
		return
	}

	card, err := h.userService.GetUserCard(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error fetching user card %s: %v", targetID, err)
			writeJSONError(w, "获取用户信息失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, card)
}

// parseUserIDVar 从路径参数中解析 userID。
func parseUserIDVar(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	idStr, ok := vars["userID"]
	if !ok {
		writeJSONError(w, "请求路径中缺少 userID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeJSONError(w, "无效的用户ID格式", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
