package apiserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"pronet/internal/config"
	"pronet/internal/middleware"
	"pronet/internal/services"
	"pronet/internal/storage"
)

// UploadHandler 处理头像上传。
type UploadHandler struct {
	fileStore   storage.FileStore
	userService services.UserService
	cfg         config.StorageConfig
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(fileStore storage.FileStore, userService services.UserService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		fileStore:   fileStore,
		userService: userService,
		cfg:         cfg,
	}
}

// UploadProfileImageHandler handles POST /api/v1/upload. The stored file URL
// is written onto the caller's user record.
func (h *UploadHandler) UploadProfileImageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	maxBytes := h.cfg.MaxFileSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSONError(w, "上传文件过大或表单无效", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "缺少上传文件字段 (file)", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeJSONError(w, "头像必须是图片文件", http.StatusBadRequest)
		return
	}

	fileInfo, err := h.fileStore.SaveFile(r.Context(), file, header.Size, header.Filename, mimeType)
	if err != nil {
		log.Printf("Error saving profile image for user %s: %v", userID, err)
		writeJSONError(w, "保存文件失败", http.StatusInternalServerError)
		return
	}

	user, err := h.userService.UpdateProfileImage(r.Context(), userID, fileInfo.URL)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error updating profile image for user %s: %v", userID, err)
			writeJSONError(w, "更新用户头像失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"url":  fileInfo.URL,
		"user": user,
	})
}
