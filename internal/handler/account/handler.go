package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/service/account"
	"github.com/nestfeed/client/pkg/utils"
)

// maxPictureBytes 头像上传大小上限
const maxPictureBytes = 10 << 20

// Handler 用户资料相关的HTTP处理器
type Handler struct {
	accounts *account.Service
	logger   *zap.Logger
}

// New 创建用户资料处理器
func New(accounts *account.Service, logger *zap.Logger) *Handler {
	return &Handler{accounts: accounts, logger: logging.OrNop(logger)}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/users/search", h.handleSearch)
}

// RegisterRoutes 注册需要会话的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.handleProfile)
	r.Put("/users/me", h.handleUpdateProfile)
	r.Post("/users/me/password", h.handleChangePassword)
	r.Post("/users/me/picture", h.handleUploadPicture)
	r.Get("/users/{userID}", h.handleFriendProfile)
	r.Get("/settings", h.handleSettings)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httperr.Write(w, h.logger, err, "Search failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load profile")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleUpdateProfile 修改姓名与邮箱，需当前密码确认
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.accounts.UpdateProfile(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to update profile.")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload account.PasswordChange
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.accounts.ChangePassword(r.Context(), payload)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to change password.")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// handleUploadPicture 接收multipart字段profilePic并转发
func (h *Handler) handleUploadPicture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPictureBytes)
	file, header, err := r.FormFile("profilePic")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "profilePic file is required")
		return
	}
	defer file.Close()

	user, err := h.accounts.UploadProfilePicture(r.Context(), header.Filename, file)
	if err != nil {
		httperr.Write(w, h.logger, err, "Upload failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) handleFriendProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.FriendProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load profile")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

// handleSettings 并行加载资料和好友列表
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.accounts.Settings(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load settings")
		return
	}
	utils.RespondJSON(w, http.StatusOK, settings)
}
