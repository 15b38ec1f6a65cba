package feed

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/social"
	"github.com/nestfeed/client/internal/service/feed"
	"github.com/nestfeed/client/pkg/utils"
)

// maxPostBytes 发帖请求体上限（含图片）
const maxPostBytes = 20 << 20

// Handler 帖子流的HTTP处理器
type Handler struct {
	feed   *feed.Service
	logger *zap.Logger
}

// New 创建帖子流处理器
func New(feedSvc *feed.Service, logger *zap.Logger) *Handler {
	return &Handler{feed: feedSvc, logger: logging.OrNop(logger)}
}

// RegisterRoutes 注册帖子相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/feed", h.handleFeed)
	r.Post("/feed/reload", h.handleReload)
	r.Post("/feed/next", h.handleNext)

	r.Post("/posts", h.handleCreate)
	r.Get("/posts/mine", h.handleMine)
	r.Get("/posts/deleted", h.handleDeleted)
	r.Post("/posts/{postID}/like", h.handleLike)
	r.Delete("/posts/{postID}", h.handleDelete)
	r.Post("/posts/{postID}/restore", h.handleRestore)
}

type pageResponse struct {
	Loaded bool                       `json:"loaded"`
	Feed   feed.Snapshot[social.Post] `json:"feed"`
}

// handleFeed 返回已加载的帖子，首次访问时加载第一页
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	home := h.feed.Home()
	loaded := false
	if home.Page() == 0 {
		var err error
		if loaded, err = home.Reset(r.Context()); err != nil {
			httperr.Write(w, h.logger, err, "Failed to load feed")
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, pageResponse{Loaded: loaded, Feed: home.Snapshot()})
}

// handleReload 重新加载第一页并替换列表
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.feed.Home().Reset(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load feed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, pageResponse{Loaded: loaded, Feed: h.feed.Home().Snapshot()})
}

// handleNext 滚动触发：lastVisibleId为最后一条可见帖子时加载下一页
func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LastVisibleID string `json:"lastVisibleId"`
	}
	if r.ContentLength != 0 && !utils.DecodeJSON(w, r, &payload) {
		return
	}

	home := h.feed.Home()
	var (
		loaded bool
		err    error
	)
	if payload.LastVisibleID != "" {
		loaded, err = home.Trigger(r.Context(), payload.LastVisibleID)
	} else {
		loaded, err = home.Next(r.Context())
	}
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load feed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, pageResponse{Loaded: loaded, Feed: home.Snapshot()})
}

// handleCreate 发帖，支持multipart（text+image）或JSON（text）
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var post social.NewPost

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxPostBytes)
		if err := r.ParseMultipartForm(maxPostBytes); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		post.Text = r.FormValue("text")
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, "failed to read image")
				return
			}
			post.ImageName = header.Filename
			post.Image = data
		}
	} else {
		var payload struct {
			Text string `json:"text"`
		}
		if !utils.DecodeJSON(w, r, &payload) {
			return
		}
		post.Text = payload.Text
	}

	created, err := h.feed.Create(r.Context(), post)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to create post")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"post": created})
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.Mine(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load posts")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// handleDeleted 已删除帖子列表，page参数大于1时追加
func (h *Handler) handleDeleted(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		page = parsed
	}

	deleted := h.feed.Deleted()
	loaded, err := deleted.LoadPage(r.Context(), page)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to fetch deleted posts")
		return
	}
	utils.RespondJSON(w, http.StatusOK, pageResponse{Loaded: loaded, Feed: deleted.Snapshot()})
}

func (h *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.Like(r.Context(), chi.URLParam(r, "postID")); err != nil {
		httperr.Write(w, h.logger, err, "Like failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.Delete(r.Context(), chi.URLParam(r, "postID")); err != nil {
		httperr.Write(w, h.logger, err, "Failed to delete post.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.Restore(r.Context(), chi.URLParam(r, "postID")); err != nil {
		httperr.Write(w, h.logger, err, "Failed to restore post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
