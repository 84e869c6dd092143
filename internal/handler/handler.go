package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/broadcast"
	"github.com/luan78zao/model_downloader/internal/downloader"
	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/model"
	"github.com/luan78zao/model_downloader/internal/store"
)

// queuedMessage 是下载入队后返回给调用方的提示
const queuedMessage = "Download has been queued and will start automatically"

// Downloads 是处理器依赖的下载服务
type Downloads interface {
	Start(ctx context.Context, req model.DownloadRequest) (string, error)
	GetProgress(id string) (model.Download, error)
	List() map[string]model.Download
}

// Folders 列出可用的目录类别
type Folders interface {
	Categories() []string
	ResolveFolderPaths(category string) []string
}

// Events 提供广播订阅
type Events interface {
	Subscribe() (<-chan broadcast.Event, func())
}

// Handler 处理HTTP请求
type Handler struct {
	downloads Downloads
	folders   Folders
	events    Events
	logger    logging.Logger
}

// New 创建一个新的处理器
func New(downloads Downloads, folders Folders, events Events, logger logging.Logger) *Handler {
	return &Handler{
		downloads: downloads,
		folders:   folders,
		events:    events,
		logger:    logger.With("module", "handler"),
	}
}

// RegisterRoutes 注册HTTP路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/download-model", h.handleDownloadModel)
	mux.HandleFunc("GET /api/download-progress/{id}", h.handleDownloadProgress)
	mux.HandleFunc("GET /api/downloads", h.handleListDownloads)
	mux.HandleFunc("GET /api/download-events", h.handleEvents)
	mux.HandleFunc("GET /api/folders", h.handleFolders)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type progressResponse struct {
	Success  bool           `json:"success"`
	Download model.Download `json:"download"`
}

type listResponse struct {
	Success   bool                      `json:"success"`
	Downloads map[string]model.Download `json:"downloads"`
}

type foldersResponse struct {
	Success bool                `json:"success"`
	Folders map[string][]string `json:"folders"`
}

// handleDownloadModel 校验请求并启动后台下载，立即返回
func (h *Handler) handleDownloadModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := ParseDownloadRequest(r)
	if err != nil {
		h.logger.Warn(ctx, "failed to parse download request", "request_id", RequestIDFromContext(ctx), "error", err)
		h.writeJSON(w, http.StatusBadRequest, model.StartResult{Error: err.Error()})
		return
	}

	id, err := h.downloads.Start(ctx, req)
	if err != nil {
		var ve *downloader.ValidationError
		switch {
		case errors.As(err, &ve):
			// 校验失败沿用 200 + success=false
			h.writeJSON(w, http.StatusOK, model.StartResult{Error: ve.Message})
		case errors.Is(err, downloader.ErrShuttingDown):
			h.writeJSON(w, http.StatusServiceUnavailable, model.StartResult{Error: "Server is shutting down"})
		default:
			h.logger.Error(ctx, "failed to start download", "request_id", RequestIDFromContext(ctx), "error", err)
			h.writeJSON(w, http.StatusInternalServerError, model.StartResult{Error: err.Error()})
		}
		return
	}

	h.writeJSON(w, http.StatusOK, model.StartResult{
		Success:    true,
		DownloadID: id,
		Status:     model.StatusQueued,
		Message:    queuedMessage,
	})
}

// handleDownloadProgress 返回单个下载的记录
func (h *Handler) handleDownloadProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := h.downloads.GetProgress(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Download not found"})
		return
	}
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, progressResponse{Success: true, Download: rec})
}

// handleListDownloads 返回所有保留中的记录
func (h *Handler) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, listResponse{Success: true, Downloads: h.downloads.List()})
}

// handleFolders 返回目录类别及其路径
func (h *Handler) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders := make(map[string][]string)
	for _, c := range h.folders.Categories() {
		folders[c] = h.folders.ResolveFolderPaths(c)
	}
	h.writeJSON(w, http.StatusOK, foldersResponse{Success: true, Folders: folders})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn(context.Background(), "failed to write response", "error", err)
	}
}
