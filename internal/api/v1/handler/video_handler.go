package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type VideoHandler struct {
	videoService service.VideoService
	validate     *validator.Validate
}

func NewVideoHandler(videoService service.VideoService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{videoService: videoService, validate: v}
}

// RegisterRoutes mounts video routes
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/videos/search", authMw(http.HandlerFunc(h.search)))
	mux.Handle("/videos/downloads", authMw(http.HandlerFunc(h.handleDownloads)))
	mux.Handle("/videos/downloads/", authMw(http.HandlerFunc(h.getDownload)))
}

func (h *VideoHandler) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		http.Error(w, "Missing query parameter 'q'", http.StatusBadRequest)
		return
	}
	maxResults, _ := strconv.ParseInt(r.URL.Query().Get("max"), 10, 64)

	results, err := h.videoService.Search(r.Context(), query, maxResults)
	if err != nil {
		http.Error(w, "Search failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	resp := make([]dto.VideoSearchResultDTO, len(results))
	for i, v := range results {
		resp[i] = dto.VideoSearchResultDTO{
			VideoID:      v.VideoID,
			Title:        v.Title,
			Description:  v.Description,
			ChannelTitle: v.ChannelTitle,
			ThumbnailURL: v.ThumbnailURL,
			PublishedAt:  v.PublishedAt,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *VideoHandler) handleDownloads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.requestDownload(w, r)
	case http.MethodGet:
		h.listDownloads(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *VideoHandler) requestDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.VideoDownloadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	download, err := h.videoService.RequestDownload(r.Context(), userID, req.VideoID, req.Title)
	if err != nil {
		http.Error(w, "Failed to request download: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(toDownloadDTO(download))
}

func (h *VideoHandler) listDownloads(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	downloads, err := h.videoService.ListDownloads(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list downloads: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.VideoDownloadResponseDTO, len(downloads))
	for i := range downloads {
		resp[i] = toDownloadDTO(&downloads[i])
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *VideoHandler) getDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	downloadID := strings.TrimPrefix(r.URL.Path, "/videos/downloads/")
	if downloadID == "" || strings.Contains(downloadID, "/") {
		http.NotFound(w, r)
		return
	}

	download, err := h.videoService.GetDownload(r.Context(), downloadID, userID)
	if err != nil {
		http.Error(w, "Failed to fetch download: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if download == nil {
		http.Error(w, "Download not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDownloadDTO(download))
}

func toDownloadDTO(d *model.VideoDownload) dto.VideoDownloadResponseDTO {
	return dto.VideoDownloadResponseDTO{
		ID:           d.ID,
		VideoID:      d.VideoID,
		Title:        d.Title,
		Status:       d.Status,
		StoragePath:  d.StoragePath,
		ErrorDetails: d.ErrorDetails,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
